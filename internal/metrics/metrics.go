package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	LabelShop    = "shop"
	LabelOutcome = "outcome"
	LabelStatus  = "status"
)

// Record outcomes
const (
	OutcomeInserted    = "inserted"
	OutcomeUpdated     = "updated"
	OutcomeUnpublished = "unpublished"
	OutcomeSkipped     = "skipped"
	OutcomeError       = "error"
)

var (
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugsync_records_processed_total",
			Help: "Source records reconciled, by outcome",
		},
		[]string{LabelShop, LabelOutcome},
	)

	RecordsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rugsync_records_fetched",
			Help: "Records read from the Rug API in the last run",
		},
		[]string{LabelShop},
	)

	RecordsInWindow = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rugsync_records_in_window",
			Help: "Records updated inside the lookback window in the last run",
		},
		[]string{LabelShop},
	)

	ShopRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rugsync_shop_run_duration_seconds",
			Help:    "Wall time of one shop's sync",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{LabelShop, LabelStatus},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rugsync_last_successful_run_timestamp_seconds",
			Help: "Unix time of the last batch that finished without a fatal error",
		},
	)
)

// Push sends the default registry to a Pushgateway. A batch job exits
// before it could be scraped.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
