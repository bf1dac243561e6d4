package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"rugsync/internal/catalog"
	"rugsync/internal/config"
	"rugsync/internal/connectors/rug"
	"rugsync/internal/events"
	"rugsync/internal/httpclient"
	"rugsync/internal/logger"
	"rugsync/internal/metrics"
	"rugsync/internal/models"
	"rugsync/internal/runtracker"
	"rugsync/internal/services/shopify"
	"rugsync/internal/worker/processors"
	"rugsync/internal/worker/processors/export"
	"rugsync/internal/worker/processors/validation"
)

// ShopSource lists the shops to sync and persists refreshed tokens.
type ShopSource interface {
	ListActive(ctx context.Context, onlyID string) ([]models.Shop, error)
	SaveToken(ctx context.Context, shopID, token string, expiresAt time.Time) error
}

// RunRecorder persists run summaries and per-record issues.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.SyncRun) error
	SaveIssue(ctx context.Context, issue *models.SyncIssue) error
}

// Worker runs one batch: every active shop, one after the other.
type Worker struct {
	config      *config.Config
	logger      *logger.Logger
	shops       ShopSource
	runs        RunRecorder
	tracker     runtracker.Store
	publisher   events.Publisher
	httpClient  *httpclient.Client
	source      *rug.Connector
	transformer *shopify.Transformer
	validator   *validation.Validator
	now         func() time.Time
}

func New(cfg *config.Config, logger *logger.Logger, shops ShopSource, runs RunRecorder, tracker runtracker.Store, publisher events.Publisher) *Worker {
	hc := httpclient.New(httpclient.Policy{
		MaxAttempts:    cfg.HTTPMaxAttempts,
		Backoff:        cfg.HTTPRetryBackoff,
		Timeout:        cfg.HTTPTimeout,
		ConnectTimeout: cfg.HTTPConnectTimeout,
	})
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Worker{
		config:      cfg,
		logger:      logger,
		shops:       shops,
		runs:        runs,
		tracker:     tracker,
		publisher:   publisher,
		httpClient:  hc,
		source:      rug.New(cfg.RugAPIBaseURL, hc, shops, cfg.PageDelay, logger),
		transformer: shopify.NewTransformer(cfg.Vendor),
		validator:   validation.New(logger),
		now:         time.Now,
	}
}

// Options are the command line switches of a run.
type Options struct {
	// Days overrides the computed lookback window when set and positive.
	Days   *int
	Force  bool
	ShopID string
}

type ShopResult struct {
	ShopID       string
	ShopName     string
	LookbackDays int
	Stats        processors.Stats
	Err          error
}

type Summary struct {
	RunID     string
	StartedAt time.Time
	Shops     []ShopResult
	Totals    processors.Stats
}

// Failed counts shops whose run stopped early.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Shops {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Run syncs every active shop. Only failing to load the shops is returned
// as an error; shop and record failures end up in the summary.
func (w *Worker) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{RunID: uuid.New().String(), StartedAt: w.now()}

	shops, err := w.shops.ListActive(ctx, opts.ShopID)
	if err != nil {
		return nil, err
	}
	if opts.ShopID != "" && len(shops) == 0 {
		return nil, fmt.Errorf("shop %s not found or inactive", opts.ShopID)
	}
	w.logger.Info("Starting run %s for %d shop(s), force=%t", summary.RunID, len(shops), opts.Force)

	ids := make([]string, 0, len(shops))
	for i := range shops {
		res := w.runShop(ctx, summary.RunID, &shops[i], opts)
		summary.Shops = append(summary.Shops, res)
		summary.Totals.Add(res.Stats)
		ids = append(ids, shops[i].ID)

		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	if err := w.tracker.MarkSuccess(ctx, ids, summary.StartedAt); err != nil {
		w.logger.Error("Failed to record successful run: %v", err)
	} else {
		metrics.LastSuccessfulRun.Set(float64(summary.StartedAt.Unix()))
	}

	w.printSummary(summary)

	if err := metrics.Push(w.config.PushgatewayURL, "rugsync_worker"); err != nil {
		w.logger.Warn("%v", err)
	}
	return summary, nil
}

func (w *Worker) runShop(ctx context.Context, runID string, shop *models.Shop, opts Options) (res ShopResult) {
	started := w.now()
	res = ShopResult{ShopID: shop.ID, ShopName: shop.Name}

	log, closeLog := w.openRunLog(shop, started)
	defer func() {
		if err := closeLog(); err != nil {
			w.logger.Warn("Failed to close run log for %s: %v", shop.Name, err)
		}
	}()

	var fetchErr error
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("panic: %v", rec)
		}
		w.finishShop(ctx, runID, shop, opts, started, &res, fetchErr, log)
	}()

	lastRun, err := w.tracker.LastSuccessfulRun(ctx, shop.ID)
	if err != nil {
		log.Warn("Could not read last run for %s, using default window: %v", shop.Name, err)
		lastRun = nil
	}
	res.LookbackDays = catalog.LookbackDays(opts.Days, lastRun, started)
	cutoff := catalog.Cutoff(started, res.LookbackDays)
	log.Info("Syncing shop %s (%s): lookback %d day(s), cutoff %s", shop.Name, shop.StoreURL, res.LookbackDays, cutoff.Format(time.RFC3339))

	token, err := w.source.AcquireToken(ctx, shop)
	if err != nil {
		res.Err = err
		return res
	}

	records, err := w.source.FetchAll(ctx, token)
	if err != nil {
		fetchErr = err
		log.Error("Catalog fetch stopped early, continuing with %d record(s): %v", len(records), err)
	}
	inWindow := catalog.FilterSince(records, cutoff)
	res.Stats.Total = len(records)
	res.Stats.Filtered = len(inWindow)
	metrics.RecordsFetched.WithLabelValues(shop.Name).Set(float64(len(records)))
	metrics.RecordsInWindow.WithLabelValues(shop.Name).Set(float64(len(inWindow)))
	log.Info("Fetched %d record(s), %d updated since cutoff", len(records), len(inWindow))

	client := shopify.NewClient(shop.StoreURL, shop.AccessToken, w.config.ShopifyAPIVersion, w.httpClient, log)
	exporter := export.New(client, w.transformer, w.validator, export.Options{
		Delay:              w.config.RequestDelay,
		BackfillMetafields: w.config.BackfillMetafields,
	}, log)
	reconciler := processors.NewReconciler(processors.Options{
		RunID:    runID,
		ShopID:   shop.ID,
		ShopName: shop.Name,
		Force:    opts.Force,
	}, w.validator, client, exporter, w.runs, w.publisher, log)

	batch := w.config.BatchSize
	if batch <= 0 {
		batch = len(inWindow)
	}
	for start := 0; start < len(inWindow); start += batch {
		end := min(start+batch, len(inWindow))
		log.Info("Processing records %d-%d of %d", start+1, end, len(inWindow))

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				res.Err = err
				return res
			}
			p := catalog.Normalize(inWindow[i])
			reconciler.Process(ctx, &p, &res.Stats)
		}
	}
	return res
}

func (w *Worker) finishShop(ctx context.Context, runID string, shop *models.Shop, opts Options, started time.Time, res *ShopResult, fetchErr error, log *logger.Logger) {
	finished := w.now()
	run := &models.SyncRun{
		RunID:        runID,
		ShopID:       shop.ID,
		Status:       models.SyncRunStatusCompleted,
		LookbackDays: res.LookbackDays,
		Force:        opts.Force,
		Total:        res.Stats.Total,
		Filtered:     res.Stats.Filtered,
		Found:        res.Stats.Found,
		Inserted:     res.Stats.Inserted,
		Updated:      res.Stats.Updated,
		Unpublished:  res.Stats.Unpublished,
		Skipped:      res.Stats.Skipped,
		Errors:       res.Stats.Errors,
		StartedAt:    started,
		FinishedAt:   &finished,
	}

	status := "ok"
	switch {
	case res.Err != nil:
		status = "failed"
		run.Status = models.SyncRunStatusFailed
		run.Message = res.Err.Error()
		log.Error("Shop %s failed: %v", shop.Name, res.Err)
	case fetchErr != nil:
		run.Message = fetchErr.Error()
	}
	metrics.ShopRunDuration.WithLabelValues(shop.Name, status).Observe(finished.Sub(started).Seconds())
	log.Info("Shop %s done in %s: %s", shop.Name, finished.Sub(started).Round(time.Millisecond), res.Stats)

	// the run row is written even when the batch is being cancelled
	saveCtx := context.WithoutCancel(ctx)
	if err := w.runs.SaveRun(saveCtx, run); err != nil {
		log.Warn("Failed to save run for %s: %v", shop.Name, err)
	}
}

// openRunLog tees the application log into a per-shop file. It falls back
// to the application log alone when the file cannot be opened.
func (w *Worker) openRunLog(shop *models.Shop, at time.Time) (*logger.Logger, func() error) {
	dir := filepath.Join(w.config.LogDir, "sync")
	name := fmt.Sprintf("%s_%s.log", fileSafe(shop.Name), at.Format("20060102_150405"))

	runLog, closeFn, err := logger.NewRunLog(dir, name)
	if err != nil {
		w.logger.Warn("Could not open run log for %s: %v", shop.Name, err)
		return w.logger, func() error { return nil }
	}
	return w.logger.Tee(runLog), closeFn
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileSafe(name string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "shop"
	}
	return s
}

func (w *Worker) printSummary(s *Summary) {
	w.logger.Info("Run %s finished: %d shop(s), %d failed", s.RunID, len(s.Shops), s.Failed())
	for _, r := range s.Shops {
		if r.Err != nil {
			w.logger.Info("  %-30s FAILED (%v) %s", r.ShopName, r.Err, r.Stats)
			continue
		}
		w.logger.Info("  %-30s %s", r.ShopName, r.Stats)
	}
	w.logger.Info("  %-30s %s", "TOTAL", s.Totals)
}
