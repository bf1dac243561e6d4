package processors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rugsync/internal/catalog"
	"rugsync/internal/events"
	"rugsync/internal/logger"
	"rugsync/internal/metrics"
	"rugsync/internal/models"
	"rugsync/internal/services/shopify"
	"rugsync/internal/syncerr"
	"rugsync/internal/worker/processors/export"
)

// Stats are the per-shop counters of one run.
type Stats struct {
	Total       int
	Filtered    int
	Found       int
	Inserted    int
	Updated     int
	Unpublished int
	Skipped     int
	Errors      int
	// Warnings counts best-effort steps that failed on records which were
	// otherwise written.
	Warnings int
}

func (s Stats) String() string {
	return fmt.Sprintf("total=%d filtered=%d found=%d inserted=%d updated=%d unpublished=%d skipped=%d errors=%d warnings=%d",
		s.Total, s.Filtered, s.Found, s.Inserted, s.Updated, s.Unpublished, s.Skipped, s.Errors, s.Warnings)
}

func (s *Stats) Add(o Stats) {
	s.Total += o.Total
	s.Filtered += o.Filtered
	s.Found += o.Found
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Unpublished += o.Unpublished
	s.Skipped += o.Skipped
	s.Errors += o.Errors
	s.Warnings += o.Warnings
}

type Decision int

const (
	DecisionSkip Decision = iota
	DecisionUpdate
)

func (d Decision) String() string {
	if d == DecisionUpdate {
		return "update"
	}
	return "skip"
}

// Decide compares the source timestamp with the marker stored on the
// destination product. A missing or unreadable timestamp on either side
// means update; equal timestamps update too.
func Decide(force bool, marker, sourceUpdatedAt string) Decision {
	if force || marker == "" {
		return DecisionUpdate
	}
	dest, ok := catalog.ParseTimestamp(marker)
	if !ok {
		return DecisionUpdate
	}
	src, ok := catalog.ParseTimestamp(sourceUpdatedAt)
	if !ok {
		return DecisionUpdate
	}
	if src.Before(dest) {
		return DecisionSkip
	}
	return DecisionUpdate
}

// Lookup finds destination products.
type Lookup interface {
	FindBySKU(ctx context.Context, sku string) (*shopify.Product, bool, error)
	GetMetafields(ctx context.Context, productID int64) ([]shopify.Metafield, error)
}

// Writer applies the decided action.
type Writer interface {
	Insert(ctx context.Context, p *models.SourceProduct) (*export.Result, error)
	Update(ctx context.Context, p *models.SourceProduct, product *shopify.Product, existing []shopify.Metafield) (*export.Result, error)
	SetStatus(ctx context.Context, sku string, productID int64, status string) error
}

type Validator interface {
	ValidateProduct(p *models.SourceProduct) error
}

type IssueRecorder interface {
	SaveIssue(ctx context.Context, issue *models.SyncIssue) error
}

type Options struct {
	RunID    string
	ShopID   string
	ShopName string
	Force    bool
}

// Reconciler decides and executes insert, update, publish or skip for each
// record of one shop. Errors never escape Process; they are counted.
type Reconciler struct {
	opts      Options
	validator Validator
	lookup    Lookup
	writer    Writer
	issues    IssueRecorder
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewReconciler(opts Options, validator Validator, lookup Lookup, writer Writer, issues IssueRecorder, publisher events.Publisher, logger *logger.Logger) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{
		opts:      opts,
		validator: validator,
		lookup:    lookup,
		writer:    writer,
		issues:    issues,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Reconciler) Process(ctx context.Context, p *models.SourceProduct, stats *Stats) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ctx, stats, p.SKU, models.IssueCodeWrite, models.IssueSeverityHigh, fmt.Errorf("panic: %v", rec))
		}
	}()

	// incomplete records never reach the destination, not even for lookup
	if err := r.validator.ValidateProduct(p); err != nil {
		r.fail(ctx, stats, p.SKU, models.IssueCodeValidation, models.IssueSeverityMedium, err)
		return
	}

	product, found, err := r.lookup.FindBySKU(ctx, p.SKU)
	if err != nil {
		r.fail(ctx, stats, p.SKU, models.IssueCodeLookup, models.IssueSeverityHigh, fmt.Errorf("lookup failed: %w", err))
		return
	}
	if !found {
		r.insert(ctx, p, stats)
		return
	}
	stats.Found++

	if product.VariantBySKU(p.SKU) == nil {
		r.fail(ctx, stats, p.SKU, models.IssueCodeVariantMissing, models.IssueSeverityMedium,
			fmt.Errorf("product %d has no variant with SKU %s", product.ID, p.SKU))
		return
	}

	metafields, err := r.lookup.GetMetafields(ctx, product.ID)
	if err != nil {
		r.logger.Warn("Could not read metafields of product %d (SKU %s), treating as empty: %v", product.ID, p.SKU, err)
		metafields = nil
	}

	marker := markerValue(metafields)
	if Decide(r.opts.Force, marker, p.UpdatedAt) == DecisionSkip {
		stats.Skipped++
		r.logger.Debug("Skipping SKU %s: source %s older than marker %s", p.SKU, p.UpdatedAt, marker)
		r.record(metrics.OutcomeSkipped)
		r.emit(ctx, events.Event{Type: events.TypeSkipped, SKU: p.SKU, ProductID: product.ID, Reason: "destination is newer"})
		return
	}

	res, err := r.writer.Update(ctx, p, product, metafields)
	if err != nil {
		r.fail(ctx, stats, p.SKU, models.IssueCodeWrite, models.IssueSeverityHigh, err)
		return
	}
	stats.Updated++
	r.warn(ctx, stats, p.SKU, res)
	r.record(metrics.OutcomeUpdated)

	status := catalog.PublishState(p)
	if err := r.writer.SetStatus(ctx, p.SKU, product.ID, status); err != nil {
		r.fail(ctx, stats, p.SKU, models.IssueCodePublish, models.IssueSeverityMedium, err)
		return
	}
	if status == catalog.StatusDraft {
		stats.Unpublished++
		r.record(metrics.OutcomeUnpublished)
		r.emit(ctx, events.Event{Type: events.TypeUnpublished, SKU: p.SKU, ProductID: product.ID, Status: status})
		r.logger.Info("Updated and unpublished SKU %s (product %d)", p.SKU, product.ID)
		return
	}
	r.emit(ctx, events.Event{Type: events.TypeUpdated, SKU: p.SKU, ProductID: product.ID, Status: status})
	r.logger.Info("Updated SKU %s (product %d)", p.SKU, product.ID)
}

func (r *Reconciler) insert(ctx context.Context, p *models.SourceProduct, stats *Stats) {
	res, err := r.writer.Insert(ctx, p)
	if err != nil {
		if errors.Is(err, syncerr.ErrValidation) {
			r.fail(ctx, stats, p.SKU, models.IssueCodeValidation, models.IssueSeverityMedium, err)
			return
		}
		r.fail(ctx, stats, p.SKU, models.IssueCodeWrite, models.IssueSeverityHigh, err)
		return
	}
	stats.Inserted++
	r.warn(ctx, stats, p.SKU, res)
	r.record(metrics.OutcomeInserted)

	var productID int64
	if res.Product != nil {
		productID = res.Product.ID
	}
	r.emit(ctx, events.Event{Type: events.TypeInserted, SKU: p.SKU, ProductID: productID, Status: catalog.PublishState(p)})
}

func (r *Reconciler) fail(ctx context.Context, stats *Stats, sku string, code models.IssueCode, severity models.IssueSeverity, err error) {
	stats.Errors++
	r.logger.Error("SKU %s: %v", sku, err)
	r.record(metrics.OutcomeError)
	r.saveIssue(ctx, sku, code, severity, err)
	r.emit(ctx, events.Event{Type: events.TypeFailed, SKU: sku, Reason: err.Error()})
}

func (r *Reconciler) warn(ctx context.Context, stats *Stats, sku string, res *export.Result) {
	if res == nil {
		return
	}
	for _, f := range res.Failures {
		stats.Warnings++
		r.saveIssue(ctx, sku, models.IssueCodeWrite, models.IssueSeverityLow, f)
	}
}

func (r *Reconciler) saveIssue(ctx context.Context, sku string, code models.IssueCode, severity models.IssueSeverity, err error) {
	if r.issues == nil {
		return
	}
	issue := &models.SyncIssue{
		RunID:       r.opts.RunID,
		ShopID:      r.opts.ShopID,
		SKU:         sku,
		Code:        code,
		Severity:    severity,
		Explanation: err.Error(),
	}
	if serr := r.issues.SaveIssue(ctx, issue); serr != nil {
		r.logger.Warn("Failed to save issue for SKU %s: %v", sku, serr)
	}
}

func (r *Reconciler) record(outcome string) {
	metrics.RecordsProcessed.WithLabelValues(r.opts.ShopName, outcome).Inc()
}

func (r *Reconciler) emit(ctx context.Context, e events.Event) {
	e.RunID = r.opts.RunID
	e.ShopID = r.opts.ShopID
	e.Timestamp = r.now().UTC()
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("Failed to publish %s event for SKU %s: %v", e.Type, e.SKU, err)
	}
}

func markerValue(metafields []shopify.Metafield) string {
	for _, mf := range metafields {
		if mf.Namespace == shopify.MetafieldNamespace && mf.Key == shopify.MarkerKey {
			return mf.Value
		}
	}
	return ""
}
