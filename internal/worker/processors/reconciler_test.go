package processors

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rugsync/internal/events"
	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/services/shopify"
	"rugsync/internal/syncerr"
	"rugsync/internal/worker/processors/export"
	"rugsync/internal/worker/processors/validation"
)

type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) FindBySKU(ctx context.Context, sku string) (*shopify.Product, bool, error) {
	args := m.Called(ctx, sku)
	var p *shopify.Product
	if v := args.Get(0); v != nil {
		p = v.(*shopify.Product)
	}
	return p, args.Bool(1), args.Error(2)
}

func (m *MockLookup) GetMetafields(ctx context.Context, productID int64) ([]shopify.Metafield, error) {
	args := m.Called(ctx, productID)
	var mfs []shopify.Metafield
	if v := args.Get(0); v != nil {
		mfs = v.([]shopify.Metafield)
	}
	return mfs, args.Error(1)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Insert(ctx context.Context, p *models.SourceProduct) (*export.Result, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Result), args.Error(1)
}

func (m *MockWriter) Update(ctx context.Context, p *models.SourceProduct, product *shopify.Product, existing []shopify.Metafield) (*export.Result, error) {
	args := m.Called(ctx, p, product, existing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Result), args.Error(1)
}

func (m *MockWriter) SetStatus(ctx context.Context, sku string, productID int64, status string) error {
	return m.Called(ctx, sku, productID, status).Error(0)
}

type issueLog struct {
	mu     sync.Mutex
	issues []*models.SyncIssue
}

func (l *issueLog) SaveIssue(_ context.Context, issue *models.SyncIssue) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issues = append(l.issues, issue)
	return nil
}

type eventLog struct {
	events []events.Event
}

func (l *eventLog) Publish(_ context.Context, e events.Event) error {
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) Close() error { return nil }

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		force  bool
		marker string
		source string
		want   Decision
	}{
		{"source newer", false, "2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z", DecisionUpdate},
		{"source older", false, "2024-02-01T00:00:00Z", "2024-01-01T00:00:00Z", DecisionSkip},
		{"equal timestamps update", false, "2024-02-01T00:00:00Z", "2024-02-01T00:00:00Z", DecisionUpdate},
		{"equal across layouts", false, "2024-02-01T10:00:00Z", "2024-02-01 10:00:00", DecisionUpdate},
		{"force wins over older source", true, "2024-02-01T00:00:00Z", "2024-01-01T00:00:00Z", DecisionUpdate},
		{"missing marker", false, "", "2024-01-01T00:00:00Z", DecisionUpdate},
		{"unparseable marker", false, "yesterday", "2024-01-01T00:00:00Z", DecisionUpdate},
		{"unparseable source", false, "2024-02-01T00:00:00Z", "", DecisionUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.force, tt.marker, tt.source))
		})
	}
}

func rug(sku string, qty *int, status string) *models.SourceProduct {
	return &models.SourceProduct{
		SKU:       sku,
		Title:     "Heriz",
		Category:  "sale",
		Price:     decimal.NewFromInt(500),
		Quantity:  qty,
		Images:    []string{"https://cdn.example.com/a.jpg"},
		Status:    status,
		UpdatedAt: "2024-03-01T00:00:00Z",
	}
}

func intPtr(v int) *int { return &v }

func existingProduct(sku string) *shopify.Product {
	return &shopify.Product{ID: 42, Variants: []shopify.Variant{{ID: 420, Sku: sku, InventoryItemID: 4200}}}
}

func newReconciler(lookup Lookup, writer Writer, force bool) (*Reconciler, *issueLog, *eventLog) {
	issues := &issueLog{}
	evts := &eventLog{}
	opts := Options{RunID: "run-1", ShopID: "shop-1", ShopName: "test", Force: force}
	r := NewReconciler(opts, validation.New(logger.Nop()), lookup, writer, issues, evts, logger.Nop())
	return r, issues, evts
}

func TestProcessInsertsUnknownSKU(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)
	p := rug("N-1", intPtr(1), "available")

	lookup.On("FindBySKU", mock.Anything, "N-1").Return(nil, false, nil)
	writer.On("Insert", mock.Anything, p).Return(&export.Result{Product: &shopify.Product{ID: 7}, Succeeded: 3}, nil)

	r, issues, evts := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), p, &stats)

	assert.Equal(t, 1, stats.Inserted)
	assert.Zero(t, stats.Errors)
	assert.Empty(t, issues.issues)
	require.Len(t, evts.events, 1)
	assert.Equal(t, events.TypeInserted, evts.events[0].Type)
	assert.EqualValues(t, 7, evts.events[0].ProductID)
	assert.Equal(t, "run-1", evts.events[0].RunID)
	writer.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessInvalidRecordIsAnError(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)
	p := rug("N-2", intPtr(1), "available")
	p.Images = nil

	r, issues, evts := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), p, &stats)

	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Inserted)
	assert.Empty(t, lookup.Calls)
	assert.Empty(t, writer.Calls)
	require.Len(t, issues.issues, 1)
	assert.Equal(t, models.IssueCodeValidation, issues.issues[0].Code)
	require.Len(t, evts.events, 1)
	assert.Equal(t, events.TypeFailed, evts.events[0].Type)

	t.Run("insert rejection is a validation issue", func(t *testing.T) {
		lookup := new(MockLookup)
		writer := new(MockWriter)
		p := rug("N-3", intPtr(1), "available")

		lookup.On("FindBySKU", mock.Anything, "N-3").Return(nil, false, nil)
		writer.On("Insert", mock.Anything, p).Return(nil, &syncerr.ValidationError{SKU: "N-3", Fields: []string{"price must be positive"}})

		r, issues, _ := newReconciler(lookup, writer, false)
		var stats Stats
		r.Process(context.Background(), p, &stats)

		assert.Equal(t, 1, stats.Errors)
		require.Len(t, issues.issues, 1)
		assert.Equal(t, models.IssueCodeValidation, issues.issues[0].Code)
	})
}

func TestProcessLookupErrorNeverInserts(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)

	lookup.On("FindBySKU", mock.Anything, "L-1").Return(nil, false, errors.New("502 bad gateway"))

	r, issues, _ := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), rug("L-1", intPtr(1), "available"), &stats)

	assert.Equal(t, 1, stats.Errors)
	writer.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	require.Len(t, issues.issues, 1)
	assert.Equal(t, models.IssueCodeLookup, issues.issues[0].Code)
}

func TestProcessMissingVariant(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)

	lookup.On("FindBySKU", mock.Anything, "V-1").Return(existingProduct("OTHER"), true, nil)

	r, _, _ := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), rug("V-1", intPtr(1), "available"), &stats)

	assert.Equal(t, 1, stats.Found)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, writer.Calls)
}

func TestProcessSkipsWhenDestinationIsNewer(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)
	marker := []shopify.Metafield{{ID: 1, Namespace: "custom", Key: "updated_at", Value: "2024-06-01T00:00:00Z"}}

	lookup.On("FindBySKU", mock.Anything, "S-1").Return(existingProduct("S-1"), true, nil)
	lookup.On("GetMetafields", mock.Anything, int64(42)).Return(marker, nil)

	r, _, evts := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), rug("S-1", intPtr(1), "available"), &stats)

	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, writer.Calls)
	require.Len(t, evts.events, 1)
	assert.Equal(t, events.TypeSkipped, evts.events[0].Type)

	t.Run("force updates anyway", func(t *testing.T) {
		writer := new(MockWriter)
		writer.On("Update", mock.Anything, mock.Anything, mock.Anything, marker).Return(&export.Result{Succeeded: 1}, nil)
		writer.On("SetStatus", mock.Anything, "S-1", int64(42), "active").Return(nil)

		r, _, _ := newReconciler(lookup, writer, true)
		var stats Stats
		r.Process(context.Background(), rug("S-1", intPtr(1), "available"), &stats)

		assert.Equal(t, 1, stats.Updated)
		assert.Zero(t, stats.Skipped)
		writer.AssertExpectations(t)
	})
}

func TestProcessUpdatePublishState(t *testing.T) {
	tests := []struct {
		name        string
		qty         *int
		status      string
		want        string
		unpublished int
	}{
		{"in stock and available", intPtr(2), "available", "active", 0},
		{"status is case insensitive", intPtr(2), "AVAILABLE", "active", 0},
		{"sold out", intPtr(0), "available", "draft", 1},
		{"negative quantity", intPtr(-1), "available", "draft", 1},
		{"no quantity", nil, "available", "draft", 1},
		{"not available", intPtr(3), "rented", "draft", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := new(MockLookup)
			writer := new(MockWriter)
			p := rug("U-1", tt.qty, tt.status)

			lookup.On("FindBySKU", mock.Anything, "U-1").Return(existingProduct("U-1"), true, nil)
			lookup.On("GetMetafields", mock.Anything, int64(42)).Return(nil, errors.New("timeout"))
			writer.On("Update", mock.Anything, p, mock.Anything, []shopify.Metafield(nil)).Return(&export.Result{Succeeded: 2}, nil)
			writer.On("SetStatus", mock.Anything, "U-1", int64(42), tt.want).Return(nil).Once()

			r, _, _ := newReconciler(lookup, writer, false)
			var stats Stats
			r.Process(context.Background(), p, &stats)

			assert.Equal(t, 1, stats.Updated)
			assert.Equal(t, tt.unpublished, stats.Unpublished)
			assert.Zero(t, stats.Errors)
			writer.AssertExpectations(t)
		})
	}
}

func TestProcessCountsWarningsAndPublishFailures(t *testing.T) {
	lookup := new(MockLookup)
	writer := new(MockWriter)
	p := rug("W-1", intPtr(1), "available")

	lookup.On("FindBySKU", mock.Anything, "W-1").Return(existingProduct("W-1"), true, nil)
	lookup.On("GetMetafields", mock.Anything, int64(42)).Return(nil, nil)
	writer.On("Update", mock.Anything, p, mock.Anything, mock.Anything).Return(&export.Result{
		Succeeded: 1,
		Failures:  []error{&syncerr.WriteError{Op: "update images", SKU: "W-1", Err: errors.New("422")}},
	}, nil)
	writer.On("SetStatus", mock.Anything, "W-1", int64(42), "active").Return(&syncerr.WriteError{Op: "set status active", SKU: "W-1", Err: errors.New("500")})

	r, issues, _ := newReconciler(lookup, writer, false)
	var stats Stats
	r.Process(context.Background(), p, &stats)

	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Warnings)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, issues.issues, 2)
	assert.Equal(t, models.IssueSeverityLow, issues.issues[0].Severity)
	assert.Equal(t, models.IssueCodePublish, issues.issues[1].Code)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	lookup := new(MockLookup)
	lookup.On("FindBySKU", mock.Anything, "P-1").Run(func(mock.Arguments) { panic("boom") })

	r, _, _ := newReconciler(lookup, new(MockWriter), false)
	var stats Stats
	assert.NotPanics(t, func() {
		r.Process(context.Background(), rug("P-1", intPtr(1), "available"), &stats)
	})
	assert.Equal(t, 1, stats.Errors)
}

func TestStatsAdd(t *testing.T) {
	total := Stats{Inserted: 1, Errors: 1}
	total.Add(Stats{Inserted: 2, Skipped: 3})
	assert.Equal(t, Stats{Inserted: 3, Skipped: 3, Errors: 1}, total)
	assert.Contains(t, total.String(), "inserted=3")
}
