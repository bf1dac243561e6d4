package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rugsync/internal/models"
)

// RunStore keeps the history of shop runs and the issues they raised.
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) SaveRun(ctx context.Context, run *models.SyncRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

func (s *RunStore) SaveIssue(ctx context.Context, issue *models.SyncIssue) error {
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		return fmt.Errorf("failed to save sync issue: %w", err)
	}
	return nil
}

// ListRuns returns a page of runs for a shop, newest first, and the total.
func (s *RunStore) ListRuns(ctx context.Context, shopID string, offset, limit int) ([]models.SyncRun, int64, error) {
	var runs []models.SyncRun
	var total int64

	scope := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.SyncRun{}).Where("shop_id = ?", shopID)
	}
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := scope().Order("started_at DESC").Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

type IssueFilter struct {
	ShopID   string
	RunID    string
	SKU      string
	Code     string
	Severity string
	Resolved *bool
}

func (s *RunStore) ListIssues(ctx context.Context, f IssueFilter, offset, limit int) ([]models.SyncIssue, int64, error) {
	var issues []models.SyncIssue
	var total int64

	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := s.filtered(ctx, f).Order("created_at DESC").Offset(offset).Limit(limit).Find(&issues).Error; err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

func (s *RunStore) filtered(ctx context.Context, f IssueFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.SyncIssue{})
	if f.ShopID != "" {
		q = q.Where("shop_id = ?", f.ShopID)
	}
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.SKU != "" {
		q = q.Where("sku = ?", f.SKU)
	}
	if f.Code != "" {
		q = q.Where("code = ?", f.Code)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}
	return q
}

func (s *RunStore) GetIssue(ctx context.Context, id string) (*models.SyncIssue, error) {
	var issue models.SyncIssue
	if err := s.db.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// ResolveIssue marks an issue as handled and returns it.
func (s *RunStore) ResolveIssue(ctx context.Context, id string) (*models.SyncIssue, error) {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Resolved = true
	if err := s.db.WithContext(ctx).Save(issue).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve issue: %w", err)
	}
	return issue, nil
}
