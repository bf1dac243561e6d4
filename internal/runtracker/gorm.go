package runtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rugsync/internal/models"
)

// GormStore keeps markers in the sync_markers table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) LastSuccessfulRun(ctx context.Context, shopID string) (*time.Time, error) {
	var marker models.SyncMarker
	err := s.db.WithContext(ctx).
		Where(map[string]interface{}{"key": ShopKey(shopID)}).
		Where("expires_at > ?", s.now().UTC()).
		First(&marker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	t := marker.Value
	return &t, nil
}

func (s *GormStore) MarkSuccess(ctx context.Context, shopIDs []string, at time.Time) error {
	expires := s.now().UTC().Add(Retention)
	markers := make([]models.SyncMarker, 0, len(shopIDs)+1)
	for _, key := range keys(shopIDs) {
		markers = append(markers, models.SyncMarker{Key: key, Value: at.UTC(), ExpiresAt: expires})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&markers).Error
	if err != nil {
		return fmt.Errorf("failed to mark run: %w", err)
	}
	return nil
}
