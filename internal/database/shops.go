package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rugsync/internal/models"
)

type ShopStore struct {
	db *gorm.DB
}

func NewShopStore(db *gorm.DB) *ShopStore {
	return &ShopStore{db: db}
}

// ListActive returns the shops to sync, optionally restricted to one id.
func (s *ShopStore) ListActive(ctx context.Context, onlyID string) ([]models.Shop, error) {
	var shops []models.Shop
	q := s.db.WithContext(ctx).Where("active = ?", true)
	if onlyID != "" {
		q = q.Where("id = ?", onlyID)
	}
	if err := q.Order("created_at").Find(&shops).Error; err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

func (s *ShopStore) List(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	if err := s.db.WithContext(ctx).Order("created_at").Find(&shops).Error; err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

func (s *ShopStore) Get(ctx context.Context, id string) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// SaveToken persists a freshly issued Rug API bearer token.
func (s *ShopStore) SaveToken(ctx context.Context, shopID, token string, expiresAt time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Shop{}).
		Where("id = ?", shopID).
		Updates(map[string]interface{}{
			"bearer_token":     token,
			"token_expires_at": expiresAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
