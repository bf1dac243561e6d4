package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shop is one destination store together with the credentials used to pull
// the rug catalog for it.
type Shop struct {
	ID             string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name           string     `json:"name" gorm:"not null"`
	StoreURL       string     `json:"store_url" gorm:"uniqueIndex;not null"`
	AccessToken    string     `json:"-" gorm:"type:text"`
	RugAPIKey      string     `json:"-" gorm:"type:text"`
	BearerToken    string     `json:"-" gorm:"type:text"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
	Active         bool       `json:"active" gorm:"not null"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TokenValid reports whether the cached bearer token can still be used at now.
func (s *Shop) TokenValid(now time.Time) bool {
	return s.BearerToken != "" && s.TokenExpiresAt != nil && now.Before(*s.TokenExpiresAt)
}

func (s *Shop) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
