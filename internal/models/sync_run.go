package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRun is the persisted summary of one shop's part of a batch run.
type SyncRun struct {
	ID           string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	RunID        string        `json:"run_id" gorm:"index;not null"`
	ShopID       string        `json:"shop_id" gorm:"index;not null"`
	Status       SyncRunStatus `json:"status" gorm:"not null"`
	LookbackDays int           `json:"lookback_days"`
	Force        bool          `json:"force"`
	Total        int           `json:"total"`
	Filtered     int           `json:"filtered"`
	Found        int           `json:"found"`
	Inserted     int           `json:"inserted"`
	Updated      int           `json:"updated"`
	Unpublished  int           `json:"unpublished"`
	Skipped      int           `json:"skipped"`
	Errors       int           `json:"errors"`
	Message      string        `json:"message,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

type SyncRunStatus string

const (
	SyncRunStatusCompleted SyncRunStatus = "COMPLETED"
	SyncRunStatusFailed    SyncRunStatus = "FAILED"
)

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
