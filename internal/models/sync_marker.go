package models

import "time"

// SyncMarker stores a last-successful-run timestamp when no Redis is configured.
type SyncMarker struct {
	Key       string    `gorm:"primaryKey;type:varchar(191)"`
	Value     time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (SyncMarker) TableName() string {
	return "sync_markers"
}
