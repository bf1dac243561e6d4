package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncIssue records a single record that could not be reconciled.
type SyncIssue struct {
	ID          string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	RunID       string        `json:"run_id" gorm:"index;not null"`
	ShopID      string        `json:"shop_id" gorm:"index;not null"`
	SKU         string        `json:"sku" gorm:"index"`
	Code        IssueCode     `json:"code" gorm:"not null"`
	Severity    IssueSeverity `json:"severity" gorm:"not null"`
	Explanation string        `json:"explanation" gorm:"type:text;not null"`
	Resolved    bool          `json:"resolved" gorm:"not null;default:false"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type IssueCode string

const (
	IssueCodeValidation     IssueCode = "VALIDATION"
	IssueCodeLookup         IssueCode = "LOOKUP"
	IssueCodeVariantMissing IssueCode = "VARIANT_MISSING"
	IssueCodeWrite          IssueCode = "WRITE"
	IssueCodePublish        IssueCode = "PUBLISH"
)

type IssueSeverity string

const (
	IssueSeverityLow    IssueSeverity = "LOW"
	IssueSeverityMedium IssueSeverity = "MEDIUM"
	IssueSeverityHigh   IssueSeverity = "HIGH"
)

func (i *SyncIssue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
