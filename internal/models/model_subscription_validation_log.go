package models

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
)

// SubscriptionValidationLog is an append-only audit entry for every receipt validation.
// The receipt itself is never stored, only its SHA-256 hash.
type SubscriptionValidationLog struct {
	ID                 string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID             string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_validation_log_user_time,priority:1" json:"userId"`
	Timestamp          time.Time                `gorm:"column:timestamp;not null;index:idx_validation_log_user_time,priority:2,sort:desc" json:"timestamp"`
	ValidationResult   types.ValidationResult   `gorm:"column:validation_result;type:varchar(16);not null" json:"validationResult"`
	SubscriptionStatus types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(32)" json:"subscriptionStatus"`
	Tier               types.SubscriptionTier   `gorm:"column:tier;type:varchar(16)" json:"tier"`
	ReceiptHash        string                   `gorm:"column:receipt_hash;type:varchar(64)" json:"receiptHash"`
	ErrorDetails       *string                  `gorm:"column:error_details;type:text" json:"errorDetails,omitempty"`
	Environment        string                   `gorm:"column:environment;type:varchar(32)" json:"environment"`
	CreatedAt          time.Time                `json:"-"`
}

func (SubscriptionValidationLog) TableName() string { return "subscription_validation_log" }
