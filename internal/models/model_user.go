package models

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
)

// User is the profile row carrying the subscription record.
// Every subscription column is nullable: NULL means the field was never written and is
// filled by the backfill.
type User struct {
	ID                         string                    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	SubscriptionTier           *types.SubscriptionTier   `gorm:"column:subscription_tier;type:varchar(16);index:idx_users_tier_status_expires,priority:1" json:"subscription_tier"`
	SubscriptionStatus         *types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(32);index:idx_users_tier_status_expires,priority:2" json:"subscription_status"`
	SubscriptionExpiresAt      *time.Time                `gorm:"column:subscription_expires_at;index:idx_users_tier_status_expires,priority:3" json:"subscription_expires_at"`
	LastSubscriptionValidation *time.Time                `gorm:"column:last_subscription_validation" json:"last_subscription_validation"`
	OriginalTransactionID      *string                   `gorm:"column:original_transaction_id;type:varchar(128);index:idx_users_original_transaction_id" json:"original_transaction_id"`
	AutoRenewStatus            *bool                     `gorm:"column:auto_renew_status" json:"auto_renew_status"`
	GracePeriodExpiresAt       *time.Time                `gorm:"column:grace_period_expires_at" json:"grace_period_expires_at"`
	IsTrialPeriod              *bool                     `gorm:"column:is_trial_period" json:"is_trial_period"`
	TrialExpiresAt             *time.Time                `gorm:"column:trial_expires_at" json:"trial_expires_at"`
	RefundedAt                 *time.Time                `gorm:"column:refunded_at" json:"refunded_at"`
	// SubscriptionVersion is bumped on every subscription write and guards concurrent writers.
	SubscriptionVersion int64 `gorm:"column:subscription_version;not null;default:0" json:"subscription_version"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (User) TableName() string { return "users" }

// SubscriptionRecord returns the stored record, substituting canonical defaults for
// missing columns.
func (u *User) SubscriptionRecord() types.SubscriptionRecord {
	r := types.SubscriptionRecord{
		Tier:                  types.SubscriptionTierFree,
		Status:                types.SubscriptionStatusExpired,
		ExpiresAt:             u.SubscriptionExpiresAt,
		LastValidationAt:      u.LastSubscriptionValidation,
		OriginalTransactionID: u.OriginalTransactionID,
		GracePeriodExpiresAt:  u.GracePeriodExpiresAt,
		TrialExpiresAt:        u.TrialExpiresAt,
		RefundedAt:            u.RefundedAt,
	}
	if u.SubscriptionTier != nil {
		r.Tier = *u.SubscriptionTier
	}
	if u.SubscriptionStatus != nil {
		r.Status = *u.SubscriptionStatus
	}
	if u.AutoRenewStatus != nil {
		r.AutoRenewStatus = *u.AutoRenewStatus
	}
	if u.IsTrialPeriod != nil {
		r.IsTrialPeriod = *u.IsTrialPeriod
	}
	return r
}

// SubscriptionColumns maps a full record onto column values for an UPDATE.
func SubscriptionColumns(r types.SubscriptionRecord) map[string]any {
	return map[string]any{
		"subscription_tier":            string(r.Tier),
		"subscription_status":          string(r.Status),
		"subscription_expires_at":      r.ExpiresAt,
		"last_subscription_validation": r.LastValidationAt,
		"original_transaction_id":      r.OriginalTransactionID,
		"auto_renew_status":            r.AutoRenewStatus,
		"grace_period_expires_at":      r.GracePeriodExpiresAt,
		"is_trial_period":              r.IsTrialPeriod,
		"trial_expires_at":             r.TrialExpiresAt,
		"refunded_at":                  r.RefundedAt,
	}
}
