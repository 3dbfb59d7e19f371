package types

import "time"

type SubscriptionTier string

const (
	SubscriptionTierFree     SubscriptionTier = "free"
	SubscriptionTierPro      SubscriptionTier = "pro"
	SubscriptionTierUltimate SubscriptionTier = "ultimate"
)

var SubscriptionTiers = []SubscriptionTier{
	SubscriptionTierFree,
	SubscriptionTierPro,
	SubscriptionTierUltimate,
}

func (t SubscriptionTier) Valid() bool {
	for _, v := range SubscriptionTiers {
		if v == t {
			return true
		}
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive       SubscriptionStatus = "active"
	SubscriptionStatusExpired      SubscriptionStatus = "expired"
	SubscriptionStatusCancelled    SubscriptionStatus = "cancelled"
	SubscriptionStatusGracePeriod  SubscriptionStatus = "grace_period"
	SubscriptionStatusBillingRetry SubscriptionStatus = "billing_retry"
	SubscriptionStatusRefunded     SubscriptionStatus = "refunded"
)

var SubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusExpired,
	SubscriptionStatusCancelled,
	SubscriptionStatusGracePeriod,
	SubscriptionStatusBillingRetry,
	SubscriptionStatusRefunded,
}

func (s SubscriptionStatus) Valid() bool {
	for _, v := range SubscriptionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// SubscriptionRecord is the canonical entitlement state merged onto a user profile.
// Optional timestamps are nil when unset.
type SubscriptionRecord struct {
	Tier                  SubscriptionTier   `json:"tier"`
	Status                SubscriptionStatus `json:"status"`
	ExpiresAt             *time.Time         `json:"expiresAt"`
	LastValidationAt      *time.Time         `json:"lastValidationAt"`
	OriginalTransactionID *string            `json:"originalTransactionId"`
	AutoRenewStatus       bool               `json:"autoRenewStatus"`
	GracePeriodExpiresAt  *time.Time         `json:"gracePeriodExpiresAt"`
	IsTrialPeriod         bool               `json:"isTrialPeriod"`
	TrialExpiresAt        *time.Time         `json:"trialExpiresAt"`
	RefundedAt            *time.Time         `json:"refundedAt"`
}

// Entitled reports whether premium features should be unlocked for the record.
func (r *SubscriptionRecord) Entitled() bool {
	if r == nil || r.Tier == SubscriptionTierFree || r.Tier == "" {
		return false
	}
	return r.Status == SubscriptionStatusActive || r.Status == SubscriptionStatusGracePeriod
}

type ValidationResult string

const (
	ValidationResultSuccess ValidationResult = "success"
	ValidationResultFailure ValidationResult = "failure"
)
