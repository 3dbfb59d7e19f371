package subscription

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
)

// EventKind is the closed set of lifecycle events the state machine understands.
type EventKind string

const (
	EventKindSubscribed           EventKind = "subscribed"
	EventKindRenewed              EventKind = "renewed"
	EventKindRenewalFailed        EventKind = "renewal_failed"
	EventKindExpired              EventKind = "expired"
	EventKindGracePeriodExpired   EventKind = "grace_period_expired"
	EventKindRefunded             EventKind = "refunded"
	EventKindRenewalStatusChanged EventKind = "renewal_status_changed"
	EventKindUnknown              EventKind = "unknown"
)

// FailureMode qualifies EventKindRenewalFailed.
type FailureMode string

const (
	FailureModeGracePeriod  FailureMode = "grace_period"
	FailureModeBillingRetry FailureMode = "billing_retry"
)

type Event struct {
	Kind        EventKind
	FailureMode FailureMode
	// Tier is nil when the product id did not resolve.
	Tier                  *types.SubscriptionTier
	OriginalTransactionID string
	ExpiresAt             *time.Time
	// AutoRenewStatus is nil when the notification did not carry it.
	AutoRenewStatus      *bool
	IsTrialPeriod        bool
	GracePeriodExpiresAt *time.Time
	RefundedAt           *time.Time
}

// Changes reports whether applying the event can modify a record.
func (e Event) Changes() bool { return e.Kind != EventKindUnknown && e.Kind != "" }

// Apply returns the record that results from ev. It has no side effects, and applying the
// same event to its own output returns an equal record.
func Apply(current types.SubscriptionRecord, ev Event) types.SubscriptionRecord {
	next := current
	if !ev.Changes() {
		return next
	}
	if ev.OriginalTransactionID != "" {
		id := ev.OriginalTransactionID
		next.OriginalTransactionID = &id
	}

	switch ev.Kind {
	case EventKindSubscribed:
		if ev.Tier != nil {
			next.Tier = *ev.Tier
		}
		next.Status = types.SubscriptionStatusActive
		next.ExpiresAt = ev.ExpiresAt
		next.AutoRenewStatus = true
		next.IsTrialPeriod = ev.IsTrialPeriod
		next.TrialExpiresAt = nil
		if ev.IsTrialPeriod {
			next.TrialExpiresAt = ev.ExpiresAt
		}
		next.GracePeriodExpiresAt = nil
		next.RefundedAt = nil
	case EventKindRenewed:
		if ev.Tier != nil {
			next.Tier = *ev.Tier
		}
		next.Status = types.SubscriptionStatusActive
		next.ExpiresAt = ev.ExpiresAt
		if ev.AutoRenewStatus != nil {
			next.AutoRenewStatus = *ev.AutoRenewStatus
		}
		next.GracePeriodExpiresAt = nil
	case EventKindRenewalFailed:
		if ev.FailureMode == FailureModeGracePeriod {
			next.Status = types.SubscriptionStatusGracePeriod
			next.GracePeriodExpiresAt = ev.GracePeriodExpiresAt
		} else {
			next.Status = types.SubscriptionStatusBillingRetry
		}
	case EventKindExpired:
		next.Tier = types.SubscriptionTierFree
		next.Status = types.SubscriptionStatusExpired
		next.ExpiresAt = nil
		next.AutoRenewStatus = false
	case EventKindRefunded:
		next.Tier = types.SubscriptionTierFree
		next.Status = types.SubscriptionStatusRefunded
		next.ExpiresAt = nil
		next.RefundedAt = ev.RefundedAt
	case EventKindGracePeriodExpired:
		next.Tier = types.SubscriptionTierFree
		next.Status = types.SubscriptionStatusExpired
		next.GracePeriodExpiresAt = nil
	case EventKindRenewalStatusChanged:
		if ev.AutoRenewStatus != nil {
			next.AutoRenewStatus = *ev.AutoRenewStatus
		}
	}
	return next
}
