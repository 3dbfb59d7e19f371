package notification_handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
)

// Marketplace notification types and subtypes that map to a lifecycle event.
const (
	TypeSubscribed             = "SUBSCRIBED"
	TypeDidRenew               = "DID_RENEW"
	TypeDidFailToRenew         = "DID_FAIL_TO_RENEW"
	TypeExpired                = "EXPIRED"
	TypeGracePeriodExpired     = "GRACE_PERIOD_EXPIRED"
	TypeRefund                 = "REFUND"
	TypeRevoke                 = "REVOKE"
	TypeDidChangeRenewalStatus = "DID_CHANGE_RENEWAL_STATUS"
	SubtypeGracePeriod         = "GRACE_PERIOD"
	SubtypeAutoRenewEnabled    = "AUTO_RENEW_ENABLED"
	SubtypeAutoRenewDisabled   = "AUTO_RENEW_DISABLED"
)

// epochMillis accepts a millisecond timestamp encoded as a JSON number or string.
type epochMillis int64

func (m *epochMillis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid millisecond timestamp %q", s)
		}
		v = int64(f)
	}
	*m = epochMillis(v)
	return nil
}

func (m *epochMillis) toTime() *time.Time {
	if m == nil || *m <= 0 {
		return nil
	}
	t := time.UnixMilli(int64(*m)).UTC()
	return &t
}

type NotificationData struct {
	OriginalTransactionID  string       `json:"originalTransactionId"`
	ProductID              string       `json:"productId"`
	ExpiresDate            *epochMillis `json:"expiresDate"`
	AutoRenewStatus        *bool        `json:"autoRenewStatus"`
	IsTrialPeriod          *bool        `json:"isTrialPeriod"`
	GracePeriodExpiresDate *epochMillis `json:"gracePeriodExpiresDate"`
	RefundDate             *epochMillis `json:"refundDate"`
	BundleID               string       `json:"bundleId"`
	Environment            string       `json:"environment"`
}

type Notification struct {
	NotificationType string            `json:"notificationType"`
	Subtype          string            `json:"subtype"`
	Data             *NotificationData `json:"data"`
}

// Normalized is a validated notification together with the event it maps to.
type Normalized struct {
	Notification
	Event subscription.Event
}

type Normalizer struct {
	tiers types.ProductTierTable
}

func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{tiers: cfg.TierTable()}
}

// EventKindFor maps a notification type and subtype to the closed event set.
func EventKindFor(notificationType, subtype string) (subscription.EventKind, subscription.FailureMode) {
	switch notificationType {
	case TypeSubscribed:
		return subscription.EventKindSubscribed, ""
	case TypeDidRenew:
		return subscription.EventKindRenewed, ""
	case TypeDidFailToRenew:
		if subtype == SubtypeGracePeriod {
			return subscription.EventKindRenewalFailed, subscription.FailureModeGracePeriod
		}
		return subscription.EventKindRenewalFailed, subscription.FailureModeBillingRetry
	case TypeExpired:
		return subscription.EventKindExpired, ""
	case TypeGracePeriodExpired:
		return subscription.EventKindGracePeriodExpired, ""
	case TypeRefund, TypeRevoke:
		return subscription.EventKindRefunded, ""
	case TypeDidChangeRenewalStatus:
		if subtype == SubtypeAutoRenewEnabled || subtype == SubtypeAutoRenewDisabled {
			return subscription.EventKindRenewalStatusChanged, ""
		}
	}
	return subscription.EventKindUnknown, ""
}

// Normalize parses body into an event. receivedAt stands in for a refund date the
// marketplace did not send.
func (n *Normalizer) Normalize(body []byte, receivedAt time.Time) (*Normalized, error) {
	var notif Notification
	if err := json.Unmarshal(body, &notif); err != nil {
		return nil, fmt.Errorf("decode notification: %w", apperrors.ErrInvalidNotificationData)
	}
	if notif.Data == nil || notif.Data.OriginalTransactionID == "" {
		return nil, apperrors.ErrInvalidNotificationData
	}
	d := notif.Data

	kind, mode := EventKindFor(notif.NotificationType, notif.Subtype)
	ev := subscription.Event{
		Kind:                  kind,
		FailureMode:           mode,
		OriginalTransactionID: d.OriginalTransactionID,
		ExpiresAt:             d.ExpiresDate.toTime(),
		AutoRenewStatus:       d.AutoRenewStatus,
		GracePeriodExpiresAt:  d.GracePeriodExpiresDate.toTime(),
	}
	if tier, ok := n.tiers.Resolve(d.ProductID); ok {
		ev.Tier = &tier
	}
	if d.IsTrialPeriod != nil {
		ev.IsTrialPeriod = *d.IsTrialPeriod
	}
	switch kind {
	case subscription.EventKindRefunded:
		ev.RefundedAt = d.RefundDate.toTime()
		if ev.RefundedAt == nil {
			at := receivedAt.UTC()
			ev.RefundedAt = &at
		}
	case subscription.EventKindRenewalStatusChanged:
		enabled := notif.Subtype == SubtypeAutoRenewEnabled
		ev.AutoRenewStatus = &enabled
	}
	return &Normalized{Notification: notif, Event: ev}, nil
}
