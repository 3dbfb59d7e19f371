package notification_handler

import (
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestEventKindFor(t *testing.T) {
	tests := []struct {
		typ, subtype string
		kind         subscription.EventKind
		mode         subscription.FailureMode
	}{
		{TypeSubscribed, "INITIAL_BUY", subscription.EventKindSubscribed, ""},
		{TypeSubscribed, "", subscription.EventKindSubscribed, ""},
		{TypeDidRenew, "", subscription.EventKindRenewed, ""},
		{TypeDidRenew, "BILLING_RECOVERY", subscription.EventKindRenewed, ""},
		{TypeDidFailToRenew, SubtypeGracePeriod, subscription.EventKindRenewalFailed, subscription.FailureModeGracePeriod},
		{TypeDidFailToRenew, "", subscription.EventKindRenewalFailed, subscription.FailureModeBillingRetry},
		{TypeDidFailToRenew, "OTHER", subscription.EventKindRenewalFailed, subscription.FailureModeBillingRetry},
		{TypeExpired, "VOLUNTARY", subscription.EventKindExpired, ""},
		{TypeGracePeriodExpired, "", subscription.EventKindGracePeriodExpired, ""},
		{TypeRefund, "", subscription.EventKindRefunded, ""},
		{TypeRevoke, "", subscription.EventKindRefunded, ""},
		{TypeDidChangeRenewalStatus, SubtypeAutoRenewDisabled, subscription.EventKindRenewalStatusChanged, ""},
		{TypeDidChangeRenewalStatus, SubtypeAutoRenewEnabled, subscription.EventKindRenewalStatusChanged, ""},
		{TypeDidChangeRenewalStatus, "", subscription.EventKindUnknown, ""},
		{"PRICE_INCREASE", "", subscription.EventKindUnknown, ""},
		{"", "", subscription.EventKindUnknown, ""},
	}
	for _, tt := range tests {
		kind, mode := EventKindFor(tt.typ, tt.subtype)
		require.Equal(t, tt.kind, kind, "%s/%s", tt.typ, tt.subtype)
		require.Equal(t, tt.mode, mode, "%s/%s", tt.typ, tt.subtype)
	}
}

func TestNormalize_RejectsMalformed(t *testing.T) {
	n := NewNormalizer(&config.Config{})
	for _, body := range []string{
		`not json`,
		`{"notificationType":"SUBSCRIBED"}`,
		`{"notificationType":"SUBSCRIBED","data":{"productId":"growth_pro_monthly"}}`,
		`{"notificationType":"SUBSCRIBED","data":{"originalTransactionId":"1","expiresDate":"soon"}}`,
		`{"notificationType":"SUBSCRIBED","data":{"originalTransactionId":"1"}} trailing`,
	} {
		_, err := n.Normalize([]byte(body), time.Now())
		require.ErrorIs(t, err, apperrors.ErrInvalidNotificationData, body)
	}
}

func TestNormalize_Fields(t *testing.T) {
	n := NewNormalizer(&config.Config{})
	body := `{"notificationType":"SUBSCRIBED","subtype":"INITIAL_BUY","data":{
		"originalTransactionId":"1000000123","productId":"growth_ultimate_yearly",
		"expiresDate":1893456000000,"isTrialPeriod":true,"bundleId":"com.growthlabs.growthmethod"}}`

	got, err := n.Normalize([]byte(body), time.Now())
	require.NoError(t, err)
	require.Equal(t, subscription.EventKindSubscribed, got.Event.Kind)
	require.Equal(t, types.SubscriptionTierUltimate, *got.Event.Tier)
	require.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), *got.Event.ExpiresAt)
	require.True(t, got.Event.IsTrialPeriod)
	require.Equal(t, "1000000123", got.Event.OriginalTransactionID)
	require.Equal(t, "com.growthlabs.growthmethod", got.Data.BundleID)
}

func TestNormalize_StringTimestampsAndUnknownProduct(t *testing.T) {
	n := NewNormalizer(&config.Config{})
	got, err := n.Normalize([]byte(`{"notificationType":"DID_RENEW","data":{"originalTransactionId":"1","productId":"growth_basic","expiresDate":"1893456000000"}}`), time.Now())
	require.NoError(t, err)
	require.Nil(t, got.Event.Tier)
	require.NotNil(t, got.Event.ExpiresAt)
}

func TestNormalize_RefundDefaultsToReceivedAt(t *testing.T) {
	n := NewNormalizer(&config.Config{})
	received := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	got, err := n.Normalize([]byte(`{"notificationType":"REFUND","data":{"originalTransactionId":"1"}}`), received)
	require.NoError(t, err)
	require.Equal(t, received, *got.Event.RefundedAt)
}

func TestNormalize_RenewalStatusFromSubtype(t *testing.T) {
	n := NewNormalizer(&config.Config{})
	got, err := n.Normalize([]byte(`{"notificationType":"DID_CHANGE_RENEWAL_STATUS","subtype":"AUTO_RENEW_DISABLED","data":{"originalTransactionId":"1","autoRenewStatus":true}}`), time.Now())
	require.NoError(t, err)
	require.False(t, *got.Event.AutoRenewStatus)
}
