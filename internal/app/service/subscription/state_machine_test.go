package subscription

import (
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var (
	now       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inMonth   = now.Add(30 * 24 * time.Hour)
	inWeek    = now.Add(7 * 24 * time.Hour)
	proActive = types.SubscriptionRecord{
		Tier:                  types.SubscriptionTierPro,
		Status:                types.SubscriptionStatusActive,
		ExpiresAt:             &now,
		OriginalTransactionID: lo.ToPtr("1000000123"),
		AutoRenewStatus:       true,
	}
)

func TestApply_Transitions(t *testing.T) {
	ultimate := types.SubscriptionTierUltimate
	free := types.SubscriptionRecord{Tier: types.SubscriptionTierFree, Status: types.SubscriptionStatusExpired}

	tests := []struct {
		name    string
		current types.SubscriptionRecord
		event   Event
		check   func(t *testing.T, got types.SubscriptionRecord)
	}{
		{
			name:    "subscribed trial",
			current: free,
			event:   Event{Kind: EventKindSubscribed, Tier: &ultimate, OriginalTransactionID: "2000", ExpiresAt: &inWeek, IsTrialPeriod: true},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionTierUltimate, got.Tier)
				require.Equal(t, types.SubscriptionStatusActive, got.Status)
				require.Equal(t, inWeek, *got.ExpiresAt)
				require.Equal(t, inWeek, *got.TrialExpiresAt)
				require.True(t, got.IsTrialPeriod)
				require.True(t, got.AutoRenewStatus)
				require.Equal(t, "2000", *got.OriginalTransactionID)
			},
		},
		{
			name:    "subscribed unresolved tier keeps current",
			current: proActive,
			event:   Event{Kind: EventKindSubscribed, ExpiresAt: &inMonth},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionTierPro, got.Tier)
				require.Nil(t, got.TrialExpiresAt)
			},
		},
		{
			name:    "renewed without auto renew keeps current",
			current: proActive,
			event:   Event{Kind: EventKindRenewed, ExpiresAt: &inMonth},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionStatusActive, got.Status)
				require.Equal(t, inMonth, *got.ExpiresAt)
				require.True(t, got.AutoRenewStatus)
			},
		},
		{
			name:    "renewal failed into grace period",
			current: proActive,
			event:   Event{Kind: EventKindRenewalFailed, FailureMode: FailureModeGracePeriod, GracePeriodExpiresAt: &inWeek},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionStatusGracePeriod, got.Status)
				require.Equal(t, types.SubscriptionTierPro, got.Tier)
				require.Equal(t, now, *got.ExpiresAt)
				require.Equal(t, inWeek, *got.GracePeriodExpiresAt)
				require.True(t, got.Entitled())
			},
		},
		{
			name:    "renewal failed into billing retry",
			current: proActive,
			event:   Event{Kind: EventKindRenewalFailed, FailureMode: FailureModeBillingRetry},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionStatusBillingRetry, got.Status)
				require.Equal(t, types.SubscriptionTierPro, got.Tier)
				require.False(t, got.Entitled())
			},
		},
		{
			name:    "expired",
			current: proActive,
			event:   Event{Kind: EventKindExpired, OriginalTransactionID: "1000000123"},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionTierFree, got.Tier)
				require.Equal(t, types.SubscriptionStatusExpired, got.Status)
				require.Nil(t, got.ExpiresAt)
				require.False(t, got.AutoRenewStatus)
			},
		},
		{
			name:    "refunded",
			current: proActive,
			event:   Event{Kind: EventKindRefunded, RefundedAt: &now},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionTierFree, got.Tier)
				require.Equal(t, types.SubscriptionStatusRefunded, got.Status)
				require.Nil(t, got.ExpiresAt)
				require.Equal(t, now, *got.RefundedAt)
			},
		},
		{
			name: "grace period expired",
			current: types.SubscriptionRecord{
				Tier: types.SubscriptionTierPro, Status: types.SubscriptionStatusGracePeriod, GracePeriodExpiresAt: &now,
			},
			event: Event{Kind: EventKindGracePeriodExpired},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, types.SubscriptionTierFree, got.Tier)
				require.Equal(t, types.SubscriptionStatusExpired, got.Status)
				require.Nil(t, got.GracePeriodExpiresAt)
			},
		},
		{
			name:    "renewal status changed",
			current: proActive,
			event:   Event{Kind: EventKindRenewalStatusChanged, AutoRenewStatus: lo.ToPtr(false)},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.False(t, got.AutoRenewStatus)
				require.Equal(t, types.SubscriptionStatusActive, got.Status)
			},
		},
		{
			name:    "unknown is a no-op",
			current: proActive,
			event:   Event{Kind: EventKindUnknown, OriginalTransactionID: "other"},
			check: func(t *testing.T, got types.SubscriptionRecord) {
				require.Equal(t, proActive, got)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Apply(tt.current, tt.event))
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	events := []Event{
		{Kind: EventKindRenewed, ExpiresAt: &inMonth, AutoRenewStatus: lo.ToPtr(true), OriginalTransactionID: "1000000123"},
		{Kind: EventKindSubscribed, ExpiresAt: &inMonth, IsTrialPeriod: true},
		{Kind: EventKindRenewalFailed, FailureMode: FailureModeGracePeriod, GracePeriodExpiresAt: &inWeek},
		{Kind: EventKindExpired},
		{Kind: EventKindRefunded, RefundedAt: &now},
		{Kind: EventKindGracePeriodExpired},
	}
	for _, ev := range events {
		once := Apply(proActive, ev)
		twice := Apply(once, ev)
		require.Equal(t, once, twice, string(ev.Kind))
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	current := proActive
	_ = Apply(current, Event{Kind: EventKindExpired})
	require.Equal(t, proActive, current)
	require.Equal(t, now, *current.ExpiresAt)
}
