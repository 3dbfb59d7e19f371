package models

import (
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestUser_TableNames(t *testing.T) {
	require.Equal(t, "users", User{}.TableName())
	require.Equal(t, "subscription_validation_log", SubscriptionValidationLog{}.TableName())
	require.Equal(t, "app_store_notification", AppStoreNotification{}.TableName())
	require.Equal(t, "subscription_log", SubscriptionLog{}.TableName())
}

func TestUser_SubscriptionRecord_DefaultsMissingColumns(t *testing.T) {
	r := (&User{ID: "u1"}).SubscriptionRecord()
	require.Equal(t, types.SubscriptionTierFree, r.Tier)
	require.Equal(t, types.SubscriptionStatusExpired, r.Status)
	require.False(t, r.AutoRenewStatus)
	require.False(t, r.IsTrialPeriod)
	require.Nil(t, r.ExpiresAt)
}

func TestUser_SubscriptionRecord_KeepsStoredValues(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &User{
		ID:                    "u1",
		SubscriptionTier:      lo.ToPtr(types.SubscriptionTierPro),
		SubscriptionStatus:    lo.ToPtr(types.SubscriptionStatusActive),
		SubscriptionExpiresAt: &exp,
		AutoRenewStatus:       lo.ToPtr(true),
		OriginalTransactionID: lo.ToPtr("1000000123"),
	}
	r := u.SubscriptionRecord()
	require.Equal(t, types.SubscriptionTierPro, r.Tier)
	require.Equal(t, types.SubscriptionStatusActive, r.Status)
	require.Equal(t, exp, *r.ExpiresAt)
	require.True(t, r.AutoRenewStatus)
	require.Equal(t, "1000000123", *r.OriginalTransactionID)

	cols := SubscriptionColumns(r)
	require.Equal(t, "pro", cols["subscription_tier"])
	require.Equal(t, true, cols["auto_renew_status"])
}
