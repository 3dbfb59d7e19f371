package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestValidator_AcceptsDefaults(t *testing.T) {
	require.NoError(t, newValidator(t).Validate(Defaults()))
}

func TestValidator_AcceptsActivePaidRecord(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour)
	r := types.SubscriptionRecord{
		Tier:            types.SubscriptionTierUltimate,
		Status:          types.SubscriptionStatusActive,
		ExpiresAt:       &exp,
		AutoRenewStatus: true,
	}
	require.NoError(t, newValidator(t).Validate(r))
}

func TestValidator_Messages(t *testing.T) {
	v := newValidator(t)
	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{"unknown tier", map[string]any{"tier": "premium", "status": "active"}, "Invalid subscription tier: premium"},
		{"unknown status", map[string]any{"tier": "pro", "status": "paused"}, "Invalid subscription status: paused"},
		{"date not a date", map[string]any{"tier": "pro", "status": "active", "expiresAt": "tomorrow"}, "expiresAt must be a Date object"},
		{"date as number", map[string]any{"tier": "pro", "status": "active", "trialExpiresAt": 1700000000000}, "trialExpiresAt must be a Date object"},
		{"bool as string", map[string]any{"tier": "free", "status": "expired", "autoRenewStatus": "true"}, "autoRenewStatus must be a boolean"},
		{"trial as number", map[string]any{"tier": "free", "status": "expired", "isTrialPeriod": 1}, "isTrialPeriod must be a boolean"},
		{"missing tier", map[string]any{"status": "expired"}, "tier is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := v.ValidateDocument(tt.doc)
			require.NoError(t, err)
			require.Contains(t, msgs, tt.want)
		})
	}
}

func TestValidator_AcceptsNullDates(t *testing.T) {
	msgs, err := newValidator(t).ValidateDocument(map[string]any{
		"tier": "free", "status": "expired", "expiresAt": nil, "autoRenewStatus": false,
	})
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestValidator_Invariants(t *testing.T) {
	v := newValidator(t)
	exp := time.Now().Add(time.Hour)

	err := v.Validate(types.SubscriptionRecord{Tier: types.SubscriptionTierFree, Status: types.SubscriptionStatusActive, ExpiresAt: &exp})
	var invalid *InvalidRecordError
	require.True(t, errors.As(err, &invalid))
	require.Contains(t, invalid.Errors, "free tier cannot have status active")

	err = v.Validate(types.SubscriptionRecord{Tier: types.SubscriptionTierPro, Status: types.SubscriptionStatusActive})
	require.ErrorAs(t, err, &invalid)
	require.Contains(t, invalid.Errors, "active status requires expiresAt")

	err = v.Validate(types.SubscriptionRecord{Tier: types.SubscriptionTierFree, Status: types.SubscriptionStatusGracePeriod})
	require.ErrorAs(t, err, &invalid)
}

func TestValidator_RejectsUnknownEnumsOnTypedRecord(t *testing.T) {
	err := newValidator(t).Validate(types.SubscriptionRecord{Tier: "gold", Status: types.SubscriptionStatusExpired})
	require.EqualError(t, err, "Invalid subscription tier: gold")
}
