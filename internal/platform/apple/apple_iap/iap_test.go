package apple_iap

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyResponse_Decode(t *testing.T) {
	raw := `{
		"status": 0,
		"environment": "Sandbox",
		"receipt": {"bundle_id": "com.growthlabs.growthmethod", "in_app": [
			{"product_id": "growth_pro_monthly", "original_transaction_id": "1000000123", "expires_date_ms": "1893456000000", "is_trial_period": "true"}
		]},
		"pending_renewal_info": [{"original_transaction_id": "1000000123", "auto_renew_status": "0"}]
	}`
	var resp VerifyResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Equal(t, "com.growthlabs.growthmethod", resp.Receipt.BundleID)

	entry := resp.Receipt.InApp[0]
	exp, ok := entry.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), exp)
	require.True(t, entry.Trial())
	require.Equal(t, "0", resp.PendingRenewalInfo[0].AutoRenewStatus)
}

func TestInAppInfo_ExpiresAt_Missing(t *testing.T) {
	_, ok := (&InAppInfo{}).ExpiresAt()
	require.False(t, ok)
	_, ok = (&InAppInfo{ExpiresDateMs: "soon"}).ExpiresAt()
	require.False(t, ok)
}

func TestStatusMessage(t *testing.T) {
	require.Equal(t, "The receipt could not be authenticated.", StatusMessage(21003))
	require.Equal(t, "Unknown receipt validation error: 21999", StatusMessage(21999))
}

func TestNewReceiptClient_NilOptions(t *testing.T) {
	_, err := NewReceiptClient(nil)
	require.Error(t, err)
}
