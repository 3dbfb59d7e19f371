package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestNew_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.yaml")
	content := `
apple_iap:
  bundle_id: com.growthlabs.growthmethod
  verify_timeout: 3s
product_tiers:
  - match: elite
    tier: ultimate
migration:
  page_size: 25
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)
	t.Setenv("APP_APPLE_IAP_WEBHOOK_SECRET", "whsec")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "com.growthlabs.growthmethod", c.AppleIAP.BundleID)
	require.Equal(t, "whsec", c.AppleIAP.WebhookSecret)
	require.Equal(t, 3*time.Second, c.AppleIAP.VerifyTimeout)
	require.Equal(t, 25, c.Migration.PageSize)
	require.Equal(t, 5*time.Minute, c.Redis.ValidationCacheTTL)

	tier, ok := c.TierTable().Resolve("growth_elite_yearly")
	require.True(t, ok)
	require.Equal(t, types.SubscriptionTierUltimate, tier)
}

func TestTierTable_DefaultsWhenUnset(t *testing.T) {
	c := &Config{}
	tier, ok := c.TierTable().Resolve("growth_pro_monthly")
	require.True(t, ok)
	require.Equal(t, types.SubscriptionTierPro, tier)
}
