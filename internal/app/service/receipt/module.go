package receipt

import (
	"github.com/fatflowers/entitlement/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlement/pkg/config"
	"go.uber.org/fx"
)

func newExternalClient(cfg *config.Config) (ExternalReceiptClient, error) {
	return apple_iap.NewReceiptClient(&apple_iap.ClientOptions{
		SharedSecret: cfg.AppleIAP.SharedSecret,
		Sandbox:      !cfg.AppleIAP.IsProd,
		Timeout:      cfg.AppleIAP.VerifyTimeout,
	})
}

var Module = fx.Options(
	fx.Provide(newExternalClient, newResultCache, NewService),
)
