package receipt

import (
	"context"
	"time"

	"github.com/fatflowers/entitlement/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlement/pkg/types"
)

// Failure messages returned to the client.
const (
	ErrMsgValidateFailed   = "Failed to validate receipt"
	ErrMsgInvalidReceipt   = "Invalid receipt"
	ErrMsgInvalidBundleID  = "Invalid bundle ID"
	ErrMsgNoSubscription   = "No subscription found in receipt"
	ErrMsgUnknownProduct   = "Unknown product"
	ErrMsgInvalidSubscribe = "Invalid subscription data"
)

type ValidateRequest struct {
	ReceiptData  string `json:"receiptData"`
	ForceRefresh bool   `json:"forceRefresh"`
}

type SubscriptionSummary struct {
	Status          types.SubscriptionStatus `json:"status"`
	Tier            types.SubscriptionTier   `json:"tier"`
	ExpiresAt       *time.Time               `json:"expiresAt"`
	IsTrialPeriod   bool                     `json:"isTrialPeriod"`
	AutoRenewStatus bool                     `json:"autoRenewStatus"`
}

// ValidateResult is always returned to the client as a structured object.
type ValidateResult struct {
	Success      bool                 `json:"success"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
	Error        string               `json:"error,omitempty"`
	ErrorCode    int                  `json:"errorCode,omitempty"`
	Details      string               `json:"details,omitempty"`
	Cached       bool                 `json:"cached,omitempty"`
}

func failure(msg string) *ValidateResult { return &ValidateResult{Error: msg} }

// ExternalReceiptClient verifies a receipt with the marketplace.
type ExternalReceiptClient interface {
	Verify(ctx context.Context, receiptData string) (*apple_iap.VerifyResponse, error)
}

// ResultCache stores successful validation results.
type ResultCache interface {
	Get(ctx context.Context, key string) (*ValidateResult, bool, error)
	Set(ctx context.Context, key string, result *ValidateResult, ttl time.Duration) error
}
