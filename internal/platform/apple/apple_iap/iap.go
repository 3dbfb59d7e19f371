package apple_iap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/awa/go-iap/appstore"
)

type ClientOptions struct {
	SharedSecret string
	Sandbox      bool
	Timeout      time.Duration
}

// InAppInfo is one purchase entry of a verifyReceipt response.
type InAppInfo struct {
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	PurchaseDateMs        string `json:"purchase_date_ms"`
	ExpiresDateMs         string `json:"expires_date_ms"`
	IsTrialPeriod         string `json:"is_trial_period"`
	IsInIntroOfferPeriod  string `json:"is_in_intro_offer_period"`
	CancellationDateMs    string `json:"cancellation_date_ms"`
}

// ExpiresAt returns the parsed expiry, or false when the entry carries none.
func (i *InAppInfo) ExpiresAt() (time.Time, bool) {
	ms, err := strconv.ParseInt(i.ExpiresDateMs, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (i *InAppInfo) Trial() bool { return i.IsTrialPeriod == "true" }

type PendingRenewalInfo struct {
	AutoRenewProductID    string `json:"auto_renew_product_id"`
	AutoRenewStatus       string `json:"auto_renew_status"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
}

type ReceiptBody struct {
	BundleID string       `json:"bundle_id"`
	InApp    []*InAppInfo `json:"in_app"`
}

// VerifyResponse is the subset of the verifyReceipt response used for entitlement.
type VerifyResponse struct {
	Status             int                   `json:"status"`
	Environment        string                `json:"environment"`
	Receipt            *ReceiptBody          `json:"receipt"`
	LatestReceiptInfo  []*InAppInfo          `json:"latest_receipt_info"`
	PendingRenewalInfo []*PendingRenewalInfo `json:"pending_renewal_info"`
}

// ReceiptClient calls Apple's verifyReceipt endpoint.
type ReceiptClient struct {
	client *appstore.Client
	opts   ClientOptions
}

func NewReceiptClient(opts *ClientOptions) (*ReceiptClient, error) {
	if opts == nil {
		return nil, errors.New("opts is nil")
	}
	client := appstore.New()
	if opts.Sandbox {
		client.ProductionURL = client.SandboxURL
	}
	return &ReceiptClient{client: client, opts: *opts}, nil
}

// Verify posts receiptData to the store. A non-zero Status is not an error; only transport
// and decoding failures are.
func (c *ReceiptClient) Verify(ctx context.Context, receiptData string) (*VerifyResponse, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var result VerifyResponse
	err := c.client.Verify(ctx, appstore.IAPRequest{
		ReceiptData:            receiptData,
		Password:               c.opts.SharedSecret,
		ExcludeOldTransactions: true,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to verify receipt: %w", err)
	}
	return &result, nil
}
