package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/service/audit_log"
	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Service struct {
	bundleID    string
	environment string
	tiers       types.ProductTierTable
	cacheTTL    time.Duration

	client   ExternalReceiptClient
	cache    ResultCache
	subSvc   *subscription.Service
	auditSvc *audit_log.Service
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(
	cfg *config.Config,
	client ExternalReceiptClient,
	cache ResultCache,
	subSvc *subscription.Service,
	auditSvc *audit_log.Service,
	log *zap.SugaredLogger,
) (*Service, error) {
	if cfg.AppleIAP.BundleID == "" {
		return nil, errors.New("apple_iap.bundle_id must be set")
	}
	return &Service{
		bundleID:    cfg.AppleIAP.BundleID,
		environment: lo.Ternary(cfg.AppleIAP.IsProd, "Production", "Sandbox"),
		tiers:       cfg.TierTable(),
		cacheTTL:    cfg.Redis.ValidationCacheTTL,
		client:      client,
		cache:       cache,
		subSvc:      subSvc,
		auditSvc:    auditSvc,
		log:         log,
		now:         time.Now,
	}, nil
}

// HashReceipt returns the hex SHA-256 of the receipt blob. Only the hash is ever stored.
func HashReceipt(receiptData string) string {
	sum := sha256.Sum256([]byte(receiptData))
	return hex.EncodeToString(sum[:])
}

// Validate verifies the receipt with the marketplace and merges the derived subscription state
// onto the user's record. Marketplace and receipt problems are reported in the result; the
// returned error is reserved for unauthenticated calls, missing input and persistence failures.
func (s *Service) Validate(ctx context.Context, userID string, req *ValidateRequest) (*ValidateResult, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if req == nil || req.ReceiptData == "" {
		return nil, apperrors.ErrReceiptDataRequired
	}

	start := s.now()
	log := logctx.FromCtx(ctx, s.log).With("user_id", userID)
	hash := HashReceipt(req.ReceiptData)
	key := cacheKey(userID, hash)

	entry := &models.SubscriptionValidationLog{
		UserID:      userID,
		ReceiptHash: hash,
		Environment: s.environment,
	}

	if !req.ForceRefresh {
		if cached, ok := s.cached(ctx, log, userID, key); ok {
			entry.ValidationResult = types.ValidationResultSuccess
			entry.SubscriptionStatus = cached.Subscription.Status
			entry.Tier = cached.Subscription.Tier
			s.auditSvc.SaveValidation(ctx, entry)
			metrics.IncCounter(metrics.MetricsReceiptValidations, string(types.ValidationResultSuccess), "cached")
			return cached, nil
		}
	}

	reject := func(reason string, res *ValidateResult, details string) (*ValidateResult, error) {
		entry.ValidationResult = types.ValidationResultFailure
		entry.ErrorDetails = lo.ToPtr(details)
		s.auditSvc.SaveValidation(ctx, entry)
		metrics.IncCounter(metrics.MetricsReceiptValidations, string(types.ValidationResultFailure), reason)
		metrics.ObserveSince(metrics.MetricsBusinessProcess, start, "receipt", reason)
		return res, nil
	}

	resp, err := s.client.Verify(ctx, req.ReceiptData)
	if err != nil {
		verr := apperrors.ExternalService(err)
		log.Errorw("receipt verification request failed", "kind", verr.Kind, "error", err)
		res := failure(ErrMsgValidateFailed)
		res.Details = err.Error()
		return reject("verify_error", res, verr.Error())
	}
	if resp.Environment != "" {
		entry.Environment = resp.Environment
	}
	if resp.Status != apple_iap.StatusOK {
		msg := apple_iap.StatusMessage(resp.Status)
		log.Warnw("receipt rejected by store", "status", resp.Status, "message", msg)
		res := failure(ErrMsgInvalidReceipt)
		res.ErrorCode = resp.Status
		return reject("invalid_receipt", res, msg)
	}
	if resp.Receipt == nil || resp.Receipt.BundleID != s.bundleID {
		got := ""
		if resp.Receipt != nil {
			got = resp.Receipt.BundleID
		}
		log.Warnw("receipt bundle id mismatch", "expected", s.bundleID, "got", got)
		return reject("bundle_mismatch", failure(ErrMsgInvalidBundleID), "Invalid bundle ID: "+got)
	}

	latest, expiresAt, ok := latestEntry(resp)
	if !ok {
		return reject("no_subscription", failure(ErrMsgNoSubscription), ErrMsgNoSubscription)
	}
	tier, ok := s.tiers.Resolve(latest.ProductID)
	if !ok {
		log.Warnw("receipt carries unknown product", "product_id", latest.ProductID)
		return reject("unknown_product", failure(ErrMsgUnknownProduct), ErrMsgUnknownProduct+": "+latest.ProductID)
	}

	now := s.now()
	status := lo.Ternary(expiresAt.After(now), types.SubscriptionStatusActive, types.SubscriptionStatusExpired)
	trial := latest.Trial()
	autoRenew := autoRenewFor(resp.PendingRenewalInfo, latest.OriginalTransactionID)

	next, err := s.subSvc.Update(ctx, userID, nil, subscription.Change{
		Source: models.SubscriptionChangeSourceReceipt,
		Extra:  map[string]any{"product_id": latest.ProductID, "receipt_hash": hash},
		Mutate: func(r types.SubscriptionRecord) types.SubscriptionRecord {
			r.Tier = tier
			r.Status = status
			r.ExpiresAt = lo.ToPtr(expiresAt)
			r.IsTrialPeriod = trial
			r.TrialExpiresAt = nil
			if trial {
				r.TrialExpiresAt = lo.ToPtr(expiresAt)
			}
			r.AutoRenewStatus = autoRenew
			if latest.OriginalTransactionID != "" {
				r.OriginalTransactionID = lo.ToPtr(latest.OriginalTransactionID)
			}
			r.LastValidationAt = lo.ToPtr(now)
			return r
		},
	})
	var invalid *schema.InvalidRecordError
	if errors.As(err, &invalid) {
		log.Errorw("receipt produced an invalid subscription record", "errors", invalid.Errors)
		return reject("invalid_record", failure(ErrMsgInvalidSubscribe), invalid.Error())
	}
	if err != nil {
		log.Errorw("failed to update subscription from receipt", "error", err)
		entry.ValidationResult = types.ValidationResultFailure
		entry.ErrorDetails = lo.ToPtr(err.Error())
		s.auditSvc.SaveValidation(ctx, entry)
		metrics.IncCounter(metrics.MetricsReceiptValidations, string(types.ValidationResultFailure), "persistence")
		return nil, err
	}

	entry.ValidationResult = types.ValidationResultSuccess
	entry.SubscriptionStatus = next.Status
	entry.Tier = next.Tier
	s.auditSvc.SaveValidation(ctx, entry)

	res := &ValidateResult{
		Success: true,
		Subscription: &SubscriptionSummary{
			Status:          next.Status,
			Tier:            next.Tier,
			ExpiresAt:       next.ExpiresAt,
			IsTrialPeriod:   next.IsTrialPeriod,
			AutoRenewStatus: next.AutoRenewStatus,
		},
	}
	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		log.Warnw("failed to cache receipt validation", "error", err)
	}

	metrics.IncCounter(metrics.MetricsReceiptValidations, string(types.ValidationResultSuccess), "")
	metrics.ObserveSince(metrics.MetricsBusinessProcess, start, "receipt", "success")
	log.Infow("receipt validated", "tier", next.Tier, "status", next.Status, "expires_at", next.ExpiresAt)
	return res, nil
}

// cached returns a stored result only while it still describes the user's record. A webhook
// that changed the record since, or an expiry that has passed, makes the entry stale.
func (s *Service) cached(ctx context.Context, log *zap.SugaredLogger, userID, key string) (*ValidateResult, bool) {
	res, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warnw("receipt cache lookup failed", "error", err)
		return nil, false
	}
	if !ok || res.Subscription == nil {
		return nil, false
	}
	st, err := s.subSvc.GetStatus(ctx, userID)
	if err != nil {
		log.Warnw("failed to read record for cached receipt result", "error", err)
		return nil, false
	}
	if !matchesRecord(res.Subscription, st.SubscriptionRecord, s.now()) {
		log.Debugw("cached receipt result is stale")
		return nil, false
	}
	log.Debugw("receipt validation served from cache")
	res.Cached = true
	return res, true
}

func matchesRecord(sum *SubscriptionSummary, r types.SubscriptionRecord, now time.Time) bool {
	if sum.Tier != r.Tier || sum.Status != r.Status ||
		sum.IsTrialPeriod != r.IsTrialPeriod || sum.AutoRenewStatus != r.AutoRenewStatus {
		return false
	}
	if (sum.ExpiresAt == nil) != (r.ExpiresAt == nil) {
		return false
	}
	if sum.ExpiresAt == nil {
		return true
	}
	if !sum.ExpiresAt.Equal(*r.ExpiresAt) {
		return false
	}
	return r.Status != types.SubscriptionStatusActive || r.ExpiresAt.After(now)
}

// latestEntry picks the purchase with the latest expiry across latest_receipt_info and the
// receipt's in_app list. Entries without an expiry are not subscriptions.
func latestEntry(resp *apple_iap.VerifyResponse) (*apple_iap.InAppInfo, time.Time, bool) {
	entries := append([]*apple_iap.InAppInfo{}, resp.LatestReceiptInfo...)
	if resp.Receipt != nil {
		entries = append(entries, resp.Receipt.InApp...)
	}

	var (
		best    *apple_iap.InAppInfo
		bestExp time.Time
	)
	for _, e := range entries {
		if e == nil {
			continue
		}
		exp, ok := e.ExpiresAt()
		if !ok {
			continue
		}
		if best == nil || exp.After(bestExp) {
			best, bestExp = e, exp
		}
	}
	return best, bestExp, best != nil
}

// autoRenewFor reads auto_renew_status from the renewal info matching originalTransactionID.
// Receipts without renewal info are treated as renewing.
func autoRenewFor(infos []*apple_iap.PendingRenewalInfo, originalTransactionID string) bool {
	infos = lo.Filter(infos, func(p *apple_iap.PendingRenewalInfo, _ int) bool { return p != nil })
	if len(infos) == 0 {
		return true
	}
	match, ok := lo.Find(infos, func(p *apple_iap.PendingRenewalInfo) bool {
		return p.OriginalTransactionID == originalTransactionID
	})
	if !ok {
		if len(infos) > 1 {
			return true
		}
		match = infos[0]
	}
	return match.AutoRenewStatus == "1"
}
