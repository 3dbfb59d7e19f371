package notification_handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/app/service/audit_log"
	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/platform/apple/apple_signature"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Result is the acknowledged outcome of a delivery. Deliveries that return an error are
// not acknowledged.
type Result struct {
	Processed bool                   `json:"processed"`
	EventKind subscription.EventKind `json:"eventKind"`
	UserID    string                 `json:"userId,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type NotificationHandler struct {
	verifier   apple_signature.Verifier
	normalizer *Normalizer
	db         repository.Database
	subSvc     *subscription.Service
	auditSvc   *audit_log.Service
	Logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewNotificationHandler(
	verifier apple_signature.Verifier,
	normalizer *Normalizer,
	db repository.Database,
	sub *subscription.Service,
	audit *audit_log.Service,
	log *zap.SugaredLogger,
) *NotificationHandler {
	return &NotificationHandler{
		verifier:   verifier,
		normalizer: normalizer,
		db:         db,
		subSvc:     sub,
		auditSvc:   audit,
		Logger:     log,
		now:        time.Now,
	}
}

// HandleNotification authenticates, normalizes and applies one webhook delivery.
// Signature and payload errors are returned before any record is touched. A returned
// error of any other kind means the delivery should be retried by the marketplace.
func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte, signature string) (res *Result, resErr error) {
	start := h.now()
	log := logctx.FromCtx(ctx, h.Logger)

	if err := h.verifier.Verify(body, signature); err != nil {
		log.Warnw("webhook signature rejected", "error", err)
		metrics.IncCounter(metrics.MetricsWebhookEvents, "", "signature_rejected")
		return nil, err
	}

	n, err := h.normalizer.Normalize(body, start)
	if err != nil {
		log.Warnw("webhook payload rejected", "error", err)
		metrics.IncCounter(metrics.MetricsWebhookEvents, "", "invalid_payload")
		return nil, err
	}

	rec := &models.AppStoreNotification{
		NotificationType:      n.NotificationType,
		Subtype:               n.Subtype,
		OriginalTransactionID: n.Data.OriginalTransactionID,
		ProductID:             n.Data.ProductID,
		EventKind:             string(n.Event.Kind),
		Payload:               datatypes.JSON(body),
		Timestamp:             start,
	}
	log = log.With("notification_type", n.NotificationType, "subtype", n.Subtype,
		"original_transaction_id", n.Data.OriginalTransactionID, "event_kind", n.Event.Kind)

	defer func() {
		outcome := "processed"
		switch {
		case resErr != nil:
			outcome = "failed"
		case !res.Processed:
			outcome = "not_processed"
		}
		metrics.IncCounter(metrics.MetricsWebhookEvents, string(n.Event.Kind), outcome)
		metrics.ObserveSince(metrics.MetricsBusinessProcess, start, "webhook", string(n.Event.Kind))
	}()

	user, err := h.db.FindUserByOriginalTransactionID(ctx, n.Data.OriginalTransactionID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		log.Warnw("no user for original transaction id")
		return h.finish(ctx, rec, &Result{EventKind: n.Event.Kind, Error: apperrors.ErrUserNotFound.Message})
	}
	if err != nil {
		return nil, h.fail(ctx, rec, apperrors.Persistence(err))
	}
	rec.UserID = lo.ToPtr(user.ID)

	if !n.Event.Changes() {
		log.Infow("ignoring notification with unknown event kind", "user_id", user.ID)
		return h.finish(ctx, rec, &Result{Processed: true, EventKind: n.Event.Kind, UserID: user.ID})
	}

	_, err = h.subSvc.Update(ctx, user.ID, user, subscription.Change{
		Source: models.SubscriptionChangeSourceWebhook,
		Extra: map[string]any{
			"notification_type": n.NotificationType,
			"subtype":           n.Subtype,
			"event_kind":        string(n.Event.Kind),
			"trace_id":          logctx.TraceID(ctx),
		},
		Mutate: func(cur types.SubscriptionRecord) types.SubscriptionRecord {
			return subscription.Apply(cur, n.Event)
		},
	})
	if errors.Is(err, apperrors.ErrUserNotFound) {
		log.Warnw("user removed while applying notification", "user_id", user.ID)
		return h.finish(ctx, rec, &Result{EventKind: n.Event.Kind, UserID: user.ID, Error: apperrors.ErrUserNotFound.Message})
	}
	var invalid *schema.InvalidRecordError
	if errors.As(err, &invalid) {
		log.Warnw("notification produced an invalid subscription record", "user_id", user.ID, "errors", invalid.Errors)
		return h.finish(ctx, rec, &Result{EventKind: n.Event.Kind, UserID: user.ID, Error: "Invalid transition: " + invalid.Error()})
	}
	if err != nil {
		return nil, h.fail(ctx, rec, err)
	}

	log.Infow("notification applied", "user_id", user.ID)
	return h.finish(ctx, rec, &Result{Processed: true, EventKind: n.Event.Kind, UserID: user.ID})
}

// finish records an acknowledged delivery. If the record cannot be written the delivery
// is reported as failed so the marketplace redelivers it.
func (h *NotificationHandler) finish(ctx context.Context, rec *models.AppStoreNotification, res *Result) (*Result, error) {
	rec.Processed = res.Processed
	if res.Error != "" {
		rec.Error = lo.ToPtr(res.Error)
	}
	if err := h.auditSvc.SaveNotification(ctx, rec); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("save notification record: %w", err))
	}
	return res, nil
}

// fail records a failed delivery on a best-effort basis and returns cause.
func (h *NotificationHandler) fail(ctx context.Context, rec *models.AppStoreNotification, cause error) error {
	logctx.FromCtx(ctx, h.Logger).Errorw("failed to handle notification", "error", cause)
	rec.Processed = false
	rec.Error = lo.ToPtr(cause.Error())
	_ = h.auditSvc.SaveNotification(ctx, rec)
	return cause
}
