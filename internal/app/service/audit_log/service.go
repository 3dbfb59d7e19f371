package audit_log

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/fatflowers/entitlement/pkg/types"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service writes and reads the append-only validation and notification logs.
type Service struct {
	db  repository.Database
	log *zap.SugaredLogger
}

func New(db repository.Database, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// SaveNotification persists a webhook delivery record. Nil input is ignored.
func (s *Service) SaveNotification(ctx context.Context, rec *models.AppStoreNotification) error {
	if rec == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = tool.GenerateUUIDV7()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.TraceID == "" {
		rec.TraceID = logctx.TraceID(ctx)
	}
	if err := s.db.AppendNotification(ctx, rec); err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save notification record: %v", err)
		return err
	}
	return nil
}

// SaveValidation persists a receipt validation entry. Failures are logged and swallowed so
// that auditing never changes the caller's result.
func (s *Service) SaveValidation(ctx context.Context, entry *models.SubscriptionValidationLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.db.AppendValidationLog(ctx, entry); err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save validation log: %v", err)
	}
}

func (s *Service) ListValidationLogs(ctx context.Context, userID string, limit int) ([]*models.SubscriptionValidationLog, error) {
	logs, err := s.db.ListValidationLogs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation logs: %w", err)
	}
	return logs, nil
}

// NotificationQuery selects notification records. Empty fields are not filtered on.
type NotificationQuery struct {
	OriginalTransactionID string
	UserID                string
	Limit                 int
}

func (q NotificationQuery) filters() []*types.CommonFilter {
	var filters []*types.CommonFilter
	if q.OriginalTransactionID != "" {
		filters = append(filters, &types.CommonFilter{Field: "original_transaction_id", Operator: types.CommonFilterOperatorEq, Values: []any{q.OriginalTransactionID}})
	}
	if q.UserID != "" {
		filters = append(filters, &types.CommonFilter{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{q.UserID}})
	}
	return filters
}

func (s *Service) ListNotifications(ctx context.Context, q NotificationQuery) ([]*models.AppStoreNotification, error) {
	records, err := s.db.ListNotifications(ctx, q.filters(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return records, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
