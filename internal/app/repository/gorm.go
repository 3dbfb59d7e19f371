package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notificationFilterFields are the app_store_notification columns callers may filter on.
const defaultListLimit = 50

var notificationFilterFields = []string{"original_transaction_id", "user_id", "notification_type", "event_kind", "processed", "timestamp"}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &u, nil
}

func (s *GormStore) FindUserByOriginalTransactionID(ctx context.Context, originalTransactionID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("original_transaction_id = ?", originalTransactionID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by original transaction id: %w", err)
	}
	return &u, nil
}

func (s *GormStore) UpdateSubscription(ctx context.Context, userID string, expectedVersion int64, r types.SubscriptionRecord) error {
	cols := models.SubscriptionColumns(r)
	cols["subscription_version"] = gorm.Expr("subscription_version + 1")
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND subscription_version = ?", userID, expectedVersion).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update subscription for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *GormStore) ScanUsers(ctx context.Context, afterID string, limit int) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("scan users after %q: %w", afterID, err)
	}
	return users, nil
}

func (s *GormStore) FillMissing(ctx context.Context, fills []FieldFill) error {
	if len(fills) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range fills {
			updates := make(map[string]any, len(f.Columns)+1)
			for col, v := range f.Columns {
				updates[col] = gorm.Expr(fmt.Sprintf("COALESCE(%s, ?)", col), v)
			}
			updates["subscription_version"] = gorm.Expr("subscription_version + 1")
			if err := tx.Model(&models.User{}).Where("id = ?", f.UserID).Updates(updates).Error; err != nil {
				return fmt.Errorf("fill missing fields for %s: %w", f.UserID, err)
			}
		}
		return nil
	})
}

func (s *GormStore) AppendValidationLog(ctx context.Context, entry *models.SubscriptionValidationLog) error {
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append validation log: %w", err)
	}
	return nil
}

func (s *GormStore) AppendNotification(ctx context.Context, record *models.AppStoreNotification) error {
	if record.ID == "" {
		record.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append notification record: %w", err)
	}
	return nil
}

func (s *GormStore) AppendSubscriptionLog(ctx context.Context, entry *models.SubscriptionLog) error {
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append subscription log: %w", err)
	}
	return nil
}

func (s *GormStore) ListValidationLogs(ctx context.Context, userID string, limit int) ([]*models.SubscriptionValidationLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var logs []*models.SubscriptionValidationLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list validation logs: %w", err)
	}
	return logs, nil
}

func (s *GormStore) ListNotifications(ctx context.Context, filters []*types.CommonFilter, limit int) ([]*models.AppStoreNotification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.db.WithContext(ctx).Model(&models.AppStoreNotification{})
	for _, f := range filters {
		if !lo.Contains(notificationFilterFields, f.Field) {
			return nil, apperrors.Validation(fmt.Sprintf("unsupported filter field: %s", f.Field))
		}
		if err := f.Validate(); err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		q = q.Where(clause.Where{Exprs: []clause.Expression{f}})
	}
	var records []*models.AppStoreNotification
	if err := q.Order("timestamp DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return records, nil
}

func (s *GormStore) CountUsersByTierStatus(ctx context.Context) ([]TierStatusCount, error) {
	var rows []TierStatusCount
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(subscription_tier, ?) AS tier, COALESCE(subscription_status, ?) AS status, count(*) AS count",
			types.SubscriptionTierFree, types.SubscriptionStatusExpired).
		Group("1, 2").
		Order("1, 2").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count users by tier and status: %w", err)
	}
	return rows, nil
}

func (s *GormStore) Audit(ctx context.Context, now time.Time) (*AuditReport, error) {
	var r AuditReport
	counts := []struct {
		dst   *int64
		where string
		args  []any
	}{
		{&r.TotalUsers, "1 = 1", nil},
		{&r.ActiveButExpired, "subscription_status = ? AND subscription_expires_at < ?", []any{types.SubscriptionStatusActive, now}},
		{&r.InvalidTier, "subscription_tier IS NOT NULL AND subscription_tier NOT IN ?", []any{lo.Map(types.SubscriptionTiers, func(t types.SubscriptionTier, _ int) string { return string(t) })}},
		{&r.InvalidStatus, "subscription_status IS NOT NULL AND subscription_status NOT IN ?", []any{lo.Map(types.SubscriptionStatuses, func(st types.SubscriptionStatus, _ int) string { return string(st) })}},
		{&r.MissingFields, "subscription_tier IS NULL OR subscription_status IS NULL OR auto_renew_status IS NULL OR is_trial_period IS NULL", nil},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("audit subscriptions: %w", err)
		}
	}
	return &r, nil
}
