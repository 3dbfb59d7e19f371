// Package repositorytest provides an in-memory repository.Database for service tests.
package repositorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
)

type Memory struct {
	mu               sync.Mutex
	users            map[string]*models.User
	ValidationLogs   []*models.SubscriptionValidationLog
	Notifications    []*models.AppStoreNotification
	SubscriptionLogs []*models.SubscriptionLog

	// Hooks let tests inject failures. They run before the store mutates anything.
	BeforeUpdate func(userID string) error
	BeforeFill   func(fills []repository.FieldFill) error
	FailAppend   error
}

var _ repository.Database = (*Memory)(nil)

func NewMemory(users ...*models.User) *Memory {
	m := &Memory{users: map[string]*models.User{}}
	for _, u := range users {
		m.Put(u)
	}
	return m
}

// Put stores a copy of u.
func (m *Memory) Put(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

// Delete removes the user, as if the account was deleted concurrently.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// User returns a copy of the stored user, or nil.
func (m *Memory) User(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *Memory) GetUser(_ context.Context, userID string) (*models.User, error) {
	if u := m.User(userID); u != nil {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *Memory) FindUserByOriginalTransactionID(_ context.Context, originalTransactionID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OriginalTransactionID != nil && *u.OriginalTransactionID == originalTransactionID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *Memory) UpdateSubscription(_ context.Context, userID string, expectedVersion int64, r types.SubscriptionRecord) error {
	if m.BeforeUpdate != nil {
		if err := m.BeforeUpdate(userID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.SubscriptionVersion != expectedVersion {
		return repository.ErrVersionConflict
	}
	u.SubscriptionTier = lo.ToPtr(r.Tier)
	u.SubscriptionStatus = lo.ToPtr(r.Status)
	u.SubscriptionExpiresAt = r.ExpiresAt
	u.LastSubscriptionValidation = r.LastValidationAt
	u.OriginalTransactionID = r.OriginalTransactionID
	u.AutoRenewStatus = lo.ToPtr(r.AutoRenewStatus)
	u.GracePeriodExpiresAt = r.GracePeriodExpiresAt
	u.IsTrialPeriod = lo.ToPtr(r.IsTrialPeriod)
	u.TrialExpiresAt = r.TrialExpiresAt
	u.RefundedAt = r.RefundedAt
	u.SubscriptionVersion++
	return nil
}

func (m *Memory) ScanUsers(_ context.Context, afterID string, limit int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := lo.Filter(lo.Keys(m.users), func(id string, _ int) bool { return id > afterID })
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return lo.Map(ids, func(id string, _ int) *models.User {
		cp := *m.users[id]
		return &cp
	}), nil
}

func (m *Memory) FillMissing(_ context.Context, fills []repository.FieldFill) error {
	if m.BeforeFill != nil {
		if err := m.BeforeFill(fills); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fills {
		u, ok := m.users[f.UserID]
		if !ok {
			continue
		}
		for col, v := range f.Columns {
			if err := fillColumn(u, col, v); err != nil {
				return err
			}
		}
		u.SubscriptionVersion++
	}
	return nil
}

func fillColumn(u *models.User, col string, v any) error {
	switch col {
	case "subscription_tier":
		if u.SubscriptionTier == nil {
			u.SubscriptionTier = lo.ToPtr(types.SubscriptionTier(fmt.Sprint(v)))
		}
	case "subscription_status":
		if u.SubscriptionStatus == nil {
			u.SubscriptionStatus = lo.ToPtr(types.SubscriptionStatus(fmt.Sprint(v)))
		}
	case "auto_renew_status":
		if u.AutoRenewStatus == nil {
			u.AutoRenewStatus = lo.ToPtr(v.(bool))
		}
	case "is_trial_period":
		if u.IsTrialPeriod == nil {
			u.IsTrialPeriod = lo.ToPtr(v.(bool))
		}
	default:
		return fmt.Errorf("unsupported fill column %s", col)
	}
	return nil
}

func (m *Memory) AppendValidationLog(_ context.Context, entry *models.SubscriptionValidationLog) error {
	if m.FailAppend != nil {
		return m.FailAppend
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationLogs = append(m.ValidationLogs, entry)
	return nil
}

func (m *Memory) AppendNotification(_ context.Context, record *models.AppStoreNotification) error {
	if m.FailAppend != nil {
		return m.FailAppend
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, record)
	return nil
}

func (m *Memory) AppendSubscriptionLog(_ context.Context, entry *models.SubscriptionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubscriptionLogs = append(m.SubscriptionLogs, entry)
	return nil
}

func (m *Memory) ListValidationLogs(_ context.Context, userID string, limit int) ([]*models.SubscriptionValidationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := lo.Filter(m.ValidationLogs, func(l *models.SubscriptionValidationLog, _ int) bool { return l.UserID == userID })
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// ListNotifications supports equality filters on original_transaction_id and user_id.
func (m *Memory) ListNotifications(_ context.Context, filters []*types.CommonFilter, limit int) ([]*models.AppStoreNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := lo.Filter(m.Notifications, func(n *models.AppStoreNotification, _ int) bool {
		for _, f := range filters {
			if len(f.Values) == 0 {
				continue
			}
			want := fmt.Sprint(f.Values[0])
			switch f.Field {
			case "original_transaction_id":
				if n.OriginalTransactionID != want {
					return false
				}
			case "user_id":
				if n.UserID == nil || *n.UserID != want {
					return false
				}
			}
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CountUsersByTierStatus(_ context.Context) ([]repository.TierStatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[repository.TierStatusCount]int64{}
	for _, u := range m.users {
		r := u.SubscriptionRecord()
		counts[repository.TierStatusCount{Tier: r.Tier, Status: r.Status}]++
	}
	out := make([]repository.TierStatusCount, 0, len(counts))
	for k, n := range counts {
		k.Count = n
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (m *Memory) Audit(_ context.Context, now time.Time) (*repository.AuditReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &repository.AuditReport{TotalUsers: int64(len(m.users))}
	for _, u := range m.users {
		if u.SubscriptionStatus != nil && *u.SubscriptionStatus == types.SubscriptionStatusActive &&
			u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(now) {
			r.ActiveButExpired++
		}
		if u.SubscriptionTier != nil && !u.SubscriptionTier.Valid() {
			r.InvalidTier++
		}
		if u.SubscriptionStatus != nil && !u.SubscriptionStatus.Valid() {
			r.InvalidStatus++
		}
		if u.SubscriptionTier == nil || u.SubscriptionStatus == nil || u.AutoRenewStatus == nil || u.IsTrialPeriod == nil {
			r.MissingFields++
		}
	}
	return r, nil
}
