// Package repository is the persistence port for subscription records and their audit logs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/types"
)

// ErrVersionConflict is returned by UpdateSubscription when another writer changed the
// record after it was read.
var ErrVersionConflict = errors.New("subscription version conflict")

// FieldFill sets the listed columns on one user only where they are still NULL.
type FieldFill struct {
	UserID  string
	Columns map[string]any
}

type TierStatusCount struct {
	Tier   types.SubscriptionTier   `json:"tier"`
	Status types.SubscriptionStatus `json:"status"`
	Count  int64                    `json:"count"`
}

// AuditReport summarizes stored records that break the subscription rules.
type AuditReport struct {
	TotalUsers       int64 `json:"totalUsers"`
	ActiveButExpired int64 `json:"activeButExpired"`
	InvalidTier      int64 `json:"invalidTier"`
	InvalidStatus    int64 `json:"invalidStatus"`
	MissingFields    int64 `json:"missingSubscriptionFields"`
}

// Database is everything the subscription services need from storage.
type Database interface {
	// GetUser returns apperrors.ErrUserNotFound when the user does not exist.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// FindUserByOriginalTransactionID returns apperrors.ErrUserNotFound when no user carries the id.
	FindUserByOriginalTransactionID(ctx context.Context, originalTransactionID string) (*models.User, error)
	// UpdateSubscription writes r when the stored version still equals expectedVersion.
	UpdateSubscription(ctx context.Context, userID string, expectedVersion int64, r types.SubscriptionRecord) error
	// ScanUsers returns up to limit users with id > afterID ordered by id.
	ScanUsers(ctx context.Context, afterID string, limit int) ([]*models.User, error)
	// FillMissing applies every fill in a single transaction.
	FillMissing(ctx context.Context, fills []FieldFill) error

	AppendValidationLog(ctx context.Context, entry *models.SubscriptionValidationLog) error
	AppendNotification(ctx context.Context, record *models.AppStoreNotification) error
	AppendSubscriptionLog(ctx context.Context, entry *models.SubscriptionLog) error

	ListValidationLogs(ctx context.Context, userID string, limit int) ([]*models.SubscriptionValidationLog, error)
	ListNotifications(ctx context.Context, filters []*types.CommonFilter, limit int) ([]*models.AppStoreNotification, error)

	CountUsersByTierStatus(ctx context.Context) ([]TierStatusCount, error)
	Audit(ctx context.Context, now time.Time) (*AuditReport, error)
}
