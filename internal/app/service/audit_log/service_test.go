package audit_log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/app/repository/repositorytest"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveNotification_FillsDefaults(t *testing.T) {
	db := repositorytest.NewMemory()
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.WithValue(context.Background(), logctx.KeyTraceID, "trace-9")

	rec := &models.AppStoreNotification{NotificationType: "DID_RENEW", OriginalTransactionID: "1000000123"}
	require.NoError(t, svc.SaveNotification(ctx, rec))
	require.NotEmpty(t, rec.ID)
	require.False(t, rec.Timestamp.IsZero())
	require.Equal(t, "trace-9", rec.TraceID)
	require.Len(t, db.Notifications, 1)
}

func TestSaveValidation_SwallowsStoreErrors(t *testing.T) {
	db := repositorytest.NewMemory()
	db.FailAppend = errors.New("disk full")
	svc := New(db, zap.NewNop().Sugar())

	require.NotPanics(t, func() {
		svc.SaveValidation(context.Background(), &models.SubscriptionValidationLog{UserID: "u1"})
	})
	require.Empty(t, db.ValidationLogs)
}

func TestListNotifications_FiltersAndOrdersNewestFirst(t *testing.T) {
	db := repositorytest.NewMemory()
	svc := New(db, zap.NewNop().Sugar())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, otid := range []string{"A", "B", "A"} {
		require.NoError(t, svc.SaveNotification(context.Background(), &models.AppStoreNotification{
			OriginalTransactionID: otid,
			UserID:                lo.ToPtr("u1"),
			Timestamp:             base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := svc.ListNotifications(context.Background(), NotificationQuery{OriginalTransactionID: "A"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Timestamp.After(got[1].Timestamp))
}
