package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/repository/repositorytest"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T, users ...*models.User) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	mock.MatchExpectationsInOrder(false)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(gdb, repositorytest.NewMemory(users...)), mock
}

func user(id string, tier types.SubscriptionTier, status types.SubscriptionStatus) *models.User {
	return &models.User{
		ID:                    id,
		SubscriptionTier:      lo.ToPtr(tier),
		SubscriptionStatus:    lo.ToPtr(status),
		SubscriptionExpiresAt: lo.ToPtr(time.Now().Add(time.Hour)),
	}
}

func TestGetStatistic_DefaultItems(t *testing.T) {
	svc, mock := newService(t,
		user("u1", types.SubscriptionTierPro, types.SubscriptionStatusActive),
		user("u2", types.SubscriptionTierPro, types.SubscriptionStatusActive),
		user("u3", types.SubscriptionTierUltimate, types.SubscriptionStatusGracePeriod),
		user("u4", types.SubscriptionTierPro, types.SubscriptionStatusRefunded),
		&models.User{ID: "u5"},
	)

	res, err := svc.GetStatistic(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []StatisticResponseDataItem{
		{Label: "free/expired", Value: 1},
		{Label: "pro/active", Value: 2},
		{Label: "pro/refunded", Value: 1},
		{Label: "ultimate/grace_period", Value: 1},
	}, res.DataItems[StatisticTypeTierStatusCount])
	assert.Equal(t, []StatisticResponseDataItem{{Value: 3}}, res.DataItems[StatisticTypeEntitledCount])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatistic_DailyValidationCount(t *testing.T) {
	svc, mock := newService(t)
	rows := sqlmock.NewRows([]string{"date", "label", "value"}).
		AddRow("2024-05-02", "success", 7).
		AddRow("2024-05-01", "success", 3)
	mock.ExpectQuery(`SELECT TO_CHAR\("timestamp", 'YYYY-MM-DD'\) as date, validation_result as label, count\(\*\) as value FROM "subscription_validation_log" WHERE .*"validation_result" = \$1`).
		WithArgs("success").
		WillReturnRows(rows)

	res, err := svc.GetStatistic(context.Background(), &StatisticRequest{
		Filters: []*types.CommonFilter{
			{Field: "validation_result", Operator: types.CommonFilterOperatorEq, Values: []any{"success"}},
		},
		DataItems: []*StatisticDataItem{
			{ID: StatisticTypeDailyValidationCount},
			{ID: StatisticTypeTierStatusCount},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []StatisticResponseDataItem{
		{Date: "2024-05-02", Label: "success", Value: 7},
		{Date: "2024-05-01", Label: "success", Value: 3},
	}, res.DataItems[StatisticTypeDailyValidationCount])

	// the validation_result filter does not apply to user counts
	items, ok := res.DataItems[StatisticTypeTierStatusCount]
	assert.True(t, ok)
	assert.Nil(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatistic_DailyNotificationCount(t *testing.T) {
	svc, mock := newService(t)
	rows := sqlmock.NewRows([]string{"date", "label", "value"}).AddRow("2024-05-02", "renewed", 12)
	mock.ExpectQuery(`FROM "app_store_notification" WHERE 1=1 GROUP BY TO_CHAR\("timestamp", 'YYYY-MM-DD'\),"?event_kind"? ORDER BY "date" DESC`).
		WillReturnRows(rows)

	res, err := svc.GetStatistic(context.Background(), &StatisticRequest{
		DataItems: []*StatisticDataItem{{ID: StatisticTypeDailyNotificationCount}},
	})
	require.NoError(t, err)
	assert.Equal(t, []StatisticResponseDataItem{{Date: "2024-05-02", Label: "renewed", Value: 12}},
		res.DataItems[StatisticTypeDailyNotificationCount])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatistic_Errors(t *testing.T) {
	t.Run("unknown filter field", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.GetStatistic(context.Background(), &StatisticRequest{
			Filters: []*types.CommonFilter{{Field: "password", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("unknown data item", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.GetStatistic(context.Background(), &StatisticRequest{
			DataItems: []*StatisticDataItem{{ID: "daily_gmv"}},
		})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("query failure", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectQuery(`FROM "subscription_validation_log"`).WillReturnError(errors.New("relation does not exist"))
		_, err := svc.GetStatistic(context.Background(), &StatisticRequest{
			DataItems: []*StatisticDataItem{{ID: StatisticTypeDailyValidationCount}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relation does not exist")
	})
}
