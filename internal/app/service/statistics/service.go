package statistics

import (
	"context"
	"fmt"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Current user population
	StatisticTypeTierStatusCount StatisticType = "tier_status_count"
	StatisticTypeEntitledCount   StatisticType = "entitled_count"

	// Daily activity from the audit logs
	StatisticTypeDailyValidationCount   StatisticType = "daily_validation_count"
	StatisticTypeDailyNotificationCount StatisticType = "daily_notification_count"
)

// DefaultDataItems is served when a request names no data items.
var DefaultDataItems = []*StatisticDataItem{
	{ID: StatisticTypeTierStatusCount},
	{ID: StatisticTypeEntitledCount},
}

// validFilters lists, per filter field, the statistic types it applies to.
var validFilters = map[string][]StatisticType{
	"timestamp":         {StatisticTypeDailyValidationCount, StatisticTypeDailyNotificationCount},
	"validation_result": {StatisticTypeDailyValidationCount},
	"environment":       {StatisticTypeDailyValidationCount},
	"tier":              {StatisticTypeDailyValidationCount},
	"event_kind":        {StatisticTypeDailyNotificationCount},
	"notification_type": {StatisticTypeDailyNotificationCount},
	"processed":         {StatisticTypeDailyNotificationCount},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

// Validate rejects filters on fields no statistic knows about.
func (r *StatisticRequest) Validate() error {
	for _, f := range r.Filters {
		if f == nil {
			return apperrors.Validation("filter must not be null")
		}
		if _, ok := validFilters[f.Field]; !ok {
			return apperrors.Validation(fmt.Sprintf("unsupported filter field: %s", f.Field))
		}
		if err := f.Validate(); err != nil {
			return apperrors.Validation(err.Error())
		}
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return apperrors.Validation("invalid data item id")
		}
	}
	return nil
}

// applicable reports whether every filter of the request can be applied to statisticType.
func (r *StatisticRequest) applicable(statisticType StatisticType) bool {
	return lo.EveryBy(r.Filters, func(f *types.CommonFilter) bool {
		return lo.Contains(validFilters[f.Field], statisticType)
	})
}

// Build composes the WHERE clause from the request filters.
func (r *StatisticRequest) Build(builder clause.Builder) {
	if len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range r.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type StatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

var statisticTypes = []StatisticType{
	StatisticTypeTierStatusCount,
	StatisticTypeEntitledCount,
	StatisticTypeDailyValidationCount,
	StatisticTypeDailyNotificationCount,
}

// Service provides statistics operations
type Service struct {
	db    *gorm.DB
	store repository.Database
}

func New(db *gorm.DB, store repository.Database) *Service { return &Service{db: db, store: store} }

var Module = fx.Options(fx.Provide(New))

func (s *Service) getTierStatusCount(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	rows, err := s.store.CountUsersByTierStatus(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r repository.TierStatusCount, _ int) StatisticResponseDataItem {
		return StatisticResponseDataItem{Label: fmt.Sprintf("%s/%s", r.Tier, r.Status), Value: r.Count}
	}), nil
}

func (s *Service) getEntitledCount(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	rows, err := s.store.CountUsersByTierStatus(ctx)
	if err != nil {
		return nil, err
	}
	total := lo.SumBy(rows, func(r repository.TierStatusCount) int64 {
		rec := types.SubscriptionRecord{Tier: r.Tier, Status: r.Status}
		return lo.Ternary(rec.Entitled(), r.Count, 0)
	})
	return []StatisticResponseDataItem{{Value: total}}, nil
}

func (s *Service) getDailyValidationCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionValidationLog{}).TableName()).
		Select(`TO_CHAR("timestamp", 'YYYY-MM-DD') as date, validation_result as label, count(*) as value`).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group(`TO_CHAR("timestamp", 'YYYY-MM-DD')`).
		Group("validation_result").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNotificationCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.AppStoreNotification{}).TableName()).
		Select(`TO_CHAR("timestamp", 'YYYY-MM-DD') as date, event_kind as label, count(*) as value`).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group(`TO_CHAR("timestamp", 'YYYY-MM-DD')`).
		Group("event_kind").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeTierStatusCount:
		return s.getTierStatusCount(ctx, request)
	case StatisticTypeEntitledCount:
		return s.getEntitledCount(ctx, request)
	case StatisticTypeDailyValidationCount:
		return s.getDailyValidationCount(ctx, request)
	case StatisticTypeDailyNotificationCount:
		return s.getDailyNotificationCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistic computes every requested data item concurrently. Items that a request filter
// does not apply to are returned as null.
func (s *Service) GetStatistic(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if request == nil {
		request = &StatisticRequest{}
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if len(request.DataItems) == 0 {
		request.DataItems = DefaultDataItems
	}

	// Every goroutine sends exactly once; both channels are buffered for all of them.
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		go func(di *StatisticDataItem) {
			if !request.applicable(di.ID) {
				resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: nil}
				return
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- fmt.Errorf("statistic %s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	results := make(map[StatisticType][]StatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			return nil, err
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &StatisticResponse{DataItems: results}, nil
}
