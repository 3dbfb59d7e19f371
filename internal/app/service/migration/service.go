// Package migration backfills subscription columns that were never written.
package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultPageSize = 100

type Result struct {
	Success        bool   `json:"success"`
	MigratedCount  int    `json:"migratedCount"`
	TotalProcessed int    `json:"totalProcessed"`
	Error          string `json:"error,omitempty"`
}

type Service struct {
	db        repository.Database
	validator *schema.Validator
	pageSize  int
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewService(cfg *config.Config, db repository.Database, validator *schema.Validator, log *zap.SugaredLogger) *Service {
	return &Service{
		db:        db,
		validator: validator,
		pageSize:  lo.Ternary(cfg.Migration.PageSize > 0, cfg.Migration.PageSize, defaultPageSize),
		log:       log,
		now:       time.Now,
	}
}

// Migrate walks all users in id order and fills missing subscription columns with defaults.
// Each page is committed on its own, so a failed run leaves earlier pages applied and a
// re-run picks up whatever is still missing. Stored values are never overwritten.
func (s *Service) Migrate(ctx context.Context) *Result {
	start := s.now()
	log := logctx.FromCtx(ctx, s.log)
	res := &Result{}
	defaults := schema.Defaults()

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return s.abort(log, res, start, fmt.Errorf("migration cancelled: %w", err))
		}
		users, err := s.db.ScanUsers(ctx, cursor, s.pageSize)
		if err != nil {
			return s.abort(log, res, start, fmt.Errorf("failed to scan users after %q: %w", cursor, err))
		}
		if len(users) == 0 {
			break
		}

		fills := make([]repository.FieldFill, 0, len(users))
		for _, u := range users {
			cols := missingColumns(u, defaults)
			if len(cols) == 0 {
				continue
			}
			if err := s.validator.Validate(u.SubscriptionRecord()); err != nil {
				log.Warnw("skipping user whose backfilled record would be invalid", "user_id", u.ID, "error", err)
				continue
			}
			fills = append(fills, repository.FieldFill{UserID: u.ID, Columns: cols})
		}

		if err := s.db.FillMissing(ctx, fills); err != nil {
			res.TotalProcessed += len(users)
			return s.abort(log, res, start, fmt.Errorf("failed to backfill page after %q: %w", cursor, err))
		}
		s.saveLogs(ctx, log, fills)

		res.MigratedCount += len(fills)
		res.TotalProcessed += len(users)
		cursor = users[len(users)-1].ID
		log.Infow("backfilled page", "cursor", cursor, "migrated", len(fills), "processed", len(users))

		if len(users) < s.pageSize {
			break
		}
	}

	res.Success = true
	metrics.ObserveSince(metrics.MetricsBusinessProcess, start, "migration", "success")
	log.Infow("subscription backfill finished", "migrated_count", res.MigratedCount, "total_processed", res.TotalProcessed)
	return res
}

func (s *Service) abort(log *zap.SugaredLogger, res *Result, start time.Time, err error) *Result {
	log.Errorw("subscription backfill failed", "error", err, "migrated_count", res.MigratedCount, "total_processed", res.TotalProcessed)
	metrics.ObserveSince(metrics.MetricsBusinessProcess, start, "migration", "failure")
	res.Success = false
	res.Error = err.Error()
	return res
}

// Audit reports stored records that break the subscription rules.
func (s *Service) Audit(ctx context.Context) (*repository.AuditReport, error) {
	report, err := s.db.Audit(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to audit subscription data: %w", err)
	}
	return report, nil
}

func missingColumns(u *models.User, defaults types.SubscriptionRecord) map[string]any {
	cols := map[string]any{}
	if u.SubscriptionTier == nil {
		cols["subscription_tier"] = string(defaults.Tier)
	}
	if u.SubscriptionStatus == nil {
		cols["subscription_status"] = string(defaults.Status)
	}
	if u.AutoRenewStatus == nil {
		cols["auto_renew_status"] = defaults.AutoRenewStatus
	}
	if u.IsTrialPeriod == nil {
		cols["is_trial_period"] = defaults.IsTrialPeriod
	}
	return cols
}

func (s *Service) saveLogs(ctx context.Context, log *zap.SugaredLogger, fills []repository.FieldFill) {
	for _, f := range fills {
		filled := lo.Keys(f.Columns)
		sort.Strings(filled)
		entry := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: f.UserID,
			Source: models.SubscriptionChangeSourceMigration,
			Extra:  datatypes.JSONMap{"filled_columns": filled},
		}
		if err := s.db.AppendSubscriptionLog(ctx, entry); err != nil {
			log.Errorw("failed to save backfill log", "user_id", f.UserID, "error", err)
		}
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
