package subscription

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MaxWriteAttempts bounds the optimistic read-modify-write loop.
const MaxWriteAttempts = 3

type Service struct {
	db        repository.Database
	validator *schema.Validator
	log       *zap.SugaredLogger
}

func NewService(db repository.Database, validator *schema.Validator, log *zap.SugaredLogger) *Service {
	return &Service{db: db, validator: validator, log: log}
}

// Change describes one write to a user's subscription record.
type Change struct {
	Source models.SubscriptionChangeSource
	Extra  map[string]any
	// Mutate derives the next record from the freshly read one.
	Mutate func(current types.SubscriptionRecord) types.SubscriptionRecord
}

// Update applies change to the user's record, re-reading and retrying when a concurrent
// writer wins. loaded may be a row the caller already read; it is used for the first attempt.
// A candidate that fails validation is returned as *schema.InvalidRecordError and not written.
func (s *Service) Update(ctx context.Context, userID string, loaded *models.User, change Change) (types.SubscriptionRecord, error) {
	user := loaded
	var err error
	for attempt := 0; attempt < MaxWriteAttempts; attempt++ {
		if user == nil {
			user, err = s.db.GetUser(ctx, userID)
			if err != nil {
				return types.SubscriptionRecord{}, err
			}
		}

		before := user.SubscriptionRecord()
		next := change.Mutate(before)
		if reflect.DeepEqual(before, next) {
			return next, nil
		}
		if err := s.validator.Validate(next); err != nil {
			return before, fmt.Errorf("validate subscription record: %w", err)
		}

		err = s.db.UpdateSubscription(ctx, userID, user.SubscriptionVersion, next)
		if errors.Is(err, repository.ErrVersionConflict) {
			logctx.FromCtx(ctx, s.log).Infow("subscription version conflict, retrying", "user_id", userID, "attempt", attempt+1)
			user = nil
			continue
		}
		if err != nil {
			return before, apperrors.Persistence(err)
		}

		s.saveLog(ctx, userID, change, before, next)
		return next, nil
	}
	return types.SubscriptionRecord{}, apperrors.Persistence(fmt.Errorf("update subscription after %d attempts: %w", MaxWriteAttempts, repository.ErrVersionConflict))
}

// saveLog records the change for troubleshooting. Errors are logged but not returned.
func (s *Service) saveLog(ctx context.Context, userID string, change Change, before, after types.SubscriptionRecord) {
	entry := &models.SubscriptionLog{
		UserID: userID,
		Source: change.Source,
		Before: datatypes.NewJSONType(&before),
		After:  datatypes.NewJSONType(&after),
		Extra:  datatypes.JSONMap(change.Extra),
	}
	if entry.Extra == nil {
		entry.Extra = datatypes.JSONMap{}
	}
	if err := s.db.AppendSubscriptionLog(ctx, entry); err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
	}
}

// Status is the caller-facing view of a record.
type Status struct {
	types.SubscriptionRecord
	Entitled bool `json:"entitled"`
}

func (s *Service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := user.SubscriptionRecord()
	return &Status{SubscriptionRecord: r, Entitled: r.Entitled()}, nil
}
