package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/fx"
)

var (
	dateFields = []string{"expiresAt", "lastValidationAt", "gracePeriodExpiresAt", "trialExpiresAt", "refundedAt"}
	boolFields = []string{"autoRenewStatus", "isTrialPeriod"}
)

// InvalidRecordError lists every rule a candidate record breaks.
type InvalidRecordError struct {
	Errors []string
}

func (e *InvalidRecordError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// Validator checks subscription records against the enum and type rules and the
// cross-field invariants. It runs before every write.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(recordSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile subscription schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

func recordSchema() map[string]any {
	props := map[string]any{
		"tier":                  map[string]any{"type": "string", "enum": lo.Map(types.SubscriptionTiers, func(t types.SubscriptionTier, _ int) any { return string(t) })},
		"status":                map[string]any{"type": "string", "enum": lo.Map(types.SubscriptionStatuses, func(s types.SubscriptionStatus, _ int) any { return string(s) })},
		"originalTransactionId": map[string]any{"type": []any{"string", "null"}},
	}
	for _, f := range dateFields {
		props[f] = map[string]any{"type": []any{"string", "null"}, "format": "date-time"}
	}
	for _, f := range boolFields {
		props[f] = map[string]any{"type": "boolean"}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"required":   []any{"tier", "status"},
		"properties": props,
	}
}

// Validate returns an *InvalidRecordError when r is not a storable record.
func (v *Validator) Validate(r types.SubscriptionRecord) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal subscription record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal subscription record: %w", err)
	}
	msgs, err := v.ValidateDocument(doc)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		msgs = invariantErrors(r)
	}
	if len(msgs) > 0 {
		return &InvalidRecordError{Errors: msgs}
	}
	return nil
}

// ValidateDocument checks a loosely typed record, as read from JSON, against the type rules.
func (v *Validator) ValidateDocument(doc map[string]any) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate subscription record: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	msgs := lo.Uniq(lo.Map(result.Errors(), func(e gojsonschema.ResultError, _ int) string {
		return describe(e)
	}))
	sort.Strings(msgs)
	return msgs, nil
}

func describe(e gojsonschema.ResultError) string {
	field := e.Field()
	switch {
	case e.Type() == "required":
		return fmt.Sprintf("%v is required", e.Details()["property"])
	case field == "tier":
		return fmt.Sprintf("Invalid subscription tier: %v", e.Value())
	case field == "status":
		return fmt.Sprintf("Invalid subscription status: %v", e.Value())
	case lo.Contains(dateFields, field):
		return fmt.Sprintf("%s must be a Date object", field)
	case lo.Contains(boolFields, field):
		return fmt.Sprintf("%s must be a boolean", field)
	default:
		return e.String()
	}
}

func invariantErrors(r types.SubscriptionRecord) []string {
	var msgs []string
	if r.Tier == types.SubscriptionTierFree {
		switch r.Status {
		case types.SubscriptionStatusExpired, types.SubscriptionStatusCancelled, types.SubscriptionStatusRefunded:
		default:
			msgs = append(msgs, fmt.Sprintf("free tier cannot have status %s", r.Status))
		}
	}
	if r.Status == types.SubscriptionStatusActive && r.ExpiresAt == nil {
		msgs = append(msgs, "active status requires expiresAt")
	}
	return msgs
}

var Module = fx.Options(
	fx.Provide(NewValidator),
)
