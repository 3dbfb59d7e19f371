package schema

import "github.com/fatflowers/entitlement/pkg/types"

// Defaults returns the canonical record for a user that never subscribed.
func Defaults() types.SubscriptionRecord {
	return types.SubscriptionRecord{
		Tier:   types.SubscriptionTierFree,
		Status: types.SubscriptionStatusExpired,
	}
}

// IndexSpec describes an index the subscription queries rely on.
type IndexSpec struct {
	Table   string
	Name    string
	Columns []string
}

// RequiredIndexes lists the indexes created through the model tags. db.AutoMigrate checks
// them after migrating.
var RequiredIndexes = []IndexSpec{
	{Table: "users", Name: "idx_users_tier_status_expires", Columns: []string{"subscription_tier", "subscription_status", "subscription_expires_at"}},
	{Table: "users", Name: "idx_users_original_transaction_id", Columns: []string{"original_transaction_id"}},
	{Table: "subscription_validation_log", Name: "idx_validation_log_user_time", Columns: []string{"user_id", "timestamp"}},
	{Table: "app_store_notification", Name: "idx_notification_user_time", Columns: []string{"user_id", "timestamp"}},
}
