package models

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"gorm.io/datatypes"
)

type SubscriptionChangeSource string

const (
	SubscriptionChangeSourceReceipt   SubscriptionChangeSource = "receipt"
	SubscriptionChangeSourceWebhook   SubscriptionChangeSource = "webhook"
	SubscriptionChangeSourceMigration SubscriptionChangeSource = "migration"
)

// SubscriptionLog records changes to a user's subscription record.
// Use case: troubleshooting.
type SubscriptionLog struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);index:idx_subscription_log_user_id,priority:1;not null" json:"userId"`
	Source SubscriptionChangeSource `gorm:"column:source;type:varchar(32);not null" json:"source"`
	// Before stores the record prior to the write.
	Before datatypes.JSONType[*types.SubscriptionRecord] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	// After stores the record that was written.
	After datatypes.JSONType[*types.SubscriptionRecord] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	// Extra stores context such as event kind and trace id.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
