package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppStoreNotification records every authenticated, well-formed webhook delivery.
type AppStoreNotification struct {
	ID                    string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	NotificationType      string         `gorm:"column:notification_type;type:varchar(64);not null" json:"notificationType"`
	Subtype               string         `gorm:"column:subtype;type:varchar(64)" json:"subtype"`
	OriginalTransactionID string         `gorm:"column:original_transaction_id;type:varchar(128);index" json:"originalTransactionId"`
	ProductID             string         `gorm:"column:product_id;type:varchar(128)" json:"productId"`
	UserID                *string        `gorm:"column:user_id;type:varchar(64);index:idx_notification_user_time,priority:1" json:"userId"`
	EventKind             string         `gorm:"column:event_kind;type:varchar(32)" json:"eventKind"`
	TraceID               string         `gorm:"column:trace_id;type:varchar(128)" json:"traceId"`
	Payload               datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Processed             bool           `gorm:"column:processed;not null" json:"processed"`
	Error                 *string        `gorm:"column:error;type:text" json:"error,omitempty"`
	Timestamp             time.Time      `gorm:"column:timestamp;not null;index:idx_notification_user_time,priority:2,sort:desc" json:"timestamp"`
	CreatedAt             time.Time      `json:"-"`
}

func (AppStoreNotification) TableName() string { return "app_store_notification" }
