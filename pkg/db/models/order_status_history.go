package models

import (
	"time"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// OrderStatusHistory is an append-only audit entry for one status change.
// PreviousStatus is nil for the creation entry.
type OrderStatusHistory struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        int64              `gorm:"column:order_id;not null;index:ix_order_status_history_order"`
	PreviousStatus *enums.OrderStatus `gorm:"column:previous_status;type:text"`
	NewStatus      enums.OrderStatus  `gorm:"column:new_status;type:text;not null"`
	ChangedBy      int64              `gorm:"column:changed_by;not null"`
	ChangedByRole  enums.ActorRole    `gorm:"column:changed_by_role;type:text;not null"`
	Remarks        string             `gorm:"column:remarks"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
