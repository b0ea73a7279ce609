package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// PlatformRevenueLog is an immutable record of one platform revenue event.
type PlatformRevenueLog struct {
	ID             int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Type           enums.RevenueType `gorm:"column:type;type:text;not null;index:ix_platform_revenue_logs_type"`
	Amount         decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	OrderID        *int64            `gorm:"column:order_id;index:ix_platform_revenue_logs_order"`
	VendorID       *int64            `gorm:"column:vendor_id"`
	OrganizationID *int64            `gorm:"column:organization_id"`
	Description    string            `gorm:"column:description"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
