package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// Order is a settled cafeteria order. Status changes only through the order
// state machine; rating and feedback are write-once after delivery.
type Order struct {
	ID                 int64                `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber        string               `gorm:"column:order_number;size:50;not null;uniqueIndex:ux_orders_order_number"`
	PayerID            int64                `gorm:"column:payer_id;not null;index:ix_orders_payer"`
	VendorID           int64                `gorm:"column:vendor_id;not null;index:ix_orders_vendor"`
	OrganizationID     int64                `gorm:"column:organization_id;not null"`
	TotalAmount        decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CommissionRate     decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	PlatformCommission decimal.Decimal      `gorm:"column:platform_commission;type:numeric(12,2);not null"`
	VendorPayout       decimal.Decimal      `gorm:"column:vendor_payout;type:numeric(12,2);not null"`
	Status             enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PickupToken        string               `gorm:"column:pickup_token;size:500"`
	PickupOTP          string               `gorm:"column:pickup_otp;size:6"`
	Rating             *int                 `gorm:"column:rating"`
	Feedback           *string              `gorm:"column:feedback"`
	Items              []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory      []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
