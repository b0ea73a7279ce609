package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformWallet is the single-row aggregate of platform revenue. It tracks
// running totals per revenue type rather than a spendable balance.
type PlatformWallet struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Balance            decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
	CommissionTotal    decimal.Decimal `gorm:"column:commission_total;type:numeric(14,2);not null"`
	GatewayMarkupTotal decimal.Decimal `gorm:"column:gateway_markup_total;type:numeric(14,2);not null"`
	PromotionTotal     decimal.Decimal `gorm:"column:promotion_total;type:numeric(14,2);not null"`
	SubscriptionTotal  decimal.Decimal `gorm:"column:subscription_total;type:numeric(14,2);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
