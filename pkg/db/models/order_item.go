package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one cart line frozen at settlement time. Subtotal is always
// recomputed server-side as Quantity x UnitPrice.
type OrderItem struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    int64           `gorm:"column:order_id;not null;index:ix_order_items_order"`
	MenuItemID int64           `gorm:"column:menu_item_id;not null"`
	Name       string          `gorm:"column:name;size:255"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
