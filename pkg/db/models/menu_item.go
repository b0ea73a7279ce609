package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem backs the availability collaborator. Menu management itself lives
// outside this service; settlement only reads availability and display names.
//
// IsAvailable carries no gorm-level default: a column default would override
// an explicit false on insert because gorm omits zero values. The migration
// owns the DEFAULT TRUE for rows created outside this codebase.
type MenuItem struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	VendorID    int64           `gorm:"column:vendor_id;not null;index:ix_menu_items_vendor"`
	Name        string          `gorm:"column:name;size:255;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsAvailable bool            `gorm:"column:is_available;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
