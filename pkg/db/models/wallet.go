package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserWallet holds the spendable balance for a single owner. Rows are never
// deleted; inactive wallets are flagged instead.
type UserWallet struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID   int64           `gorm:"column:owner_id;not null;uniqueIndex:ux_user_wallets_owner"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`
	TxnSeq    int64           `gorm:"column:txn_seq;not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
