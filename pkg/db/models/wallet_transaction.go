package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// WalletTransaction is the immutable record of one wallet mutation. Seq is the
// wallet-local sequence number; BalanceAfter of entry N equals BalanceBefore
// of entry N+1.
type WalletTransaction struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	WalletID      int64               `gorm:"column:wallet_id;not null;index:ix_wallet_transactions_wallet"`
	Seq           int64               `gorm:"column:seq;not null"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Direction     enums.TxnDirection  `gorm:"column:direction;type:text;not null"`
	BalanceBefore decimal.Decimal     `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal     `gorm:"column:balance_after;type:numeric(12,2);not null"`
	ReferenceID   *int64              `gorm:"column:reference_id"`
	ReferenceType enums.ReferenceType `gorm:"column:reference_type;type:text"`
	Description   string              `gorm:"column:description"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
