package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// HistoryFilter narrows a wallet's transaction listing. From and To bound the
// created_at timestamp; either side may be nil.
type HistoryFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository manages persistence for wallets and their transaction history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.UserWallet) error
	FindByOwner(ctx context.Context, ownerID int64) (*models.UserWallet, error)
	FindByOwnerForUpdate(ctx context.Context, ownerID int64) (*models.UserWallet, error)
	Save(ctx context.Context, wallet *models.UserWallet) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID int64, filter HistoryFilter) ([]models.WalletTransaction, error)
	TransactionTotals(ctx context.Context, walletID int64) (credits, debits decimal.Decimal, err error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.UserWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByOwner(ctx context.Context, ownerID int64) (*models.UserWallet, error) {
	var wallet models.UserWallet
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByOwnerForUpdate locks the wallet row for the duration of the caller's
// transaction. Concurrent debits against the same wallet serialize here.
// SQLite takes a database level write lock instead, so the clause is
// postgres only.
func (r *repository) FindByOwnerForUpdate(ctx context.Context, ownerID int64) (*models.UserWallet, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var wallet models.UserWallet
	if err := query.
		Where("owner_id = ?", ownerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Save(ctx context.Context, wallet *models.UserWallet) error {
	return r.db.WithContext(ctx).Save(wallet).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID int64, filter HistoryFilter) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("seq DESC")
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) TransactionTotals(ctx context.Context, walletID int64) (decimal.Decimal, decimal.Decimal, error) {
	var rows []struct {
		Direction enums.TxnDirection
		Total     decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("direction, COALESCE(SUM(amount), 0) AS total").
		Where("wallet_id = ?", walletID).
		Group("direction").
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	credits, debits := decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch row.Direction {
		case enums.TxnDirectionCredit:
			credits = row.Total
		case enums.TxnDirectionDebit:
			debits = row.Total
		}
	}
	return credits, debits, nil
}
