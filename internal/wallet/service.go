package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/bitedash/bitedash-backend/pkg/db"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines wallet operations. Credit and Debit open their own
// transaction; CreditTx and DebitTx join a transaction the caller already
// holds, which is how settlement charges the payer atomically with the order
// insert.
type Service interface {
	Initialize(ctx context.Context, ownerID int64) (*models.UserWallet, error)
	Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, ownerID int64) (*models.UserWallet, error)
	History(ctx context.Context, ownerID int64, filter HistoryFilter) ([]models.WalletTransaction, error)
	Summary(ctx context.Context, ownerID int64) (*Summary, error)
}

// Summary is the wallet snapshot with lifetime credit and debit totals.
type Summary struct {
	Wallet       *models.UserWallet
	TotalCredits decimal.Decimal
	TotalDebits  decimal.Decimal
}

// MutationInput describes one balance change.
type MutationInput struct {
	OwnerID       int64
	Amount        decimal.Decimal
	ReferenceID   *int64
	ReferenceType enums.ReferenceType
	Description   string
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Initialize(ctx context.Context, ownerID int64) (*models.UserWallet, error) {
	if ownerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	wallet := &models.UserWallet{
		OwnerID:  ownerID,
		Balance:  decimal.Zero,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_user_wallets_owner") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet already exists for owner")
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		txn, err = s.CreditTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		txn, err = s.DebitTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, input, enums.TxnDirectionCredit)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, input, enums.TxnDirectionDebit)
}

// mutate applies one balance change under a row lock. The transaction record
// carries balance_before and balance_after so the history forms an unbroken
// chain per wallet.
func (s *service) mutate(ctx context.Context, tx *gorm.DB, input MutationInput, direction enums.TxnDirection) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.OwnerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amount": input.Amount.String()})
	}

	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindByOwnerForUpdate(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	if !wallet.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "wallet is inactive")
	}

	before := wallet.Balance
	var after decimal.Decimal
	switch direction {
	case enums.TxnDirectionCredit:
		after = before.Add(amount)
	case enums.TxnDirectionDebit:
		if before.LessThan(amount) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
				WithDetails(map[string]any{
					"current_balance": before.StringFixed(2),
					"required":        amount.StringFixed(2),
				})
		}
		after = before.Sub(amount)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown transaction direction")
	}

	wallet.Balance = after
	wallet.TxnSeq++
	if err := repo.Save(ctx, wallet); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Seq:           wallet.TxnSeq,
		Amount:        amount,
		Direction:     direction,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		Description:   input.Description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, ownerID int64) (*models.UserWallet, error) {
	if ownerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) History(ctx context.Context, ownerID int64, filter HistoryFilter) ([]models.WalletTransaction, error) {
	wallet, err := s.Balance(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "history range end precedes start")
	}
	return s.repo.ListTransactions(ctx, wallet.ID, filter)
}

func (s *service) Summary(ctx context.Context, ownerID int64) (*Summary, error) {
	wallet, err := s.Balance(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	credits, debits, err := s.repo.TransactionTotals(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	return &Summary{Wallet: wallet, TotalCredits: credits, TotalDebits: debits}, nil
}
