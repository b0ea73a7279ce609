package wallet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.UserWallet{}, &models.WalletTransaction{}))
	return db
}

func newWalletService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestInitializeCreatesZeroBalanceWallet(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	wallet, err := svc.Initialize(ctx, 101)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
	assert.True(t, wallet.IsActive)

	_, err = svc.Initialize(ctx, 101)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestCreditAndDebitMaintainBalanceChain(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 7)
	require.NoError(t, err)

	credit, err := svc.Credit(ctx, MutationInput{
		OwnerID:       7,
		Amount:        decimal.RequireFromString("100.00"),
		ReferenceType: enums.ReferenceTypeTopUp,
		Description:   "initial topup",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", credit.BalanceBefore.String())
	assert.Equal(t, "100", credit.BalanceAfter.String())
	assert.Equal(t, int64(1), credit.Seq)

	debit, err := svc.Debit(ctx, MutationInput{
		OwnerID:       7,
		Amount:        decimal.RequireFromString("42.50"),
		ReferenceType: enums.ReferenceTypeOrderPayment,
		Description:   "order payment",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TxnDirectionDebit, debit.Direction)
	assert.True(t, debit.BalanceBefore.Equal(credit.BalanceAfter))
	assert.Equal(t, "57.5", debit.BalanceAfter.String())
	assert.Equal(t, int64(2), debit.Seq)

	wallet, err := svc.Balance(ctx, 7)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("57.50")))
}

func TestDebitRejectsInsufficientBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 9)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, MutationInput{OwnerID: 9, Amount: decimal.RequireFromString("40.00")})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, MutationInput{OwnerID: 9, Amount: decimal.RequireFromString("100.00")})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "40.00", details["current_balance"])

	// a failed debit must leave no trace
	wallet, err := svc.Balance(ctx, 9)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("40.00")))
	history, err := svc.History(ctx, 9, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMutationValidation(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 3)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, MutationInput{OwnerID: 3, Amount: decimal.Zero})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Credit(ctx, MutationInput{OwnerID: 3, Amount: decimal.RequireFromString("-5")})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Debit(ctx, MutationInput{OwnerID: 404, Amount: decimal.RequireFromString("1.00")})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestInactiveWalletRejectsMutations(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	wallet, err := svc.Initialize(ctx, 5)
	require.NoError(t, err)
	wallet.IsActive = false
	require.NoError(t, db.Save(wallet).Error)

	_, err = svc.Credit(ctx, MutationInput{OwnerID: 5, Amount: decimal.RequireFromString("10.00")})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestHistoryOrdersNewestFirst(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 11)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err = svc.Credit(ctx, MutationInput{OwnerID: 11, Amount: decimal.NewFromInt(int64(i))})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, 11, HistoryFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(3), history[0].Seq)
	assert.Equal(t, int64(2), history[1].Seq)
}

func TestHistoryDateRange(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 13)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, MutationInput{OwnerID: 13, Amount: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	history, err := svc.History(ctx, 13, HistoryFilter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, history)

	past := time.Now().Add(-time.Hour)
	history, err = svc.History(ctx, 13, HistoryFilter{From: &past, To: &future})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.History(ctx, 13, HistoryFilter{From: &future, To: &past})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSummaryTotals(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, 17)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, MutationInput{OwnerID: 17, Amount: decimal.RequireFromString("100.00")})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, MutationInput{OwnerID: 17, Amount: decimal.RequireFromString("25.50")})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, MutationInput{OwnerID: 17, Amount: decimal.RequireFromString("30.00")})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, 17)
	require.NoError(t, err)
	assert.True(t, summary.TotalCredits.Equal(decimal.RequireFromString("125.50")), "credits %s", summary.TotalCredits)
	assert.True(t, summary.TotalDebits.Equal(decimal.RequireFromString("30.00")), "debits %s", summary.TotalDebits)
	assert.True(t, summary.Wallet.Balance.Equal(decimal.RequireFromString("95.50")))
}
