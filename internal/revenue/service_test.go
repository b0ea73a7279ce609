package revenue

import (
	"context"
	"fmt"
	"testing"

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

func setupRevenueTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.PlatformRevenueLog{}, &models.PlatformWallet{}))
	return db
}

func newRevenueService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestRecordAppendsLogAndUpdatesTotals(t *testing.T) {
	db := setupRevenueTestDB(t)
	svc := newRevenueService(t, db)
	ctx := context.Background()

	orderID := int64(88)
	log, err := svc.Record(ctx, RecordInput{
		Type:        enums.RevenueTypeCommission,
		Amount:      decimal.RequireFromString("15.00"),
		OrderID:     &orderID,
		Description: "commission for ORD-20260310-00088",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RevenueTypeCommission, log.Type)

	_, err = svc.Record(ctx, RecordInput{
		Type:   enums.RevenueTypeSubscription,
		Amount: decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)

	wallet, err := svc.PlatformWallet(ctx)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("24.99")))
	assert.True(t, wallet.CommissionTotal.Equal(decimal.RequireFromString("15.00")))
	assert.True(t, wallet.SubscriptionTotal.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, wallet.GatewayMarkupTotal.IsZero())
}

func TestRecordValidation(t *testing.T) {
	db := setupRevenueTestDB(t)
	svc := newRevenueService(t, db)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{
		Type:   enums.RevenueType("TIPS"),
		Amount: decimal.NewFromInt(1),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Record(ctx, RecordInput{
		Type:   enums.RevenueTypeCommission,
		Amount: decimal.RequireFromString("-1.00"),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestLogsFilterByTypeAndOrder(t *testing.T) {
	db := setupRevenueTestDB(t)
	svc := newRevenueService(t, db)
	ctx := context.Background()

	orderA := int64(1)
	orderB := int64(2)
	for _, input := range []RecordInput{
		{Type: enums.RevenueTypeCommission, Amount: decimal.NewFromInt(5), OrderID: &orderA},
		{Type: enums.RevenueTypeCommission, Amount: decimal.NewFromInt(6), OrderID: &orderB},
		{Type: enums.RevenueTypePromotion, Amount: decimal.NewFromInt(7), OrderID: &orderA},
	} {
		_, err := svc.Record(ctx, input)
		require.NoError(t, err)
	}

	commission := enums.RevenueTypeCommission
	logs, err := svc.Logs(ctx, LogFilter{Type: &commission})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = svc.Logs(ctx, LogFilter{OrderID: &orderA})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = svc.Logs(ctx, LogFilter{Type: &commission, OrderID: &orderA})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Amount.Equal(decimal.NewFromInt(5)))
}

func TestPlatformWalletBeforeFirstRevenueIsEmpty(t *testing.T) {
	db := setupRevenueTestDB(t)
	svc := newRevenueService(t, db)

	wallet, err := svc.PlatformWallet(context.Background())
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
}
