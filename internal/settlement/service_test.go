package settlement

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/internal/menu"
	"github.com/bitedash/bitedash-backend/internal/orders"
	"github.com/bitedash/bitedash-backend/internal/pickuptoken"
	"github.com/bitedash/bitedash-backend/internal/revenue"
	"github.com/bitedash/bitedash-backend/internal/wallet"
	"github.com/bitedash/bitedash-backend/pkg/config"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
	"github.com/bitedash/bitedash-backend/pkg/outbox"
)

const (
	payerID  = int64(100)
	vendorID = int64(200)
	orgID    = int64(300)
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db     *gorm.DB
	svc    *service
	wallet wallet.Service
	pickup pickuptoken.Service
}

func setupFixture(t *testing.T) fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserWallet{},
		&models.WalletTransaction{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.PlatformRevenueLog{},
		&models.PlatformWallet{},
		&models.OutboxEvent{},
	))

	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})
	runner := gormTxRunner{db: db}

	menuSvc, err := menu.NewService(menu.NewRepository(db))
	require.NoError(t, err)
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), runner)
	require.NoError(t, err)
	revenueSvc, err := revenue.NewService(revenue.NewRepository(db), runner)
	require.NoError(t, err)
	pickupSvc, err := pickuptoken.NewService(config.PickupConfig{
		SecretKey: "settlement-test-secret",
		MaxAge:    24 * time.Hour,
	})
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(db), logg)

	svc, err := NewService(
		menuSvc,
		walletSvc,
		revenueSvc,
		orders.NewRepository(db),
		runner,
		outboxSvc,
		pickupSvc,
		logg,
		nil,
		config.SettlementConfig{CommissionRate: "0.15"},
	)
	require.NoError(t, err)

	return fixture{db: db, svc: svc.(*service), wallet: walletSvc, pickup: pickupSvc}
}

func (f fixture) seedMenuItem(t *testing.T, name, price string, available bool) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		VendorID:    vendorID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsAvailable: available,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func (f fixture) seedWallet(t *testing.T, balance string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.wallet.Initialize(ctx, payerID)
	require.NoError(t, err)
	if balance != "0" {
		_, err = f.wallet.Credit(ctx, wallet.MutationInput{
			OwnerID:       payerID,
			Amount:        decimal.RequireFromString(balance),
			ReferenceType: enums.ReferenceTypeTopUp,
		})
		require.NoError(t, err)
	}
}

func TestPlaceOrderSettlesCompletely(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	burger := f.seedMenuItem(t, "Burger", "60.00", true)
	fries := f.seedMenuItem(t, "Fries", "20.00", true)
	f.seedWallet(t, "100.00")

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items: []ItemInput{
			{MenuItemID: burger.ID, Quantity: 1},
			{MenuItemID: fries.ID, Quantity: 2},
		},
		ClientTotal: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-\d{5}$`), order.OrderNumber)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, order.PlatformCommission.Equal(decimal.RequireFromString("15.00")))
	assert.True(t, order.VendorPayout.Equal(decimal.RequireFromString("85.00")))
	require.Len(t, order.Items, 2)

	// pickup credentials are usable straight away
	_, err = f.pickup.Verify(order.PickupToken, order.ID, order.OrderNumber)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), order.PickupOTP)

	// payer wallet charged down to zero with an unbroken chain
	w, err := f.wallet.Balance(ctx, payerID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	history, err := f.wallet.History(ctx, payerID, wallet.HistoryFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.TxnDirectionDebit, history[0].Direction)
	assert.True(t, history[0].BalanceBefore.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, history[0].BalanceAfter.IsZero())
	require.NotNil(t, history[0].ReferenceID)
	assert.Equal(t, order.ID, *history[0].ReferenceID)

	// creation audit entry has no previous status
	var audit []models.OrderStatusHistory
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&audit).Error)
	require.Len(t, audit, 1)
	assert.Nil(t, audit[0].PreviousStatus)
	assert.Equal(t, enums.OrderStatusPending, audit[0].NewStatus)

	// commission booked against the platform wallet
	var platform models.PlatformWallet
	require.NoError(t, f.db.First(&platform).Error)
	assert.True(t, platform.CommissionTotal.Equal(decimal.RequireFromString("15.00")))

	// created event queued for the publisher
	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestPlaceOrderRejectsInsufficientBalance(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	burger := f.seedMenuItem(t, "Burger", "100.00", true)
	f.seedWallet(t, "40.00")

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: burger.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("100.00"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "40.00", details["current_balance"])

	// the failed settlement leaves nothing behind
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&models.PlatformRevenueLog{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)

	w, err := f.wallet.Balance(ctx, payerID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("40.00")))
}

func TestPlaceOrderTotalTolerance(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	burger := f.seedMenuItem(t, "Burger", "10.00", true)
	f.seedWallet(t, "50.00")

	// off by more than a cent
	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: burger.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("10.02"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	// exactly one cent off still settles
	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: burger.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("10.01"),
	})
	require.NoError(t, err)
	// the wallet is charged the server side total, not the client's
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("10.00")))
}

func TestPlaceOrderRejectsUnavailableItem(t *testing.T) {
	f := setupFixture(t)

	soup := f.seedMenuItem(t, "Soup", "4.00", false)
	f.seedWallet(t, "50.00")

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: soup.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("4.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderCommissionRoundsHalfUp(t *testing.T) {
	f := setupFixture(t)

	// 9.90 x 0.15 = 1.485, which rounds up to 1.49
	item := f.seedMenuItem(t, "Salad", "9.90", true)
	f.seedWallet(t, "20.00")

	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: item.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("9.90"),
	})
	require.NoError(t, err)
	assert.True(t, order.PlatformCommission.Equal(decimal.RequireFromString("1.49")))
	assert.True(t, order.VendorPayout.Equal(decimal.RequireFromString("8.41")))
}

func TestPlaceOrderRetriesOrderNumberCollisions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	item := f.seedMenuItem(t, "Burger", "10.00", true)
	f.seedWallet(t, "50.00")

	// pin the clock and force the first generated suffix to collide
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return day }
	taken := fmt.Sprintf("ORD-%s-%05d", day.Format("20060102"), 11111)
	require.NoError(t, f.db.Create(&models.Order{
		OrderNumber:        taken,
		PayerID:            payerID,
		VendorID:           vendorID,
		OrganizationID:     orgID,
		TotalAmount:        decimal.RequireFromString("1.00"),
		CommissionRate:     decimal.RequireFromString("0.15"),
		PlatformCommission: decimal.RequireFromString("0.15"),
		VendorPayout:       decimal.RequireFromString("0.85"),
		Status:             enums.OrderStatusPending,
	}).Error)

	suffixes := []int{11111, 11111, 22222}
	calls := 0
	f.svc.numberRng = func() int {
		n := suffixes[calls%len(suffixes)]
		calls++
		return n
	}

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: item.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD-%s-%05d", day.Format("20060102"), 22222), order.OrderNumber)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	item := f.seedMenuItem(t, "Burger", "10.00", true)

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		VendorID:    vendorID,
		Items:       []ItemInput{{MenuItemID: item.ID, Quantity: 1}},
		ClientTotal: decimal.RequireFromString("10.00"),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:     payerID,
		VendorID:    vendorID,
		ClientTotal: decimal.Zero,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PayerID:     payerID,
		VendorID:    vendorID,
		Items:       []ItemInput{{MenuItemID: item.ID, Quantity: 0}},
		ClientTotal: decimal.RequireFromString("10.00"),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderWithoutWallet(t *testing.T) {
	f := setupFixture(t)

	item := f.seedMenuItem(t, "Burger", "10.00", true)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		PayerID:        payerID,
		VendorID:       vendorID,
		OrganizationID: orgID,
		Items:          []ItemInput{{MenuItemID: item.ID, Quantity: 1}},
		ClientTotal:    decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
