package settlement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/internal/menu"
	"github.com/bitedash/bitedash-backend/internal/orders"
	"github.com/bitedash/bitedash-backend/internal/revenue"
	"github.com/bitedash/bitedash-backend/internal/wallet"
	"github.com/bitedash/bitedash-backend/pkg/config"
	dbpkg "github.com/bitedash/bitedash-backend/pkg/db"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
	"github.com/bitedash/bitedash-backend/pkg/metrics"
	"github.com/bitedash/bitedash-backend/pkg/outbox"
)

// totalTolerance is the largest client/server total discrepancy that still
// settles, covering float rounding on the client side.
var totalTolerance = decimal.RequireFromString("0.01")

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pickupIssuer interface {
	Issue(orderID int64, orderNumber string) (string, error)
	GenerateOTP() (string, error)
}

// ItemInput is one requested cart line.
type ItemInput struct {
	MenuItemID int64
	Quantity   int
}

// PlaceOrderInput carries everything needed to settle one order.
type PlaceOrderInput struct {
	PayerID        int64
	VendorID       int64
	OrganizationID int64
	Items          []ItemInput
	// ClientTotal is the amount the ordering client displayed. It must
	// match the server side total within totalTolerance.
	ClientTotal decimal.Decimal
}

// Service is the order settlement orchestrator. PlaceOrder runs the whole
// pipeline in one transaction: availability, pricing, the order row with its
// pickup credentials, the commission entry, the payer debit, the audit entry,
// and the created event.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
}

type service struct {
	menu       menu.Service
	wallet     wallet.Service
	revenue    revenue.Service
	orders     orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	pickup     pickupIssuer
	logg       *logger.Logger
	metrics    *metrics.SettlementMetrics
	commission decimal.Decimal

	now       func() time.Time
	numberRng func() int
}

// NewService builds the settlement orchestrator.
func NewService(
	menuSvc menu.Service,
	walletSvc wallet.Service,
	revenueSvc revenue.Service,
	ordersRepo orders.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	pickup pickupIssuer,
	logg *logger.Logger,
	settlementMetrics *metrics.SettlementMetrics,
	cfg config.SettlementConfig,
) (Service, error) {
	if menuSvc == nil {
		return nil, fmt.Errorf("menu service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if revenueSvc == nil {
		return nil, fmt.Errorf("revenue service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if pickup == nil {
		return nil, fmt.Errorf("pickup issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	rate := cfg.CommissionRateDecimal()
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate %s out of range", rate)
	}

	return &service{
		menu:       menuSvc,
		wallet:     walletSvc,
		revenue:    revenueSvc,
		orders:     ordersRepo,
		tx:         tx,
		outbox:     outboxSvc,
		pickup:     pickup,
		logg:       logg,
		metrics:    settlementMetrics,
		commission: rate,
		now:        time.Now,
		numberRng:  func() int { return rand.IntN(100000) },
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	start := s.now()
	order, err := s.placeOrder(ctx, input)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.metrics.ObserveDuration("rejected", elapsed)
		s.metrics.IncRejected(rejectionReason(err))
		return nil, err
	}

	s.metrics.ObserveDuration("placed", elapsed)
	s.metrics.IncPlaced()
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.PayerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payer identity missing")
	}
	if input.VendorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"menu_item_id": item.MenuItemID})
		}
	}

	itemIDs := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		itemIDs = append(itemIDs, item.MenuItemID)
	}
	menuItems, err := s.menu.ResolveForOrder(ctx, input.VendorID, itemIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderItem, 0, len(input.Items))
	total := decimal.Zero
	for _, item := range input.Items {
		menuItem := menuItems[item.MenuItemID]
		subtotal := menuItem.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(subtotal)
		lines = append(lines, models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   item.Quantity,
			UnitPrice:  menuItem.Price,
			Subtotal:   subtotal,
		})
	}
	total = total.Round(2)

	if total.Sub(input.ClientTotal).Abs().GreaterThan(totalTolerance) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total mismatch").
			WithDetails(map[string]any{
				"expected": total.StringFixed(2),
				"received": input.ClientTotal.StringFixed(2),
			})
	}

	commission := total.Mul(s.commission).Round(2)
	payout := total.Sub(commission)

	var placed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.persistOrder(ctx, tx, input, lines, total, commission, payout)
		if err != nil {
			return err
		}

		s.recordCommission(ctx, tx, order)

		orderID := order.ID
		if _, err := s.wallet.DebitTx(ctx, tx, wallet.MutationInput{
			OwnerID:       input.PayerID,
			Amount:        total,
			ReferenceID:   &orderID,
			ReferenceType: enums.ReferenceTypeOrderPayment,
			Description:   "payment for " + order.OrderNumber,
		}); err != nil {
			return err
		}

		if err := s.orders.WithTx(tx).AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:       order.ID,
			NewStatus:     enums.OrderStatusPending,
			ChangedBy:     input.PayerID,
			ChangedByRole: enums.ActorRoleEmployee,
			Remarks:       "order placed",
		}); err != nil {
			return err
		}

		s.emitOrderCreated(ctx, tx, order, input.PayerID)

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNumber(ctx, placed.OrderNumber)
	s.logg.Info(logCtx, "order settled")
	return placed, nil
}

// persistOrder inserts the order with a fresh number, retrying on number
// collisions, then mints and stores the pickup credentials.
func (s *service) persistOrder(
	ctx context.Context,
	tx *gorm.DB,
	input PlaceOrderInput,
	lines []models.OrderItem,
	total, commission, payout decimal.Decimal,
) (*models.Order, error) {
	repo := s.orders.WithTx(tx)

	// each attempt runs under a savepoint so a number collision does not
	// poison the enclosing transaction
	const sp = "sp_order_insert"
	var order *models.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		candidate := &models.Order{
			OrderNumber:        s.generateOrderNumber(),
			PayerID:            input.PayerID,
			VendorID:           input.VendorID,
			OrganizationID:     input.OrganizationID,
			TotalAmount:        total,
			CommissionRate:     s.commission,
			PlatformCommission: commission,
			VendorPayout:       payout,
			Status:             enums.OrderStatusPending,
			Items:              cloneLines(lines),
		}
		tx.SavePoint(sp)
		err := repo.Create(ctx, candidate)
		if err == nil {
			order = candidate
			break
		}
		if !dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			return nil, err
		}
		tx.RollbackTo(sp)
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate order number")
	}

	token, err := s.pickup.Issue(order.ID, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	otp, err := s.pickup.GenerateOTP()
	if err != nil {
		return nil, err
	}
	if err := repo.SetPickupCredentials(ctx, order.ID, token, otp); err != nil {
		return nil, err
	}
	order.PickupToken = token
	order.PickupOTP = otp

	return order, nil
}

// recordCommission books platform revenue under a savepoint. A failed
// commission entry is logged and skipped; it must not void the order.
func (s *service) recordCommission(ctx context.Context, tx *gorm.DB, order *models.Order) {
	const sp = "sp_commission"
	tx.SavePoint(sp)

	orderID := order.ID
	vendorID := order.VendorID
	orgID := order.OrganizationID
	_, err := s.revenue.RecordTx(ctx, tx, revenue.RecordInput{
		Type:           enums.RevenueTypeCommission,
		Amount:         order.PlatformCommission,
		OrderID:        &orderID,
		VendorID:       &vendorID,
		OrganizationID: &orgID,
		Description:    "commission for " + order.OrderNumber,
	})
	if err != nil {
		tx.RollbackTo(sp)
		logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
		s.logg.Warn(logCtx, "recording commission failed: "+err.Error())
	}
}

// emitOrderCreated queues the created event under a savepoint; a broken
// outbox never voids a settled order.
func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, payerID int64) {
	const sp = "sp_created_event"
	tx.SavePoint(sp)

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: payerID, Role: enums.ActorRoleEmployee},
		Data: outbox.OrderCreatedData{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			PayerID:     order.PayerID,
			VendorID:    order.VendorID,
			TotalAmount: order.TotalAmount.StringFixed(2),
			Status:      string(order.Status),
		},
	})
	if err != nil {
		tx.RollbackTo(sp)
		logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
		s.logg.Warn(logCtx, "queueing order created event failed: "+err.Error())
	}
}

func (s *service) generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%05d", s.now().Format("20060102"), s.numberRng())
}

func cloneLines(lines []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(lines))
	copy(out, lines)
	return out
}

func rejectionReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeStateConflict:
		return "unavailable"
	case pkgerrors.CodeConflict:
		return "insufficient_balance"
	case pkgerrors.CodeUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}
