package orders

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/internal/pickuptoken"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
	"github.com/bitedash/bitedash-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pickupVerifier interface {
	Verify(token string, orderID int64, orderNumber string) (*pickuptoken.Claims, error)
	Decode(token string) (*pickuptoken.Claims, error)
}

// Service covers everything that happens to an order after settlement:
// lifecycle transitions, pickup verification, rating, and reads.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	VerifyPickup(ctx context.Context, input VerifyPickupInput) (*models.Order, error)
	Rate(ctx context.Context, input RateInput) (*models.Order, error)
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	LookupByPickupToken(ctx context.Context, token string, actorID int64, role enums.ActorRole) (*models.Order, error)
	ListByPayer(ctx context.Context, payerID int64, filter ListFilter) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID int64, filter ListFilter) ([]models.Order, error)
	History(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
	VendorRating(ctx context.Context, vendorID int64) (avg float64, count int64, err error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	pickup pickupVerifier
	logg   *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, pickup pickupVerifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if pickup == nil {
		return nil, fmt.Errorf("pickup verifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		pickup: pickup,
		logg:   logg,
	}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status").
			WithDetails(map[string]any{"status": string(input.Target)})
	}
	if input.ActorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.transitionTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transitionTx performs one compare-and-swap status change. The swap loses
// when another actor moved the order first; that surfaces as a state conflict
// rather than a silent double apply.
func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*models.Order, error) {
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}

	if err := authorizeLifecycleActor(order, input.ActorID, input.ActorRole); err != nil {
		return nil, err
	}

	prior := order.Status
	if prior.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state").
			WithDetails(map[string]any{"status": string(prior)})
	}
	if !prior.CanTransitionTo(input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": string(prior), "to": string(input.Target)})
	}

	won, err := repo.UpdateStatus(ctx, order.ID, prior, input.Target)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
			WithDetails(map[string]any{"expected": string(prior)})
	}

	previous := prior
	entry := &models.OrderStatusHistory{
		OrderID:        order.ID,
		PreviousStatus: &previous,
		NewStatus:      input.Target,
		ChangedBy:      input.ActorID,
		ChangedByRole:  input.ActorRole,
		Remarks:        input.Remarks,
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}

	order.Status = input.Target
	s.emitStatusChanged(ctx, tx, order, &previous, input)

	return order, nil
}

// emitStatusChanged queues the notification event under a savepoint. A broken
// outbox never blocks the transition itself.
func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, previous *enums.OrderStatus, input TransitionInput) {
	const sp = "sp_order_event"
	tx.SavePoint(sp)

	var prev *string
	if previous != nil {
		v := string(*previous)
		prev = &v
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
		Data: outbox.OrderStatusChangedData{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			PayerID:        order.PayerID,
			VendorID:       order.VendorID,
			PreviousStatus: prev,
			NewStatus:      string(order.Status),
		},
	})
	if err != nil {
		tx.RollbackTo(sp)
		logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
		s.logg.Warn(logCtx, "queueing status change event failed: "+err.Error())
	}
}

func (s *service) VerifyPickup(ctx context.Context, input VerifyPickupInput) (*models.Order, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.Token) == "" && strings.TrimSpace(input.OTP) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup token or otp required")
	}

	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeLifecycleActor(order, input.ActorID, input.ActorRole); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for pickup").
			WithDetails(map[string]any{"status": string(order.Status)})
	}

	if token := strings.TrimSpace(input.Token); token != "" {
		if _, err := s.pickup.Verify(token, order.ID, order.OrderNumber); err != nil {
			return nil, err
		}
	} else {
		otp := strings.TrimSpace(input.OTP)
		if order.PickupOTP == "" ||
			subtle.ConstantTimeCompare([]byte(otp), []byte(order.PickupOTP)) != 1 {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pickup otp mismatch")
		}
	}

	return s.Transition(ctx, TransitionInput{
		OrderID:   input.OrderID,
		Target:    enums.OrderStatusDelivered,
		ActorID:   input.ActorID,
		ActorRole: input.ActorRole,
		Remarks:   "pickup verified",
	})
}

func (s *service) Rate(ctx context.Context, input RateInput) (*models.Order, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}

	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PayerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the payer may rate an order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be rated").
			WithDetails(map[string]any{"status": string(order.Status)})
	}
	if order.Rating != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already rated")
	}

	won, err := s.repo.SetRating(ctx, order.ID, input.Rating, input.Feedback)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already rated")
	}

	order.Rating = &input.Rating
	order.Feedback = input.Feedback
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

// LookupByPickupToken resolves a scanned token to its order. The signature is
// checked before any database read so forged tokens cannot probe for orders.
func (s *service) LookupByPickupToken(ctx context.Context, token string, actorID int64, role enums.ActorRole) (*models.Order, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup token required")
	}

	claims, err := s.pickup.Decode(token)
	if err != nil {
		return nil, err
	}

	order, err := s.GetByNumber(ctx, claims.OrderNumber)
	if err != nil {
		return nil, err
	}
	if order.ID != claims.OrderID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pickup token does not match order")
	}
	if err := authorizeLifecycleActor(order, actorID, role); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListByPayer(ctx context.Context, payerID int64, filter ListFilter) ([]models.Order, error) {
	if payerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer id required")
	}
	return s.repo.ListByPayer(ctx, payerID, filter)
}

func (s *service) ListByVendor(ctx context.Context, vendorID int64, filter ListFilter) ([]models.Order, error) {
	if vendorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.ListByVendor(ctx, vendorID, filter)
}

func (s *service) History(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, orderID)
}

func (s *service) VendorRating(ctx context.Context, vendorID int64) (float64, int64, error) {
	if vendorID <= 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.VendorRatingStats(ctx, vendorID)
}

// authorizeLifecycleActor allows the order's vendor and privileged admins to
// drive the lifecycle. The payer never transitions their own order.
func authorizeLifecycleActor(order *models.Order, actorID int64, role enums.ActorRole) error {
	if actorID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if role.IsPrivileged() {
		return nil
	}
	if role == enums.ActorRoleVendor && order.VendorID == actorID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not change this order")
}
