package revenue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordInput describes one platform revenue event.
type RecordInput struct {
	Type           enums.RevenueType
	Amount         decimal.Decimal
	OrderID        *int64
	VendorID       *int64
	OrganizationID *int64
	Description    string
}

// Service records platform revenue and serves revenue reads. RecordTx joins
// the caller's transaction so a revenue entry and its source operation commit
// together.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.PlatformRevenueLog, error)
	RecordTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.PlatformRevenueLog, error)
	PlatformWallet(ctx context.Context) (*models.PlatformWallet, error)
	Logs(ctx context.Context, filter LogFilter) ([]models.PlatformRevenueLog, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a revenue service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("revenue repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.PlatformRevenueLog, error) {
	var log *models.PlatformRevenueLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		log, err = s.RecordTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.PlatformRevenueLog, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid revenue type").
			WithDetails(map[string]any{"type": string(input.Type)})
	}
	amount := input.Amount.Round(2)
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "revenue amount must not be negative")
	}

	repo := s.repo.WithTx(tx)

	log := &models.PlatformRevenueLog{
		Type:           input.Type,
		Amount:         amount,
		OrderID:        input.OrderID,
		VendorID:       input.VendorID,
		OrganizationID: input.OrganizationID,
		Description:    input.Description,
	}
	if err := repo.CreateLog(ctx, log); err != nil {
		return nil, err
	}

	wallet, err := repo.PlatformWalletForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	applyRevenue(wallet, input.Type, amount)
	if err := repo.SavePlatformWallet(ctx, wallet); err != nil {
		return nil, err
	}

	return log, nil
}

func (s *service) PlatformWallet(ctx context.Context) (*models.PlatformWallet, error) {
	return s.repo.PlatformWallet(ctx)
}

func (s *service) Logs(ctx context.Context, filter LogFilter) ([]models.PlatformRevenueLog, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid revenue type filter")
	}
	return s.repo.ListLogs(ctx, filter)
}

func applyRevenue(wallet *models.PlatformWallet, revenueType enums.RevenueType, amount decimal.Decimal) {
	wallet.Balance = wallet.Balance.Add(amount)
	switch revenueType {
	case enums.RevenueTypeCommission:
		wallet.CommissionTotal = wallet.CommissionTotal.Add(amount)
	case enums.RevenueTypeGatewayMarkup:
		wallet.GatewayMarkupTotal = wallet.GatewayMarkupTotal.Add(amount)
	case enums.RevenueTypePromotion:
		wallet.PromotionTotal = wallet.PromotionTotal.Add(amount)
	case enums.RevenueTypeSubscription:
		wallet.SubscriptionTotal = wallet.SubscriptionTotal.Add(amount)
	}
}
