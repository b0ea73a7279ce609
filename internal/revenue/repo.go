package revenue

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// LogFilter narrows revenue log listings.
type LogFilter struct {
	Type    *enums.RevenueType
	OrderID *int64
	Limit   int
	Offset  int
}

// Repository manages persistence for platform revenue records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLog(ctx context.Context, log *models.PlatformRevenueLog) error
	ListLogs(ctx context.Context, filter LogFilter) ([]models.PlatformRevenueLog, error)
	PlatformWalletForUpdate(ctx context.Context) (*models.PlatformWallet, error)
	PlatformWallet(ctx context.Context) (*models.PlatformWallet, error)
	SavePlatformWallet(ctx context.Context, wallet *models.PlatformWallet) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a revenue repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLog(ctx context.Context, log *models.PlatformRevenueLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListLogs(ctx context.Context, filter LogFilter) ([]models.PlatformRevenueLog, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.PlatformRevenueLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PlatformWalletForUpdate returns the singleton platform wallet, creating it
// on first use. The row lock serializes concurrent revenue updates.
func (r *repository) PlatformWalletForUpdate(ctx context.Context) (*models.PlatformWallet, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.PlatformWallet
	err := query.Order("id ASC").First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.PlatformWallet{}
		if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
			return nil, err
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) PlatformWallet(ctx context.Context) (*models.PlatformWallet, error) {
	var wallet models.PlatformWallet
	err := r.db.WithContext(ctx).Order("id ASC").First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PlatformWallet{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) SavePlatformWallet(ctx context.Context, wallet *models.PlatformWallet) error {
	return r.db.WithContext(ctx).Save(wallet).Error
}
