package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// Repository manages persistence for orders and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByPayer(ctx context.Context, payerID int64, filter ListFilter) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID int64, filter ListFilter) ([]models.Order, error)
	// UpdateStatus flips the status only when the row still holds the
	// expected prior status. The boolean reports whether the swap won.
	UpdateStatus(ctx context.Context, orderID int64, from, to enums.OrderStatus) (bool, error)
	// SetPickupCredentials stores the signed token and OTP minted right
	// after the order row gets its id.
	SetPickupCredentials(ctx context.Context, orderID int64, token, otp string) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	History(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
	// SetRating writes the rating once; rows already rated are not touched.
	SetRating(ctx context.Context, orderID int64, rating int, feedback *string) (bool, error)
	VendorRatingStats(ctx context.Context, vendorID int64) (avg float64, count int64, err error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByPayer(ctx context.Context, payerID int64, filter ListFilter) ([]models.Order, error) {
	return r.list(ctx, "payer_id = ?", payerID, filter)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID int64, filter ListFilter) ([]models.Order, error) {
	return r.list(ctx, "vendor_id = ?", vendorID, filter)
}

func (r *repository) list(ctx context.Context, cond string, id int64, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where(cond, id).
		Order("created_at DESC").
		Order("id DESC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID int64, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetPickupCredentials(ctx context.Context, orderID int64, token, otp string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"pickup_token": token,
			"pickup_otp":   otp,
		}).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) History(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetRating(ctx context.Context, orderID int64, rating int, feedback *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND rating IS NULL", orderID).
		Updates(map[string]any{
			"rating":   rating,
			"feedback": feedback,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) VendorRatingStats(ctx context.Context, vendorID int64) (float64, int64, error) {
	type row struct {
		Avg   *float64
		Count int64
	}
	var out row
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("AVG(rating) AS avg, COUNT(rating) AS count").
		Where("vendor_id = ? AND rating IS NOT NULL", vendorID).
		Scan(&out).Error; err != nil {
		return 0, 0, err
	}
	if out.Avg == nil {
		return 0, out.Count, nil
	}
	return *out.Avg, out.Count, nil
}
