package periods

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
)

// Repository persists billing periods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.BillingPeriod, error)
	FindActiveByStore(ctx context.Context, storeID uuid.UUID) (*models.BillingPeriod, error)
	Create(ctx context.Context, period *models.BillingPeriod) error
	CloseActive(ctx context.Context, storeID, periodID uuid.UUID, endAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a billing period repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BillingPeriod, error) {
	var period models.BillingPeriod
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) FindActiveByStore(ctx context.Context, storeID uuid.UUID) (*models.BillingPeriod, error) {
	var period models.BillingPeriod
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) Create(ctx context.Context, period *models.BillingPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

// CloseActive retires a period only if it still belongs to the store and is
// the open one. The guard on is_active makes concurrent rotations converge
// on a single winner.
func (r *repository) CloseActive(ctx context.Context, storeID, periodID uuid.UUID, endAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BillingPeriod{}).
		Where("id = ? AND store_id = ? AND is_active = ?", periodID, storeID, true).
		Updates(map[string]any{
			"is_active": false,
			"end_at":    endAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
