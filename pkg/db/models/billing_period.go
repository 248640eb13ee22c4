package models

import (
	"time"

	"github.com/google/uuid"
)

// BillingPeriod is a vendor-scoped window during which completed orders
// accumulate into one invoice. A partial unique index on
// (store_id) WHERE is_active guarantees at most one open period per store;
// see migrations.
type BillingPeriod struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	StartAt   time.Time  `gorm:"column:start_at;not null"`
	EndAt     *time.Time `gorm:"column:end_at"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
