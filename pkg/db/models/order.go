package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
)

// Order is the aggregate root of the order state machine. FinalTotal is
// always BaseTotal plus the additional delivery fee when one is set; the
// additional fee never enters the platform-fee base.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID           uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	BaseTotal         int64             `gorm:"column:base_total;not null"`
	AdditionalFee     *int64            `gorm:"column:additional_fee"`
	AdditionalFeeNote *string           `gorm:"column:additional_fee_note"`
	FinalTotal        int64             `gorm:"column:final_total;not null"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
