package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one product line at checkout time.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Qty          int       `gorm:"column:qty;not null"`
	UnitPrice    int64     `gorm:"column:unit_price;not null"`
	LineSubtotal int64     `gorm:"column:line_subtotal;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
