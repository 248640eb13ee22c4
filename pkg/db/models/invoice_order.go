package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceOrder links one completed order to exactly one invoice. The unique
// index on order_id is the invariant that makes invoice attachment
// idempotent: a second attach for the same order cannot insert a second row.
type InvoiceOrder struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID     uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OrderSubtotal int64     `gorm:"column:order_subtotal;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
