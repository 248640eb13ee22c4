package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
)

// ActivityLogEntry records one immutable step in an invoice's lifecycle.
// Entries are append-only; nothing in the codebase updates or deletes them.
type ActivityLogEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID            `gorm:"column:invoice_id;type:uuid;not null;index"`
	Action      enums.ActivityAction `gorm:"column:action;type:text;not null"`
	Description string               `gorm:"column:description;not null"`
	PerformedBy *uuid.UUID           `gorm:"column:performed_by;type:uuid"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
