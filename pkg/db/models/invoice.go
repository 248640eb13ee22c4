package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
)

// Invoice is the fee bill a vendor owes the platform for one billing period.
// TotalOrders/TotalRevenue/FeeAmount are maintained exclusively by atomic
// SQL increments so concurrent attachments never lose updates.
type Invoice struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID              uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	PeriodID             uuid.UUID           `gorm:"column:period_id;type:uuid;not null;index"`
	Status               enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'awaiting_payment'"`
	TotalOrders          int                 `gorm:"column:total_orders;not null;default:0"`
	TotalRevenue         int64               `gorm:"column:total_revenue;not null;default:0"`
	FeeAmount            int64               `gorm:"column:fee_amount;not null;default:0"`
	PaymentProofURL      *string             `gorm:"column:payment_proof_url"`
	PaymentProofRejected bool                `gorm:"column:payment_proof_rejected;not null;default:false"`
	VerifiedBy           *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	VerifiedAt           *time.Time          `gorm:"column:verified_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
