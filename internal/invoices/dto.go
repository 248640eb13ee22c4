package invoices

import (
	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

// Actor identifies the authenticated caller of an invoice operation.
type Actor struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.UserRole
}

// SubmitProofInput carries a vendor's payment proof submission.
type SubmitProofInput struct {
	InvoiceID uuid.UUID
	ProofURL  string
	Actor     Actor
}

// VerifyDecision is the admin's ruling on a submitted proof.
type VerifyDecision string

const (
	VerifyDecisionConfirm VerifyDecision = "confirm"
	VerifyDecisionReject  VerifyDecision = "reject"
)

// ParseVerifyDecision validates a raw decision string.
func ParseVerifyDecision(raw string) (VerifyDecision, error) {
	switch VerifyDecision(raw) {
	case VerifyDecisionConfirm:
		return VerifyDecisionConfirm, nil
	case VerifyDecisionReject:
		return VerifyDecisionReject, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be confirm or reject")
	}
}

// VerifyInput carries an admin verification request.
type VerifyInput struct {
	InvoiceID uuid.UUID
	Decision  VerifyDecision
	Actor     Actor
}

// Estimate projects what the store's next attachment run would bill.
type Estimate struct {
	StoreID    uuid.UUID `json:"store_id"`
	OrderCount int       `json:"order_count"`
	Revenue    int64     `json:"revenue"`
	FeeAmount  int64     `json:"fee_amount"`
}

// ListFilters narrows an invoice listing.
type ListFilters struct {
	StoreID *uuid.UUID
	Status  *enums.InvoiceStatus
}

// ListInput carries listing parameters plus the caller identity.
type ListInput struct {
	Actor   Actor
	Params  pagination.Params
	Filters ListFilters
}

// List is one page of invoices with the cursor for the next one.
type List struct {
	Invoices   []models.Invoice `json:"invoices"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
