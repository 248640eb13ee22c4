package orders

import (
	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

// Actor identifies the authenticated caller of an order operation.
type Actor struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.UserRole
}

// PlaceItem is one requested line of a new order.
type PlaceItem struct {
	ProductID uuid.UUID
	Qty       int
}

// PlaceInput carries a checkout request.
type PlaceInput struct {
	UserID  uuid.UUID
	StoreID uuid.UUID
	Items   []PlaceItem
}

// ProposeFeeInput carries a vendor's additional delivery fee proposal.
type ProposeFeeInput struct {
	OrderID uuid.UUID
	Amount  int64
	Note    *string
	Actor   Actor
}

// ResolveFeeInput carries the customer's answer to a fee proposal.
type ResolveFeeInput struct {
	OrderID  uuid.UUID
	Approved bool
	Actor    Actor
}

// AdvanceInput moves an order forward through the vendor-driven states.
type AdvanceInput struct {
	OrderID uuid.UUID
	Event   enums.OrderEvent
	Actor   Actor
}

// CancelInput carries a cancellation request from either side of the order.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// Filters narrows an order listing.
type Filters struct {
	UserID  *uuid.UUID
	StoreID *uuid.UUID
	Status  *enums.OrderStatus
}

// ListInput carries listing parameters plus the caller identity.
type ListInput struct {
	Actor   Actor
	Params  pagination.Params
	Filters Filters
}

// List is one page of orders with the cursor for the next one.
type List struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
