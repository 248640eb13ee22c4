package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/api/responses"
	"github.com/lmsinform84-bit/orbfood-backend/api/validators"
	internalorders "github.com/lmsinform84-bit/orbfood-backend/internal/orders"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

type placeOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

type placeOrderRequest struct {
	StoreID string                  `json:"store_id" validate:"required,uuid"`
	Items   []placeOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type proposeFeeRequest struct {
	Amount int64   `json:"amount" validate:"required,gt=0"`
	Note   *string `json:"note" validate:"omitempty,max=500"`
}

type feeDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

type advanceOrderRequest struct {
	Event string `json:"event" validate:"required"`
}

// PlaceOrder creates a pending order and reserves stock for every line.
func PlaceOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		storeID, err := uuid.Parse(payload.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
			return
		}

		items := make([]internalorders.PlaceItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			productID, parseErr := uuid.Parse(item.ProductID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid product id"))
				return
			}
			items = append(items, internalorders.PlaceItem{ProductID: productID, Qty: item.Qty})
		}

		order, err := svc.Place(r.Context(), internalorders.PlaceInput{
			UserID:  actor.UserID,
			StoreID: storeID,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ProposeOrderFee lets the vendor put an additional delivery fee in front of the customer.
func ProposeOrderFee(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload proposeFeeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ProposeAdditionalFee(r.Context(), internalorders.ProposeFeeInput{
			OrderID: orderID,
			Amount:  payload.Amount,
			Note:    payload.Note,
			Actor:   orderActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "fee_proposed"})
	}
}

// ResolveOrderFee records the customer's answer to a pending fee proposal.
func ResolveOrderFee(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload feeDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ResolveFeeApproval(r.Context(), internalorders.ResolveFeeInput{
			OrderID:  orderID,
			Approved: payload.Decision == "approve",
			Actor:    orderActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "fee_resolved"})
	}
}

// AdvanceOrder applies a vendor progression event to the order state machine.
func AdvanceOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := enums.ParseOrderEvent(payload.Event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order event"))
			return
		}

		err = svc.Advance(r.Context(), internalorders.AdvanceInput{
			OrderID: orderID,
			Event:   event,
			Actor:   orderActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "advanced"})
	}
}

// CancelOrder cancels the order and returns any reserved stock.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Actor:   orderActor(actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// OrderDetail returns a single order visible to the caller.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, orderActor(actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns a cursor page of orders scoped to the caller.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalorders.Filters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), internalorders.ListInput{
			Actor: orderActor(actor),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func orderActor(actor requestActor) internalorders.Actor {
	return internalorders.Actor{
		UserID:  actor.UserID,
		StoreID: actor.StoreID,
		Role:    actor.Role,
	}
}
