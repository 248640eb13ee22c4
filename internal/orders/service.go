package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/internal/stock"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InvoiceAttacher bills a completed order against the store's open invoice.
type InvoiceAttacher interface {
	AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error)
}

// Service owns the order state machine from placement to completion.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*models.Order, error)
	ProposeAdditionalFee(ctx context.Context, input ProposeFeeInput) error
	ResolveFeeApproval(ctx context.Context, input ResolveFeeInput) error
	Advance(ctx context.Context, input AdvanceInput) error
	Cancel(ctx context.Context, input CancelInput) error
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*List, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	attacher InvoiceAttacher
	log      *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, attacher InvoiceAttacher, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if attacher == nil {
		return nil, fmt.Errorf("invoice attacher required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, attacher: attacher, log: log}, nil
}

// Place reserves stock for every line and creates the order in pending.
// Any failed reservation rolls the whole transaction back, so no partial
// reservation or half-created order survives.
func (s *service) Place(ctx context.Context, input PlaceInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := repo.FindProducts(ctx, input.StoreID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		priceByID := make(map[uuid.UUID]int64, len(products))
		for _, p := range products {
			priceByID[p.ID] = p.Price
		}

		reservations := make([]stock.ReservationRequest, 0, len(input.Items))
		items := make([]models.OrderItem, 0, len(input.Items))
		var baseTotal int64
		for _, item := range input.Items {
			price, ok := priceByID[item.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found in store").
					WithDetails(map[string]any{"product_id": item.ProductID.String()})
			}
			subtotal := price * int64(item.Qty)
			baseTotal += subtotal
			items = append(items, models.OrderItem{
				ID:           uuid.New(),
				ProductID:    item.ProductID,
				Qty:          item.Qty,
				UnitPrice:    price,
				LineSubtotal: subtotal,
			})
			reservations = append(reservations, stock.ReservationRequest{
				ProductID: item.ProductID,
				Qty:       item.Qty,
			})
		}

		if err := stock.Reserve(ctx, tx, reservations); err != nil {
			return err
		}

		order = &models.Order{
			ID:         uuid.New(),
			UserID:     input.UserID,
			StoreID:    input.StoreID,
			Status:     enums.OrderStatusPending,
			BaseTotal:  baseTotal,
			FinalTotal: baseTotal,
			Items:      items,
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ProposeAdditionalFee(ctx context.Context, input ProposeFeeInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "additional fee must be positive")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if input.Actor.StoreID == nil || *input.Actor.StoreID != order.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "additional fee can only be proposed on a pending order")
		}

		updated, err := repo.UpdateStatusGuarded(ctx, order.ID,
			enums.OrderStatusPending, enums.OrderStatusAwaitingFeeApproval,
			map[string]any{
				"additional_fee":      input.Amount,
				"additional_fee_note": input.Note,
				"final_total":         order.BaseTotal + input.Amount,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed underneath, retry")
		}
		return nil
	})
}

func (s *service) ResolveFeeApproval(ctx context.Context, input ResolveFeeInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.UserID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusAwaitingFeeApproval {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no fee proposal awaiting approval")
		}

		if input.Approved {
			updated, err := repo.UpdateStatusGuarded(ctx, order.ID,
				enums.OrderStatusAwaitingFeeApproval, enums.OrderStatusProcessing, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeConflict, "order changed underneath, retry")
			}
			return nil
		}

		// Rejection cancels the order: the fee comes back out of the total
		// and every reserved unit goes back on the shelf.
		updated, err := repo.UpdateStatusGuarded(ctx, order.ID,
			enums.OrderStatusAwaitingFeeApproval, enums.OrderStatusCancelled,
			map[string]any{
				"additional_fee":      nil,
				"additional_fee_note": nil,
				"final_total":         order.BaseTotal,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed underneath, retry")
		}
		return stock.Restore(ctx, tx, restoreRequests(order.Items))
	})
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Event.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order event")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	from, to := transitionFor(input.Event)

	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if input.Actor.StoreID == nil || *input.Actor.StoreID != order.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store")
		}
		if order.Status != from {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot %s from %s", input.Event, order.Status))
		}

		updated, err := repo.UpdateStatusGuarded(ctx, order.ID, from, to, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed underneath, retry")
		}

		if to == enums.OrderStatusCompleted {
			order.Status = enums.OrderStatusCompleted
			completed = order
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Billing attachment runs after the commit: the completed status is
	// authoritative and is never held hostage by fee bookkeeping. A failed
	// attachment is picked up by the invoice sweep.
	if completed != nil {
		if _, aerr := s.attacher.AttachOrder(ctx, completed); aerr != nil {
			s.log.Error(s.log.WithFields(ctx, map[string]any{
				"order_id": completed.ID.String(),
				"store_id": completed.StoreID.String(),
			}), "invoice attachment failed for completed order", aerr)
		}
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeCancel(order, input.Actor); err != nil {
			return err
		}

		// Second cancel is a no-op, never a double restore.
		if order.Status == enums.OrderStatusCancelled {
			return nil
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot be cancelled from %s", order.Status))
		}

		updated, err := repo.UpdateStatusGuarded(ctx, order.ID, order.Status, enums.OrderStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed underneath, retry")
		}
		return stock.Restore(ctx, tx, restoreRequests(order.Items))
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*List, error) {
	filters := input.Filters
	switch input.Actor.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleVendor:
		if input.Actor.StoreID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
		}
		filters.StoreID = input.Actor.StoreID
	default:
		userID := input.Actor.UserID
		filters.UserID = &userID
	}

	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	orders, next, err := s.repo.List(ctx, input.Params.Limit, cursor, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	out := &List{Orders: orders}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func transitionFor(event enums.OrderEvent) (enums.OrderStatus, enums.OrderStatus) {
	switch event {
	case enums.OrderEventAccept:
		return enums.OrderStatusPending, enums.OrderStatusProcessing
	case enums.OrderEventDispatch:
		return enums.OrderStatusProcessing, enums.OrderStatusOutForDelivery
	default:
		return enums.OrderStatusOutForDelivery, enums.OrderStatusCompleted
	}
}

func restoreRequests(items []models.OrderItem) []stock.ReservationRequest {
	requests := make([]stock.ReservationRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, stock.ReservationRequest{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		})
	}
	return requests
}

func authorizeCancel(order *models.Order, actor Actor) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if order.UserID == actor.UserID {
		return nil
	}
	if actor.StoreID != nil && *actor.StoreID == order.StoreID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
}

func authorizeRead(order *models.Order, actor Actor) error {
	return authorizeCancel(order, actor)
}
