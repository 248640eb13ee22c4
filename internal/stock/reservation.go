package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
)

// ReservationRequest asks for qty units of a product to be taken off the
// shelf inside the caller's transaction.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// Reserve decrements stock for every request or fails the whole batch.
// The decrement is a single conditional UPDATE per product, so two
// concurrent orders racing for the last unit cannot both win: the loser's
// UPDATE matches zero rows and the batch returns INSUFFICIENT_STOCK,
// rolling back the caller's transaction.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}

	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, req.Qty, req.ProductID, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for product %s", req.ProductID)).
				WithDetails(map[string]any{
					"product_id":    req.ProductID.String(),
					"requested_qty": req.Qty,
				})
		}
	}
	return nil
}

// Restore returns previously reserved units, for cancellations and fee
// rejections. Restores never fail on quantity: the shelf only grows.
func Restore(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}

	for _, req := range requests {
		if req.ProductID == uuid.Nil || req.Qty <= 0 {
			continue
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, req.Qty, req.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
		}
	}
	return nil
}
