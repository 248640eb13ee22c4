package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

const (
	invoiceOrderIndex   = "idx_invoice_orders_order"
	currentInvoiceIndex = "idx_invoices_period_current"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type periodManager interface {
	GetOrCreateActive(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (*models.BillingPeriod, error)
	Rotate(ctx context.Context, tx *gorm.DB, storeID, periodID uuid.UUID) (*models.BillingPeriod, error)
}

type activityRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, invoiceID uuid.UUID, action enums.ActivityAction, description string, performedBy *uuid.UUID) error
	List(ctx context.Context, invoiceID uuid.UUID) ([]models.ActivityLogEntry, error)
}

// Service owns the fee ledger: idempotent order attachment, proof handling,
// verification, and the read-side projections.
type Service interface {
	AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error)
	SubmitPaymentProof(ctx context.Context, input SubmitProofInput) error
	Verify(ctx context.Context, input VerifyInput) error
	Estimate(ctx context.Context, storeID uuid.UUID) (*Estimate, error)
	Get(ctx context.Context, invoiceID uuid.UUID, actor Actor) (*models.Invoice, error)
	List(ctx context.Context, input ListInput) (*List, error)
	Activity(ctx context.Context, invoiceID uuid.UUID, actor Actor) ([]models.ActivityLogEntry, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	periods  periodManager
	activity activityRecorder
	feeRate  decimal.Decimal
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds the invoice service with the required dependencies.
func NewService(repo Repository, tx txRunner, periods periodManager, activity activityRecorder, feeRate decimal.Decimal, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if periods == nil {
		return nil, fmt.Errorf("period manager required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if feeRate.IsNegative() || feeRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate out of range")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		periods:  periods,
		activity: activity,
		feeRate:  feeRate,
		log:      log,
		now:      time.Now,
	}, nil
}

func feeFor(revenue int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(revenue).Mul(rate).Round(0).IntPart()
}

// AttachOrder bills a completed order exactly once. A repeat call for the
// same order returns the invoice that already holds it; two concurrent
// calls collapse on the unique order_id index and the loser re-reads the
// winner's row after its transaction rolled back.
func (s *service) AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	if order == nil || order.ID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.StoreID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order store id required")
	}
	if order.Status != enums.OrderStatusCompleted {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed orders can be billed")
	}

	var invoiceID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindInvoiceOrder(ctx, order.ID)
		if err == nil {
			invoiceID = existing.InvoiceID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing attachment")
		}

		period, err := s.periods.GetOrCreateActive(ctx, tx, order.StoreID)
		if err != nil {
			return err
		}

		invoice, err := repo.FindCurrentByPeriod(ctx, order.StoreID, period.ID)
		created := false
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current invoice")
			}
			invoice = &models.Invoice{
				ID:       uuid.New(),
				StoreID:  order.StoreID,
				PeriodID: period.ID,
				Status:   enums.InvoiceStatusAwaitingPayment,
			}
			if err := repo.Create(ctx, invoice); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
			}
			created = true
		}

		join := &models.InvoiceOrder{
			ID:            uuid.New(),
			InvoiceID:     invoice.ID,
			OrderID:       order.ID,
			OrderSubtotal: order.BaseTotal,
		}
		if err := repo.CreateInvoiceOrder(ctx, join); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach order to invoice")
		}

		revenue, err := repo.IncrementTotals(ctx, invoice.ID, order.BaseTotal)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice totals")
		}
		if err := repo.SetFeeAmount(ctx, invoice.ID, feeFor(revenue, s.feeRate)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice fee")
		}

		if created {
			if err := s.activity.Record(ctx, tx, invoice.ID, enums.ActivityActionInvoiceCreated,
				"invoice opened for active billing period", nil); err != nil {
				return err
			}
		}
		if err := s.activity.Record(ctx, tx, invoice.ID, enums.ActivityActionOrderAdded,
			fmt.Sprintf("order %s attached with subtotal %d", order.ID, order.BaseTotal), nil); err != nil {
			return err
		}

		invoiceID = invoice.ID
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, invoiceOrderIndex) || db.IsUniqueViolation(err, currentInvoiceIndex) {
			// Lost a concurrent race; the order is attached now.
			existing, rerr := s.repo.FindInvoiceOrder(ctx, order.ID)
			if rerr == nil {
				return existing.InvoiceID, nil
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent attachment in progress")
		}
		return uuid.Nil, err
	}
	return invoiceID, nil
}

func (s *service) SubmitPaymentProof(ctx context.Context, input SubmitProofInput) error {
	if input.InvoiceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if input.ProofURL == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "proof url required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := repo.FindByID(ctx, input.InvoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}
		if input.Actor.StoreID == nil || *input.Actor.StoreID != invoice.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "invoice does not belong to store")
		}
		if invoice.Status != enums.InvoiceStatusAwaitingPayment {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is not awaiting payment")
		}

		updated, err := repo.UpdateStatusGuarded(ctx, invoice.ID,
			enums.InvoiceStatusAwaitingPayment, enums.InvoiceStatusAwaitingVerification,
			map[string]any{
				"payment_proof_url":      input.ProofURL,
				"payment_proof_rejected": false,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice changed underneath, retry")
		}

		return s.activity.Record(ctx, tx, invoice.ID, enums.ActivityActionProofUploaded,
			"payment proof uploaded", &input.Actor.UserID)
	})
}

func (s *service) Verify(ctx context.Context, input VerifyInput) error {
	if input.InvoiceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "verification requires an administrator")
	}
	if input.Decision != VerifyDecisionConfirm && input.Decision != VerifyDecisionReject {
		return pkgerrors.New(pkgerrors.CodeValidation, "decision must be confirm or reject")
	}

	var storeID, periodID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := repo.FindByID(ctx, input.InvoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}
		if invoice.Status != enums.InvoiceStatusAwaitingVerification {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is not awaiting verification")
		}
		storeID = invoice.StoreID
		periodID = invoice.PeriodID

		if input.Decision == VerifyDecisionReject {
			updated, err := repo.UpdateStatusGuarded(ctx, invoice.ID,
				enums.InvoiceStatusAwaitingVerification, enums.InvoiceStatusAwaitingPayment,
				map[string]any{"payment_proof_rejected": true})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice status")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeConflict, "invoice changed underneath, retry")
			}
			return s.activity.Record(ctx, tx, invoice.ID, enums.ActivityActionProofRejected,
				"payment proof rejected", &input.Actor.UserID)
		}

		updated, err := repo.UpdateStatusGuarded(ctx, invoice.ID,
			enums.InvoiceStatusAwaitingVerification, enums.InvoiceStatusPaid,
			map[string]any{
				"verified_by": input.Actor.UserID,
				"verified_at": s.now().UTC(),
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice changed underneath, retry")
		}
		return s.activity.Record(ctx, tx, invoice.ID, enums.ActivityActionPaymentConfirmed,
			"payment confirmed", &input.Actor.UserID)
	})
	if err != nil {
		return err
	}

	if input.Decision == VerifyDecisionConfirm {
		// Rotation is best-effort: a paid invoice on an unrotated period is
		// operator-recoverable, an unpaid invoice after real payment is not.
		rerr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.periods.Rotate(ctx, tx, storeID, periodID)
			return err
		})
		if rerr != nil {
			s.log.Error(s.log.WithFields(ctx, map[string]any{
				"invoice_id": input.InvoiceID.String(),
				"store_id":   storeID.String(),
				"period_id":  periodID.String(),
			}), "billing period rotation failed after payment confirmation", rerr)
		}
	}
	return nil
}

// Estimate projects the fee the store's unbilled completed orders would
// produce. It is a pure read and matches AttachOrder's arithmetic exactly.
func (s *service) Estimate(ctx context.Context, storeID uuid.UUID) (*Estimate, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	revenue, count, err := s.repo.SumUnattachedCompleted(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum unbilled orders")
	}
	return &Estimate{
		StoreID:    storeID,
		OrderCount: count,
		Revenue:    revenue,
		FeeAmount:  feeFor(revenue, s.feeRate),
	}, nil
}

func (s *service) Get(ctx context.Context, invoiceID uuid.UUID, actor Actor) (*models.Invoice, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if err := authorizeInvoiceRead(invoice, actor); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*List, error) {
	filters := input.Filters
	if input.Actor.Role != enums.UserRoleAdmin {
		// Vendors only ever see their own ledger.
		if input.Actor.StoreID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
		}
		filters.StoreID = input.Actor.StoreID
	}

	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	invoices, next, err := s.repo.List(ctx, input.Params.Limit, cursor, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	out := &List{Invoices: invoices}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) Activity(ctx context.Context, invoiceID uuid.UUID, actor Actor) ([]models.ActivityLogEntry, error) {
	invoice, err := s.Get(ctx, invoiceID, actor)
	if err != nil {
		return nil, err
	}
	return s.activity.List(ctx, invoice.ID)
}

func authorizeInvoiceRead(invoice *models.Invoice, actor Actor) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if actor.StoreID != nil && *actor.StoreID == invoice.StoreID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "invoice does not belong to store")
}
