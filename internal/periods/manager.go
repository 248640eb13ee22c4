package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
)

const activePeriodIndex = "idx_billing_periods_store_active"

// Manager hands out the open billing period for a store and rotates it when
// an invoice settles. All methods run inside the caller's transaction.
type Manager struct {
	repo Repository
	now  func() time.Time
}

// NewManager builds a period manager over the given repository.
func NewManager(repo Repository) (*Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("periods repository required")
	}
	return &Manager{repo: repo, now: time.Now}, nil
}

// GetOrCreateActive returns the store's open period, creating one on first
// use. Two callers racing to create collide on the partial unique index;
// the loser re-reads the winner's row instead of failing.
func (m *Manager) GetOrCreateActive(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (*models.BillingPeriod, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	repo := m.repo.WithTx(tx)

	period, err := repo.FindActiveByStore(ctx, storeID)
	if err == nil {
		return period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active billing period")
	}

	fresh := &models.BillingPeriod{
		ID:       uuid.New(),
		StoreID:  storeID,
		StartAt:  m.now().UTC(),
		IsActive: true,
	}
	if err := repo.Create(ctx, fresh); err != nil {
		if db.IsUniqueViolation(err, activePeriodIndex) {
			period, rerr := repo.FindActiveByStore(ctx, storeID)
			if rerr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rerr, "reload active billing period")
			}
			return period, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create billing period")
	}
	return fresh, nil
}

// Rotate closes the given period and opens the next one. A period that is
// no longer the active one cannot be closed: the stale caller gets NotFound
// instead of silently retiring its successor.
func (m *Manager) Rotate(ctx context.Context, tx *gorm.DB, storeID, periodID uuid.UUID) (*models.BillingPeriod, error) {
	if storeID == uuid.Nil || periodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and period id required")
	}
	repo := m.repo.WithTx(tx)

	closed, err := repo.CloseActive(ctx, storeID, periodID, m.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close billing period")
	}
	if !closed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "billing period is not the active one")
	}

	return m.GetOrCreateActive(ctx, tx, storeID)
}
