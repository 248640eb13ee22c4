package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
)

// Recorder appends lifecycle entries to an invoice's activity log.
type Recorder struct {
	repo Repository
}

// NewRecorder builds a recorder over the given repository.
func NewRecorder(repo Repository) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &Recorder{repo: repo}, nil
}

// Record writes one entry inside the caller's transaction so the log line
// commits or rolls back together with the state change it describes.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, invoiceID uuid.UUID, action enums.ActivityAction, description string, performedBy *uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if !action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid activity action")
	}

	entry := &models.ActivityLogEntry{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Action:      action,
		Description: description,
		PerformedBy: performedBy,
	}
	if err := r.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append activity entry")
	}
	return nil
}

// List returns an invoice's activity entries oldest first.
func (r *Recorder) List(ctx context.Context, invoiceID uuid.UUID) ([]models.ActivityLogEntry, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	entries, err := r.repo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity entries")
	}
	return entries, nil
}
