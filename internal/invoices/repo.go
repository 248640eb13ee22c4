package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/pagination"
)

// Repository persists invoices and their order attachments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindCurrentByPeriod(ctx context.Context, storeID, periodID uuid.UUID) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	FindInvoiceOrder(ctx context.Context, orderID uuid.UUID) (*models.InvoiceOrder, error)
	CreateInvoiceOrder(ctx context.Context, join *models.InvoiceOrder) error
	IncrementTotals(ctx context.Context, invoiceID uuid.UUID, subtotal int64) (int64, error)
	SetFeeAmount(ctx context.Context, invoiceID uuid.UUID, fee int64) error
	UpdateStatusGuarded(ctx context.Context, invoiceID uuid.UUID, from, to enums.InvoiceStatus, updates map[string]any) (bool, error)
	SumUnattachedCompleted(ctx context.Context, storeID uuid.UUID) (int64, int, error)
	List(ctx context.Context, limit int, cursor *pagination.Cursor, filters ListFilters) ([]models.Invoice, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoice repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindCurrentByPeriod(ctx context.Context, storeID, periodID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND period_id = ? AND status <> ?", storeID, periodID, enums.InvoiceStatusPaid).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindInvoiceOrder(ctx context.Context, orderID uuid.UUID) (*models.InvoiceOrder, error) {
	var join models.InvoiceOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&join).Error
	if err != nil {
		return nil, err
	}
	return &join, nil
}

func (r *repository) CreateInvoiceOrder(ctx context.Context, join *models.InvoiceOrder) error {
	return r.db.WithContext(ctx).Create(join).Error
}

// IncrementTotals bumps the running counters in place and returns the new
// revenue so the caller can derive the fee. The read happens inside the
// caller's transaction, after the UPDATE took the row lock.
func (r *repository) IncrementTotals(ctx context.Context, invoiceID uuid.UUID, subtotal int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE invoices
		SET total_orders = total_orders + 1,
			total_revenue = total_revenue + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, subtotal, invoiceID)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var revenue int64
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Pluck("total_revenue", &revenue).Error
	if err != nil {
		return 0, err
	}
	return revenue, nil
}

func (r *repository) SetFeeAmount(ctx context.Context, invoiceID uuid.UUID, fee int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("fee_amount", fee).Error
}

func (r *repository) UpdateStatusGuarded(ctx context.Context, invoiceID uuid.UUID, from, to enums.InvoiceStatus, updates map[string]any) (bool, error) {
	merged := map[string]any{"status": to}
	for k, v := range updates {
		merged[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, from).
		Updates(merged)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SumUnattachedCompleted totals the store's completed orders that no invoice
// has claimed yet.
func (r *repository) SumUnattachedCompleted(ctx context.Context, storeID uuid.UUID) (int64, int, error) {
	row := struct {
		Revenue int64
		Count   int
	}{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(o.base_total), 0) AS revenue, COUNT(o.id) AS count
		FROM orders o
		WHERE o.store_id = ?
			AND o.status = ?
			AND NOT EXISTS (SELECT 1 FROM invoice_orders io WHERE io.order_id = o.id)
	`, storeID, enums.OrderStatusCompleted).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Revenue, row.Count, nil
}

func (r *repository) List(ctx context.Context, limit int, cursor *pagination.Cursor, filters ListFilters) ([]models.Invoice, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filters.StoreID != nil {
		query = query.Where("store_id = ?", *filters.StoreID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var invoices []models.Invoice
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&invoices).Error; err != nil {
		return nil, nil, err
	}

	normalized := pagination.NormalizeLimit(limit)
	if len(invoices) > normalized {
		invoices = invoices[:normalized]
		last := invoices[normalized-1]
		return invoices, &pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}, nil
	}
	return invoices, nil, nil
}
