package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/metrics"
)

const jobName = "invoice-sweep"

// Attacher bills one completed order. The invoice service's idempotency is
// what lets the sweep re-drive orders whose synchronous attachment failed.
type Attacher interface {
	AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error)
}

type unbilledReader interface {
	FindUnbilledCompleted(ctx context.Context, limit int) ([]models.Order, error)
}

// JobParams configure the invoice generation sweep.
type JobParams struct {
	Logger    *logger.Logger
	Reader    unbilledReader
	Attacher  Attacher
	Metrics   *metrics.JobMetrics
	BatchSize int
}

// Job re-attaches completed orders that never made it onto an invoice.
type Job struct {
	logg      *logger.Logger
	reader    unbilledReader
	attacher  Attacher
	metrics   *metrics.JobMetrics
	batchSize int
	now       func() time.Time
}

// NewJob builds the sweep job.
func NewJob(params JobParams) (*Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("unbilled orders reader required")
	}
	if params.Attacher == nil {
		return nil, fmt.Errorf("invoice attacher required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Job{
		logg:      params.Logger,
		reader:    params.Reader,
		attacher:  params.Attacher,
		metrics:   params.Metrics,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *Job) Name() string { return jobName }

// Run sweeps one batch. A failing order does not stop the batch; its error
// is collected and the remaining orders still get their attachment attempt.
func (j *Job) Run(ctx context.Context) error {
	started := j.now()
	defer func() {
		j.metrics.ObserveDuration(jobName, time.Since(started))
	}()

	orders, err := j.reader.FindUnbilledCompleted(ctx, j.batchSize)
	if err != nil {
		j.metrics.IncFailure(jobName)
		return fmt.Errorf("query unbilled orders: %w", err)
	}

	var errs []error
	attached := 0
	for i := range orders {
		order := orders[i]
		if _, err := j.attacher.AttachOrder(ctx, &order); err != nil {
			errs = append(errs, fmt.Errorf("attach order %s: %w", order.ID, err))
			continue
		}
		attached++
	}

	j.metrics.AddAttached(jobName, attached)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  len(orders),
		"attached": attached,
		"failed":   len(errs),
	})
	if len(errs) > 0 {
		combined := multierr.Combine(errs...)
		j.metrics.IncFailure(jobName)
		j.logg.Error(logCtx, "invoice sweep finished with failures", combined)
		return combined
	}
	j.metrics.IncSuccess(jobName)
	j.logg.Info(logCtx, "invoice sweep complete")
	return nil
}

// Reader is the default unbilled-order query over gorm.
type Reader struct {
	db *gorm.DB
}

// NewReader builds the default reader.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// FindUnbilledCompleted returns completed orders no invoice has claimed,
// oldest first so long-missed orders are billed before fresh ones.
func (r *Reader) FindUnbilledCompleted(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM invoice_orders io WHERE io.order_id = orders.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
