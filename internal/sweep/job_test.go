package sweep

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/metrics"
)

type fakeAttacher struct {
	attached []uuid.UUID
	failFor  map[uuid.UUID]error
}

func (f *fakeAttacher) AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	if err, ok := f.failFor[order.ID]; ok {
		return uuid.Nil, err
	}
	f.attached = append(f.attached, order.ID)
	return uuid.New(), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sweep_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.InvoiceOrder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		StoreID:    uuid.New(),
		Status:     status,
		BaseTotal:  50_000,
		FinalTotal: 50_000,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newJob(t *testing.T, db *gorm.DB, attacher Attacher) *Job {
	t.Helper()
	job, err := NewJob(JobParams{
		Logger:    logger.New(logger.Options{ServiceName: "sweep-test", Output: io.Discard}),
		Reader:    NewReader(db),
		Attacher:  attacher,
		Metrics:   metrics.NewJobMetrics(prometheus.NewRegistry()),
		BatchSize: 50,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestRun_AttachesOnlyUnbilledCompleted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	missed := seedOrder(t, db, enums.OrderStatusCompleted)
	billed := seedOrder(t, db, enums.OrderStatusCompleted)
	seedOrder(t, db, enums.OrderStatusPending)
	seedOrder(t, db, enums.OrderStatusCancelled)

	join := models.InvoiceOrder{
		ID:            uuid.New(),
		InvoiceID:     uuid.New(),
		OrderID:       billed.ID,
		OrderSubtotal: billed.BaseTotal,
	}
	if err := db.Create(&join).Error; err != nil {
		t.Fatalf("seed join: %v", err)
	}

	attacher := &fakeAttacher{}
	if err := newJob(t, db, attacher).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(attacher.attached) != 1 || attacher.attached[0] != missed.ID {
		t.Fatalf("expected only the missed order, got %v", attacher.attached)
	}
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	bad := seedOrder(t, db, enums.OrderStatusCompleted)
	good := seedOrder(t, db, enums.OrderStatusCompleted)

	attacher := &fakeAttacher{
		failFor: map[uuid.UUID]error{
			bad.ID: pkgerrors.New(pkgerrors.CodeDependency, "billing down"),
		},
	}
	err := newJob(t, db, attacher).Run(ctx)
	if err == nil {
		t.Fatal("expected combined error")
	}

	if len(attacher.attached) != 1 || attacher.attached[0] != good.ID {
		t.Fatalf("expected the healthy order to still attach, got %v", attacher.attached)
	}
}

func TestRun_HonorsBatchSize(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, enums.OrderStatusCompleted)
	}

	attacher := &fakeAttacher{}
	job, err := NewJob(JobParams{
		Logger:    logger.New(logger.Options{ServiceName: "sweep-test", Output: io.Discard}),
		Reader:    NewReader(db),
		Attacher:  attacher,
		Metrics:   metrics.NewJobMetrics(prometheus.NewRegistry()),
		BatchSize: 3,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(attacher.attached) != 3 {
		t.Fatalf("expected batch of 3, got %d", len(attacher.attached))
	}
}
