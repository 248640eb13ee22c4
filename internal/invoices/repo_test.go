package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Invoice{},
		&models.InvoiceOrder{},
	))
	return conn
}

func TestIncrementTotalsAccumulates(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	invoice := &models.Invoice{
		ID:       uuid.New(),
		StoreID:  uuid.New(),
		PeriodID: uuid.New(),
		Status:   enums.InvoiceStatusAwaitingPayment,
	}
	require.NoError(t, repo.Create(ctx, invoice))

	revenue, err := repo.IncrementTotals(ctx, invoice.ID, 100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), revenue)

	revenue, err = repo.IncrementTotals(ctx, invoice.ID, 60_001)
	require.NoError(t, err)
	assert.Equal(t, int64(160_001), revenue)

	var stored models.Invoice
	require.NoError(t, conn.First(&stored, "id = ?", invoice.ID).Error)
	assert.Equal(t, 2, stored.TotalOrders)
	assert.Equal(t, int64(160_001), stored.TotalRevenue)
}

func TestIncrementTotalsMissingInvoice(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.IncrementTotals(context.Background(), uuid.New(), 1_000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSumUnattachedCompletedSkipsBilledAndPending(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	storeID := uuid.New()
	userID := uuid.New()

	unbilled := models.Order{ID: uuid.New(), UserID: userID, StoreID: storeID, Status: enums.OrderStatusCompleted, BaseTotal: 70_000, FinalTotal: 70_000}
	billed := models.Order{ID: uuid.New(), UserID: userID, StoreID: storeID, Status: enums.OrderStatusCompleted, BaseTotal: 50_000, FinalTotal: 50_000}
	pending := models.Order{ID: uuid.New(), UserID: userID, StoreID: storeID, Status: enums.OrderStatusPending, BaseTotal: 30_000, FinalTotal: 30_000}
	otherStore := models.Order{ID: uuid.New(), UserID: userID, StoreID: uuid.New(), Status: enums.OrderStatusCompleted, BaseTotal: 10_000, FinalTotal: 10_000}
	require.NoError(t, conn.Create(&[]models.Order{unbilled, billed, pending, otherStore}).Error)

	require.NoError(t, conn.Create(&models.InvoiceOrder{
		ID:            uuid.New(),
		InvoiceID:     uuid.New(),
		OrderID:       billed.ID,
		OrderSubtotal: billed.BaseTotal,
	}).Error)

	revenue, count, err := repo.SumUnattachedCompleted(ctx, storeID)
	require.NoError(t, err)
	assert.Equal(t, int64(70_000), revenue)
	assert.Equal(t, 1, count)
}

func TestListPagesWithoutSkippingRows(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	storeID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seeded := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		invoice := models.Invoice{
			ID:        uuid.New(),
			StoreID:   storeID,
			PeriodID:  uuid.New(),
			Status:    enums.InvoiceStatusPaid,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, conn.Create(&invoice).Error)
		seeded = append(seeded, invoice.ID)
	}

	filters := ListFilters{StoreID: &storeID}

	first, cursor, err := repo.List(ctx, 2, nil, filters)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)

	second, cursor2, err := repo.List(ctx, 2, cursor, filters)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.NotNil(t, cursor2)

	third, cursor3, err := repo.List(ctx, 2, cursor2, filters)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Nil(t, cursor3)

	seen := map[uuid.UUID]bool{}
	for _, page := range [][]models.Invoice{first, second, third} {
		for _, invoice := range page {
			assert.False(t, seen[invoice.ID], "invoice %s returned twice", invoice.ID)
			seen[invoice.ID] = true
		}
	}
	for _, id := range seeded {
		assert.True(t, seen[id], "invoice %s missing from pages", id)
	}
}

func TestUpdateStatusGuardedRequiresExpectedState(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	invoice := &models.Invoice{
		ID:       uuid.New(),
		StoreID:  uuid.New(),
		PeriodID: uuid.New(),
		Status:   enums.InvoiceStatusAwaitingPayment,
	}
	require.NoError(t, repo.Create(ctx, invoice))

	proof := "https://cdn.example.com/proof.png"
	updated, err := repo.UpdateStatusGuarded(ctx, invoice.ID, enums.InvoiceStatusAwaitingPayment, enums.InvoiceStatusAwaitingVerification, map[string]any{
		"payment_proof_url": proof,
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// same guard again misses now that the status moved on
	updated, err = repo.UpdateStatusGuarded(ctx, invoice.ID, enums.InvoiceStatusAwaitingPayment, enums.InvoiceStatusAwaitingVerification, nil)
	require.NoError(t, err)
	assert.False(t, updated)

	var stored models.Invoice
	require.NoError(t, conn.First(&stored, "id = ?", invoice.ID).Error)
	assert.Equal(t, enums.InvoiceStatusAwaitingVerification, stored.Status)
	require.NotNil(t, stored.PaymentProofURL)
	assert.Equal(t, proof, *stored.PaymentProofURL)
}
