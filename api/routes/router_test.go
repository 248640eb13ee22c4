package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	internalinvoices "github.com/lmsinform84-bit/orbfood-backend/internal/invoices"
	internalorders "github.com/lmsinform84-bit/orbfood-backend/internal/orders"
	pkgAuth "github.com/lmsinform84-bit/orbfood-backend/pkg/auth"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/config"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	pkgredis "github.com/lmsinform84-bit/orbfood-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memIdemStore struct {
	data map[string]string
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{data: make(map[string]string)}
}

func (s *memIdemStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *memIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	s.data[key] = str
	return true, nil
}

func (s *memIdemStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("mem:%s:%s", scope, id)
}

type stubOrdersService struct{}

func (stubOrdersService) Place(ctx context.Context, input internalorders.PlaceInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func (stubOrdersService) ProposeAdditionalFee(ctx context.Context, input internalorders.ProposeFeeInput) error {
	return nil
}

func (stubOrdersService) ResolveFeeApproval(ctx context.Context, input internalorders.ResolveFeeInput) error {
	return nil
}

func (stubOrdersService) Advance(ctx context.Context, input internalorders.AdvanceInput) error {
	return nil
}

func (stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) error {
	return nil
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) List(ctx context.Context, input internalorders.ListInput) (*internalorders.List, error) {
	return &internalorders.List{}, nil
}

type stubInvoicesService struct{}

func (stubInvoicesService) AttachOrder(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (stubInvoicesService) SubmitPaymentProof(ctx context.Context, input internalinvoices.SubmitProofInput) error {
	return nil
}

func (stubInvoicesService) Verify(ctx context.Context, input internalinvoices.VerifyInput) error {
	return nil
}

func (stubInvoicesService) Estimate(ctx context.Context, storeID uuid.UUID) (*internalinvoices.Estimate, error) {
	return &internalinvoices.Estimate{StoreID: storeID}, nil
}

func (stubInvoicesService) Get(ctx context.Context, invoiceID uuid.UUID, actor internalinvoices.Actor) (*models.Invoice, error) {
	return &models.Invoice{ID: invoiceID}, nil
}

func (stubInvoicesService) List(ctx context.Context, input internalinvoices.ListInput) (*internalinvoices.List, error) {
	return &internalinvoices.List{}, nil
}

func (stubInvoicesService) Activity(ctx context.Context, invoiceID uuid.UUID, actor internalinvoices.Actor) ([]models.ActivityLogEntry, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return newRouterWith(cfg, nil, stubOrdersService{})
}

func newRouterWith(cfg *config.Config, store pkgredis.IdempotencyStore, ordersSvc internalorders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		store,
		ordersSvc,
		stubInvoicesService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, storeID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:  uuid.New(),
		StoreID: storeID,
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestVerifyInvoiceRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	storeID := uuid.New()
	target := "/api/v1/invoices/" + uuid.NewString() + "/verify"

	vendor := httptest.NewRequest(http.MethodPost, target, nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleVendor, &storeID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

func TestProposeFeeRequiresVendorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/v1/orders/" + uuid.NewString() + "/fee"

	customer := httptest.NewRequest(http.MethodPost, target, nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}
}

func TestPlaceOrderRequiresCustomerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	storeID := uuid.New()

	vendor := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleVendor, &storeID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

type countingOrdersService struct {
	stubOrdersService
	places *int
}

func (s countingOrdersService) Place(ctx context.Context, input internalorders.PlaceInput) (*models.Order, error) {
	*s.places++
	return s.stubOrdersService.Place(ctx, input)
}

func TestPlaceOrderEnforcesIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	var places int
	router := newRouterWith(cfg, newMemIdemStore(), countingOrdersService{places: &places})
	token := buildToken(t, cfg, enums.UserRoleCustomer, nil)
	body := fmt.Sprintf(`{"store_id":%q,"items":[{"product_id":%q,"qty":2}]}`, uuid.NewString(), uuid.NewString())

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	missing.Header.Set("Authorization", "Bearer "+token)
	missing.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d: %s", resp.Code, resp.Body.String())
	}
	if places != 0 {
		t.Fatalf("service ran without idempotency key")
	}

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	first.Header.Set("Authorization", "Bearer "+token)
	first.Header.Set("Content-Type", "application/json")
	first.Header.Set("Idempotency-Key", "place-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if places != 1 {
		t.Fatalf("expected one placement, got %d", places)
	}

	retry := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	retry.Header.Set("Authorization", "Bearer "+token)
	retry.Header.Set("Content-Type", "application/json")
	retry.Header.Set("Idempotency-Key", "place-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, retry)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if places != 1 {
		t.Fatalf("retried placement reached the service, places=%d", places)
	}
}

func TestListOrdersAllowsAuthenticatedCustomer(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
