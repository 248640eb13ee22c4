package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/api/middleware"
	internalorders "github.com/lmsinform84-bit/orbfood-backend/internal/orders"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db/models"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	pkgerrors "github.com/lmsinform84-bit/orbfood-backend/pkg/errors"
)

type stubOrdersService struct {
	place      func(ctx context.Context, input internalorders.PlaceInput) (*models.Order, error)
	proposeFee func(ctx context.Context, input internalorders.ProposeFeeInput) error
	resolveFee func(ctx context.Context, input internalorders.ResolveFeeInput) error
	advance    func(ctx context.Context, input internalorders.AdvanceInput) error
	cancel     func(ctx context.Context, input internalorders.CancelInput) error
	get        func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	list       func(ctx context.Context, input internalorders.ListInput) (*internalorders.List, error)
}

func (s *stubOrdersService) Place(ctx context.Context, input internalorders.PlaceInput) (*models.Order, error) {
	if s.place != nil {
		return s.place(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) ProposeAdditionalFee(ctx context.Context, input internalorders.ProposeFeeInput) error {
	if s.proposeFee != nil {
		return s.proposeFee(ctx, input)
	}
	return nil
}

func (s *stubOrdersService) ResolveFeeApproval(ctx context.Context, input internalorders.ResolveFeeInput) error {
	if s.resolveFee != nil {
		return s.resolveFee(ctx, input)
	}
	return nil
}

func (s *stubOrdersService) Advance(ctx context.Context, input internalorders.AdvanceInput) error {
	if s.advance != nil {
		return s.advance(ctx, input)
	}
	return nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) error {
	if s.cancel != nil {
		return s.cancel(ctx, input)
	}
	return nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	if s.get != nil {
		return s.get(ctx, orderID, actor)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) List(ctx context.Context, input internalorders.ListInput) (*internalorders.List, error) {
	if s.list != nil {
		return s.list(ctx, input)
	}
	return &internalorders.List{}, nil
}

func authedRequest(method, target, body string, userID uuid.UUID, role enums.UserRole, storeID *uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))

	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role.String())
	if storeID != nil {
		ctx = middleware.WithStoreID(ctx, storeID.String())
	}

	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)

	return req.WithContext(ctx)
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("parse error envelope: %v", err)
	}
	return payload.Error.Code
}

func TestPlaceOrderCreates(t *testing.T) {
	userID := uuid.New()
	storeID := uuid.New()
	productID := uuid.New()

	var captured internalorders.PlaceInput
	svc := &stubOrdersService{
		place: func(_ context.Context, input internalorders.PlaceInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New(), UserID: input.UserID, StoreID: input.StoreID, Status: enums.OrderStatusPending}, nil
		},
	}

	body := `{"store_id":"` + storeID.String() + `","items":[{"product_id":"` + productID.String() + `","qty":2}]}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, userID, enums.UserRoleCustomer, nil, nil)
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != userID {
		t.Fatalf("expected user id %s got %s", userID, captured.UserID)
	}
	if captured.StoreID != storeID {
		t.Fatalf("expected store id %s got %s", storeID, captured.StoreID)
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != productID || captured.Items[0].Qty != 2 {
		t.Fatalf("unexpected items: %+v", captured.Items)
	}
}

func TestPlaceOrderRejectsEmptyItems(t *testing.T) {
	svc := &stubOrdersService{
		place: func(_ context.Context, _ internalorders.PlaceInput) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := `{"store_id":"` + uuid.NewString() + `","items":[]}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), enums.UserRoleCustomer, nil, nil)
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %s", code)
	}
}

func TestPlaceOrderRequiresAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	PlaceOrder(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestProposeOrderFeePassesActorStore(t *testing.T) {
	orderID := uuid.New()
	storeID := uuid.New()

	var captured internalorders.ProposeFeeInput
	svc := &stubOrdersService{
		proposeFee: func(_ context.Context, input internalorders.ProposeFeeInput) error {
			captured = input
			return nil
		},
	}

	body := `{"amount":5000,"note":"remote area"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fee", body, uuid.New(), enums.UserRoleVendor, &storeID, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	ProposeOrderFee(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID {
		t.Fatalf("expected order id %s got %s", orderID, captured.OrderID)
	}
	if captured.Amount != 5000 {
		t.Fatalf("expected amount 5000 got %d", captured.Amount)
	}
	if captured.Note == nil || *captured.Note != "remote area" {
		t.Fatalf("expected note to pass through, got %+v", captured.Note)
	}
	if captured.Actor.StoreID == nil || *captured.Actor.StoreID != storeID {
		t.Fatalf("expected actor store %s got %+v", storeID, captured.Actor.StoreID)
	}
}

func TestProposeOrderFeeRejectsZeroAmount(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		proposeFee: func(_ context.Context, _ internalorders.ProposeFeeInput) error {
			t.Fatal("service should not be called")
			return nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fee", `{"amount":0}`, uuid.New(), enums.UserRoleVendor, nil, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	ProposeOrderFee(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestResolveOrderFeeMapsDecision(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		decision string
		approved bool
	}{
		{"approve", true},
		{"reject", false},
	}
	for _, tt := range tests {
		var captured internalorders.ResolveFeeInput
		svc := &stubOrdersService{
			resolveFee: func(_ context.Context, input internalorders.ResolveFeeInput) error {
				captured = input
				return nil
			},
		}

		body := `{"decision":"` + tt.decision + `"}`
		req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fee/decision", body, uuid.New(), enums.UserRoleCustomer, nil, map[string]string{"orderId": orderID.String()})
		resp := httptest.NewRecorder()
		ResolveOrderFee(svc, nil).ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", tt.decision, resp.Code)
		}
		if captured.Approved != tt.approved {
			t.Fatalf("%s: expected approved=%v got %v", tt.decision, tt.approved, captured.Approved)
		}
	}
}

func TestAdvanceOrderRejectsUnknownEvent(t *testing.T) {
	orderID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/advance", `{"event":"teleport"}`, uuid.New(), enums.UserRoleVendor, nil, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	AdvanceOrder(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelOrderSurfacesServiceError(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		cancel: func(_ context.Context, _ internalorders.CancelInput) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", "", uuid.New(), enums.UserRoleCustomer, nil, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %s", code)
	}
}

func TestListOrdersParsesStatusFilter(t *testing.T) {
	var captured internalorders.ListInput
	svc := &stubOrdersService{
		list: func(_ context.Context, input internalorders.ListInput) (*internalorders.List, error) {
			captured = input
			return &internalorders.List{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders?status=processing&limit=5", "", uuid.New(), enums.UserRoleCustomer, nil, nil)
	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Filters.Status == nil || *captured.Filters.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing filter got %+v", captured.Filters.Status)
	}
	if captured.Params.Limit != 5 {
		t.Fatalf("expected limit 5 got %d", captured.Params.Limit)
	}
}
