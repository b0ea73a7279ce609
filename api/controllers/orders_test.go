package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bitedash/bitedash-backend/api/middleware"
	ordersvc "github.com/bitedash/bitedash-backend/internal/orders"
	settlementsvc "github.com/bitedash/bitedash-backend/internal/settlement"
	"github.com/bitedash/bitedash-backend/pkg/db/models"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

type stubSettlement struct {
	order *models.Order
	err   error
	input settlementsvc.PlaceOrderInput
}

func (s *stubSettlement) PlaceOrder(ctx context.Context, input settlementsvc.PlaceOrderInput) (*models.Order, error) {
	s.input = input
	return s.order, s.err
}

type stubOrders struct {
	order   *models.Order
	err     error
	history []models.OrderStatusHistory
}

func (s *stubOrders) Transition(ctx context.Context, input ordersvc.TransitionInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) VerifyPickup(ctx context.Context, input ordersvc.VerifyPickupInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) Rate(ctx context.Context, input ordersvc.RateInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) LookupByPickupToken(ctx context.Context, token string, actorID int64, role enums.ActorRole) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) ListByPayer(ctx context.Context, payerID int64, filter ordersvc.ListFilter) ([]models.Order, error) {
	if s.order == nil {
		return nil, s.err
	}
	return []models.Order{*s.order}, s.err
}

func (s *stubOrders) ListByVendor(ctx context.Context, vendorID int64, filter ordersvc.ListFilter) ([]models.Order, error) {
	if s.order == nil {
		return nil, s.err
	}
	return []models.Order{*s.order}, s.err
}

func (s *stubOrders) History(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	return s.history, s.err
}

func (s *stubOrders) VendorRating(ctx context.Context, vendorID int64) (float64, int64, error) {
	return 4.5, 2, s.err
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:                 42,
		OrderNumber:        "ORD-20260115-00042",
		PayerID:            7,
		VendorID:           9,
		OrganizationID:     3,
		TotalAmount:        decimal.RequireFromString("100.00"),
		CommissionRate:     decimal.RequireFromString("0.15"),
		PlatformCommission: decimal.RequireFromString("15.00"),
		VendorPayout:       decimal.RequireFromString("85.00"),
		Status:             enums.OrderStatusPending,
		PickupToken:        "token",
		PickupOTP:          "123456",
	}
}

func withActor(req *http.Request, userID int64, role enums.ActorRole) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), userID, 3, role))
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestPlaceOrderSuccess(t *testing.T) {
	stub := &stubSettlement{order: sampleOrder()}
	handler := PlaceOrder(stub, nil)

	body := `{"vendor_id":9,"organization_id":3,"total":"100.00","items":[{"menu_item_id":1,"quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = withActor(req, 7, enums.ActorRoleEmployee)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.input.PayerID != 7 {
		t.Fatalf("payer should come from the token, got %d", stub.input.PayerID)
	}
	if !stub.input.ClientTotal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("unexpected client total: %s", stub.input.ClientTotal)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != "ORD-20260115-00042" {
		t.Fatalf("unexpected order number: %s", envelope.Data.OrderNumber)
	}
	if envelope.Data.PickupToken == "" || envelope.Data.PickupOTP == "" {
		t.Fatal("payer response must include pickup credentials")
	}
}

func TestPlaceOrderInvalidTotal(t *testing.T) {
	handler := PlaceOrder(&stubSettlement{order: sampleOrder()}, nil)

	body := `{"vendor_id":9,"organization_id":3,"total":"not-a-number","items":[{"menu_item_id":1,"quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = withActor(req, 7, enums.ActorRoleEmployee)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPlaceOrderMissingItems(t *testing.T) {
	handler := PlaceOrder(&stubSettlement{order: sampleOrder()}, nil)

	body := `{"vendor_id":9,"organization_id":3,"total":"100.00","items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = withActor(req, 7, enums.ActorRoleEmployee)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetOrderHidesPickupFromVendor(t *testing.T) {
	handler := GetOrder(&stubOrders{order: sampleOrder()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	req = withActor(req, 9, enums.ActorRoleVendor)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PickupToken != "" || envelope.Data.PickupOTP != "" {
		t.Fatal("vendor must not see pickup credentials")
	}
}

func TestGetOrderForbiddenForStranger(t *testing.T) {
	handler := GetOrder(&stubOrders{order: sampleOrder()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	req = withActor(req, 555, enums.ActorRoleEmployee)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestTransitionOrderInvalidStatus(t *testing.T) {
	handler := TransitionOrder(&stubOrders{order: sampleOrder()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/42/status", strings.NewReader(`{"status":"COOKING"}`))
	req = withActor(req, 9, enums.ActorRoleVendor)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransitionOrderStateConflict(t *testing.T) {
	stub := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "DELIVERED is terminal")}
	handler := TransitionOrder(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/42/status", strings.NewReader(`{"status":"PREPARING"}`))
	req = withActor(req, 9, enums.ActorRoleVendor)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestVerifyPickupRequiresProof(t *testing.T) {
	handler := VerifyPickup(&stubOrders{order: sampleOrder()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/42/pickup/verify", strings.NewReader(`{}`))
	req = withActor(req, 9, enums.ActorRoleVendor)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRateOrderOutOfRange(t *testing.T) {
	handler := RateOrder(&stubOrders{order: sampleOrder()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/42/rating", strings.NewReader(`{"rating":6}`))
	req = withActor(req, 7, enums.ActorRoleEmployee)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderHistory(t *testing.T) {
	prev := enums.OrderStatusPending
	stub := &stubOrders{history: []models.OrderStatusHistory{
		{OrderID: 42, NewStatus: enums.OrderStatusPending, ChangedBy: 7, ChangedByRole: enums.ActorRoleEmployee},
		{OrderID: 42, PreviousStatus: &prev, NewStatus: enums.OrderStatusPreparing, ChangedBy: 9, ChangedByRole: enums.ActorRoleVendor},
	}}
	handler := OrderHistory(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42/history", nil)
	req = withActor(req, 7, enums.ActorRoleEmployee)
	req = withOrderParam(req, "42")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []orderHistoryResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 entries got %d", len(envelope.Data))
	}
	if envelope.Data[0].PreviousStatus != nil {
		t.Fatal("creation entry must have nil previous status")
	}
	if envelope.Data[1].PreviousStatus == nil || *envelope.Data[1].PreviousStatus != "PENDING" {
		t.Fatal("second entry must carry the prior status")
	}
}
