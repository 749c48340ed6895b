package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore-checkout/internal/client/identity"
	"bookstore-checkout/internal/domain"
	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	principal *identity.Principal
	err       error
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*identity.Principal, error) {
	if token == "" {
		return nil, identity.ErrUnauthenticated
	}
	return s.principal, s.err
}

type stubCheckout struct {
	result  domain.CheckoutResult
	err     error
	order   *domain.Order
	getErr  error
	lastKey string
	lastUID string
}

func (s *stubCheckout) Checkout(_ context.Context, userID, idempotencyKey string) (domain.CheckoutResult, error) {
	s.lastUID = userID
	s.lastKey = idempotencyKey
	return s.result, s.err
}

func (s *stubCheckout) GetOrder(_ context.Context, _, _ string) (*domain.Order, error) {
	return s.order, s.getErr
}

func testRouter(t *testing.T, svc CheckoutService, verifier identity.Verifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(testLogWriter{t}, "[test] ", 0)
	router, err := buildRouter(logger, nil, Deps{CheckoutSvc: svc, Identity: verifier})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestCheckout_Unauthenticated(t *testing.T) {
	router := testRouter(t, &stubCheckout{}, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/checkout-microservice/shoppingCart/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckout_IdentityServiceDown(t *testing.T) {
	router := testRouter(t, &stubCheckout{}, &stubVerifier{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/checkout-microservice/shoppingCart/checkout", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCheckout_Committed(t *testing.T) {
	order := &domain.Order{
		ConfirmationNumber: "ORD-TEST",
		UserID:             "u1",
		Lines:              []domain.OrderLine{{ProductID: "A", Title: "Book A", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000}},
		TotalCents:         2000,
		Status:             domain.OrderCommitted,
	}
	svc := &stubCheckout{result: domain.CheckoutResult{
		Status:             domain.CheckoutCommitted,
		ConfirmationNumber: "ORD-TEST",
		Order:              order,
	}}
	router := testRouter(t, svc, &stubVerifier{principal: &identity.Principal{UserID: "u1"}})

	req := httptest.NewRequest(http.MethodPost, "/checkout-microservice/shoppingCart/checkout", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set(idempotencyKeyHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastUID != "u1" {
		t.Fatalf("user id must come from identity, got %q", svc.lastUID)
	}
	if svc.lastKey != "abc-123" {
		t.Fatalf("idempotency key not forwarded, got %q", svc.lastKey)
	}

	var body checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != legacyStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", body.Status)
	}
	if body.OrderNumber != "ORD-TEST" || body.ConfirmationNumber != "ORD-TEST" {
		t.Fatalf("confirmation missing: %+v", body)
	}
	if body.TotalCents != 2000 || len(body.LineItems) != 1 {
		t.Fatalf("structured fields missing: %+v", body)
	}
}

func TestCheckout_InsufficientInventory(t *testing.T) {
	svc := &stubCheckout{result: domain.CheckoutResult{
		Status:          domain.CheckoutFailed,
		Reason:          domain.ReasonInsufficientInventory,
		FailedProductID: "B",
	}}
	router := testRouter(t, svc, &stubVerifier{principal: &identity.Principal{UserID: "u1"}})

	req := httptest.NewRequest(http.MethodPost, "/checkout-microservice/shoppingCart/checkout", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != legacyStatusFailure || body.OrderNumber != "" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.OrderDetails != "Product is Out of Stock: B" {
		t.Fatalf("legacy details mismatch: %q", body.OrderDetails)
	}
	if body.FailedProductID != "B" {
		t.Fatalf("failed product missing: %+v", body)
	}
}

func TestCheckout_UpstreamError(t *testing.T) {
	svc := &stubCheckout{err: errors.New("cart service down")}
	router := testRouter(t, svc, &stubVerifier{principal: &identity.Principal{UserID: "u1"}})

	req := httptest.NewRequest(http.MethodPost, "/checkout-microservice/shoppingCart/checkout", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != legacyStatusRetryable {
		t.Fatalf("expected RETRYABLE, got %s", body.Status)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubCheckout{getErr: domain.ErrNotFound}
	router := testRouter(t, svc, &stubVerifier{principal: &identity.Principal{UserID: "u1"}})

	req := httptest.NewRequest(http.MethodGet, "/checkout-microservice/order/ORD-MISSING", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetOrder_Found(t *testing.T) {
	svc := &stubCheckout{order: &domain.Order{ConfirmationNumber: "ORD-1", UserID: "u1", Status: domain.OrderCommitted}}
	router := testRouter(t, svc, &stubVerifier{principal: &identity.Principal{UserID: "u1"}})

	req := httptest.NewRequest(http.MethodGet, "/checkout-microservice/order/ORD-1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var o domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if o.ConfirmationNumber != "ORD-1" {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(t, &stubCheckout{}, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
