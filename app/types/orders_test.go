package types

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func jsonContext(t *testing.T, method, target, body string, paramID string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	if paramID != "" {
		ctx.SetParamNames("id")
		ctx.SetParamValues(paramID)
	}
	return ctx
}

func TestNewCreateOrderRequestFromContextNormalizes(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders", `{"customer_name":"  Asha Rao ","currency":"inr","items":[{"name":"kurta","quantity":1,"unit_price_cents":49900}],"payment_method":"upi_manual"}`, "")

	parsed, err := NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.CustomerName != "Asha Rao" {
		t.Fatalf("name not trimmed: %q", parsed.CustomerName)
	}
	if parsed.Currency != "INR" {
		t.Fatalf("currency not upper-cased: %q", parsed.Currency)
	}
	if parsed.PaymentMethod != "UPI_MANUAL" {
		t.Fatalf("method not normalized: %q", parsed.PaymentMethod)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreateOrderValidate(t *testing.T) {
	req := &CreateOrderRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected items validation error")
	}

	req = &CreateOrderRequest{
		Currency:      "INR",
		Items:         []OrderItemInput{{Name: "kurta", Quantity: 1, UnitPriceCents: 49900}},
		PaymentMethod: "CHEQUE",
	}
	if err := req.Validate(); err == nil {
		t.Fatal("expected payment_method validation error")
	}

	req.PaymentMethod = "GATEWAY"
	if err := req.Validate(); err == nil {
		t.Fatal("expected gateway_order_id validation error")
	}

	req.GatewayOrderID = "gw_order_1"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid gateway request, got %v", err)
	}

	req.Items[0].Quantity = 0
	if err := req.Validate(); err == nil {
		t.Fatal("expected quantity validation error")
	}
}

func TestPaymentProofRequestValidate(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders/5/payment-proof", `{"transaction_id":" UPI123 ","screenshot_url":"https://cdn.example.com/p.png"}`, "5")

	parsed, err := NewPaymentProofRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.ID != 5 || parsed.TransactionID != "UPI123" {
		t.Fatalf("unexpected parse %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.TransactionID = ""
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected transaction_id validation error")
	}
}

func TestConfirmPaymentRequestValidate(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders/5/confirm-payment", `{"action":"CONFIRM"}`, "5")

	parsed, err := NewConfirmPaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Action != "confirm" {
		t.Fatalf("action not lower-cased: %q", parsed.Action)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Action = "approve"
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected action validation error")
	}
}

func TestCancelOrderRequestAllowsEmptyBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/orders/5/cancel", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("5")

	parsed, err := NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestAdminResolveRequestValidate(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders/5/resolve", `{"action":"mark_paid","note":"verified"}`, "5")

	parsed, err := NewAdminResolveRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Note = ""
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected note validation error")
	}

	parsed.Note = "x"
	parsed.Action = "escalate"
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected action validation error")
	}
}

func TestRotateWebhookSecretRequestValidate(t *testing.T) {
	ctx := jsonContext(t, "PUT", "/sellers/7/webhook-secret", `{"secret":"whsec_0123456789abcdef"}`, "7")

	parsed, err := NewRotateWebhookSecretRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.SellerID != 7 {
		t.Fatalf("unexpected seller id %d", parsed.SellerID)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Secret = "short"
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected secret length validation error")
	}
}
