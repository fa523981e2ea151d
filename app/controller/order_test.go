package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sellsutra/ms-go-orders/app/auth"
	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/repository"
	"github.com/sellsutra/ms-go-orders/app/service"
	"github.com/sellsutra/ms-go-orders/app/types"
)

type controllerOrderRepo struct {
	orders map[uint64]*entity.Order
	nextID uint64
}

func (r *controllerOrderRepo) Create(_ context.Context, order *entity.Order) error {
	id := r.nextID
	r.nextID++
	copyItem := *order
	copyItem.ID = id
	r.orders[id] = &copyItem
	order.ID = id
	return nil
}

func (r *controllerOrderRepo) FindByID(_ context.Context, id uint64) (*entity.Order, error) {
	item, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerOrderRepo) FindByReference(_ context.Context, reference string) (*entity.Order, error) {
	for _, item := range r.orders {
		if item.Reference == reference {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerOrderRepo) ListStalePendingVerification(context.Context, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

type controllerPaymentRepo struct {
	payments map[uint64]*entity.Payment
	nextID   uint64
}

func (r *controllerPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	id := r.nextID
	r.nextID++
	copyItem := *payment
	copyItem.ID = id
	r.payments[id] = &copyItem
	payment.ID = id
	return nil
}

func (r *controllerPaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerPaymentRepo) FindByOrderID(_ context.Context, orderID uint64) ([]*entity.Payment, error) {
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if item.OrderID == orderID {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *controllerPaymentRepo) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*entity.Payment, error) {
	for _, item := range r.payments {
		if item.GatewayOrderID != nil && *item.GatewayOrderID == gatewayOrderID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

type controllerWebhookEventRepo struct {
	events map[string]*entity.WebhookEvent
}

func (r *controllerWebhookEventRepo) Insert(_ context.Context, event *entity.WebhookEvent) error {
	if _, ok := r.events[event.EventID]; ok {
		return repository.ErrEventAlreadySeen
	}
	copyItem := *event
	r.events[event.EventID] = &copyItem
	return nil
}

func (r *controllerWebhookEventRepo) MarkProcessed(_ context.Context, eventID string) error {
	if item, ok := r.events[eventID]; ok {
		item.Processed = true
	}
	return nil
}

func (r *controllerWebhookEventRepo) Delete(_ context.Context, eventID string) error {
	delete(r.events, eventID)
	return nil
}

func (r *controllerWebhookEventRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type controllerTimelineRepo struct {
	entries []*entity.TimelineEntry
}

func (r *controllerTimelineRepo) Append(_ context.Context, entry *entity.TimelineEntry) error {
	copyItem := *entry
	copyItem.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, &copyItem)
	return nil
}

func (r *controllerTimelineRepo) ListByOrderID(_ context.Context, orderID uint64) ([]*entity.TimelineEntry, error) {
	items := make([]*entity.TimelineEntry, 0)
	for _, item := range r.entries {
		if item.OrderID == orderID {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	return items, nil
}

type controllerCredentialRepo struct {
	creds map[uint64]*entity.SellerCredential
}

func (r *controllerCredentialRepo) FindBySellerID(_ context.Context, sellerID uint64) (*entity.SellerCredential, error) {
	item, ok := r.creds[sellerID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerCredentialRepo) Upsert(_ context.Context, cred *entity.SellerCredential) error {
	copyItem := *cred
	r.creds[cred.SellerID] = &copyItem
	return nil
}

type controllerTransitionStore struct {
	orders   *controllerOrderRepo
	payments *controllerPaymentRepo
	timeline *controllerTimelineRepo
}

func (s *controllerTransitionStore) CreateOrder(ctx context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error {
	if err := s.orders.Create(ctx, order); err != nil {
		return err
	}
	payment.OrderID = order.ID
	if err := s.payments.Create(ctx, payment); err != nil {
		return err
	}
	entry.OrderID = order.ID
	return s.timeline.Append(ctx, entry)
}

func (s *controllerTransitionStore) Commit(_ context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error {
	stored, ok := s.orders.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return repository.ErrVersionConflict
	}
	order.Version++
	copyOrder := *order
	s.orders.orders[order.ID] = &copyOrder

	if payment != nil {
		if payment.ID == 0 {
			id := s.payments.nextID
			s.payments.nextID++
			copyPayment := *payment
			copyPayment.ID = id
			s.payments.payments[id] = &copyPayment
			payment.ID = id
		} else {
			copyPayment := *payment
			s.payments.payments[payment.ID] = &copyPayment
		}
	}
	if entry != nil {
		_ = s.timeline.Append(context.Background(), entry)
	}
	return nil
}

type controllerFixture struct {
	orderCtrl   *OrderController
	webhookCtrl *WebhookController
	svc         *service.OrderService
	orders      *controllerOrderRepo
	payments    *controllerPaymentRepo
	timeline    *controllerTimelineRepo
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	orders := &controllerOrderRepo{orders: map[uint64]*entity.Order{}, nextID: 1}
	payments := &controllerPaymentRepo{payments: map[uint64]*entity.Payment{}, nextID: 1}
	webhooks := &controllerWebhookEventRepo{events: map[string]*entity.WebhookEvent{}}
	timeline := &controllerTimelineRepo{}
	creds := &controllerCredentialRepo{creds: map[uint64]*entity.SellerCredential{}}
	store := &controllerTransitionStore{orders: orders, payments: payments, timeline: timeline}

	secretBox, err := service.NewSecretBox(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	if err != nil {
		t.Fatalf("create secret box: %v", err)
	}

	svc := service.NewOrderService(
		orders, payments, webhooks, timeline, creds, store,
		nil, nil, secretBox,
		service.ReconcileConfig{JobBatchSize: 10},
	)

	return &controllerFixture{
		orderCtrl:   NewOrderController(svc),
		webhookCtrl: NewWebhookController(svc),
		svc:         svc,
		orders:      orders,
		payments:    payments,
		timeline:    timeline,
	}
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asSeller(ctx echo.Context, sellerID uint64) {
	ctx.Set("auth.identity", &auth.Identity{ActorID: "seller:test", Role: auth.RoleSeller, SellerID: sellerID})
}

func asAdmin(ctx echo.Context) {
	ctx.Set("auth.identity", &auth.Identity{ActorID: "admin:test", Role: auth.RoleAdmin})
}

func seedOrder(t *testing.T, f *controllerFixture, method entity.PaymentMethod) *entity.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), service.CreateOrderInput{
		SellerID:      7,
		CustomerName:  "Asha Rao",
		CustomerPhone: "+911234567890",
		Currency:      "INR",
		Items:         []entity.OrderItem{{Name: "Cotton kurta", Quantity: 1, UnitPriceCents: 49900}},
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestHealth(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newJSONContext(http.MethodGet, "/health", "")

	if err := f.orderCtrl.Health(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateOrderBadBody(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newJSONContext(http.MethodPost, "/orders", "{bad")
	asSeller(ctx, 7)

	_ = f.orderCtrl.CreateOrder(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRequiresSellerAccount(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newJSONContext(http.MethodPost, "/orders", `{"customer_name":"Asha","currency":"INR","items":[{"name":"kurta","quantity":1,"unit_price_cents":49900}],"payment_method":"COD"}`)

	_ = f.orderCtrl.CreateOrder(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newJSONContext(http.MethodPost, "/orders", `{"customer_name":"Asha","customer_phone":"+911234567890","currency":"inr","items":[{"name":"kurta","quantity":2,"unit_price_cents":49900}],"payment_method":"cod"}`)
	asSeller(ctx, 7)

	_ = f.orderCtrl.CreateOrder(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.OrderEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Order == nil || payload.Order.Id == 0 {
		t.Fatalf("unexpected payload %+v", payload.Order)
	}
	if !strings.HasPrefix(payload.Order.Reference, "ORD-") {
		t.Fatalf("unexpected reference %q", payload.Order.Reference)
	}
	if payload.Order.TotalCents != 99800 || payload.Order.Currency != "INR" {
		t.Fatalf("unexpected totals %+v", payload.Order)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newJSONContext(http.MethodGet, "/orders/42", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("42")
	asSeller(ctx, 7)

	_ = f.orderCtrl.GetOrder(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetOrderHiddenFromOtherSellers(t *testing.T) {
	f := newControllerFixture(t)
	order := seedOrder(t, f, entity.PaymentMethodCOD)

	ctx, rec := newJSONContext(http.MethodGet, "/orders/1", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, order.SellerID+1)

	_ = f.orderCtrl.GetOrder(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// Admins see every order.
	ctx, rec = newJSONContext(http.MethodGet, "/orders/1", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asAdmin(ctx)

	_ = f.orderCtrl.GetOrder(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestSellerCannotActOnAnotherSellersOrder(t *testing.T) {
	f := newControllerFixture(t)
	order := seedOrder(t, f, entity.PaymentMethodCOD)

	cases := []struct {
		name    string
		handler func(echo.Context) error
		target  string
		body    string
	}{
		{"confirm payment", f.orderCtrl.ConfirmPayment, "/orders/1/confirm-payment", `{"action":"confirm"}`},
		{"cod collect", f.orderCtrl.CODCollect, "/orders/1/cod-collect", `{"collected_by":"rider"}`},
		{"cancel", f.orderCtrl.CancelOrder, "/orders/1/cancel", `{"reason":"not mine"}`},
		{"timeline", f.orderCtrl.GetTimeline, "/orders/1/timeline", ""},
		{"payments", f.orderCtrl.ListPayments, "/orders/1/payments", ""},
	}
	for _, tc := range cases {
		method := http.MethodPost
		if tc.body == "" {
			method = http.MethodGet
		}
		ctx, rec := newJSONContext(method, tc.target, tc.body)
		ctx.SetParamNames("id")
		ctx.SetParamValues("1")
		asSeller(ctx, order.SellerID+92)

		_ = tc.handler(ctx)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for another seller, got %d", tc.name, rec.Code)
		}
	}

	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Status != entity.OrderStatusPending || stored.PaymentStatus != entity.PaymentStateUnpaid {
		t.Fatalf("foreign seller calls must not move the order, got %s/%s", stored.Status, stored.PaymentStatus)
	}
}

func TestSubmitPaymentProof(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/payment-proof", `{"transaction_id":"UPI123","screenshot_url":"https://cdn.example.com/p.png"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")

	_ = f.orderCtrl.SubmitPaymentProof(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.MessageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if !strings.Contains(payload.Message, "awaiting verification") {
		t.Fatalf("unexpected message %q", payload.Message)
	}
}

func TestSubmitPaymentProofRequiresTransactionID(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/payment-proof", `{"notes":"paid"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")

	_ = f.orderCtrl.SubmitPaymentProof(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfirmPaymentRejectsUnknownAction(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/confirm-payment", `{"action":"approve"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.ConfirmPayment(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfirmPaymentFlow(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/payment-proof", `{"transaction_id":"UPI123"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	_ = f.orderCtrl.SubmitPaymentProof(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("proof failed: %d %s", rec.Code, rec.Body.String())
	}

	ctx, rec = newJSONContext(http.MethodPost, "/orders/1/confirm-payment", `{"action":"confirm","notes":"matches bank"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.ConfirmPayment(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.OrderEnvelopeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload.Order.PaymentStatus != string(entity.PaymentStatePaid) {
		t.Fatalf("expected paid, got %q", payload.Order.PaymentStatus)
	}
	if payload.Order.InvoiceNumber == "" {
		t.Fatalf("expected invoice number in response")
	}
}

func TestCODCollectOnWrongRail(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/cod-collect", `{"collected_by":"rider Kiran"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.CODCollect(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCancelPaidOrderConflicts(t *testing.T) {
	f := newControllerFixture(t)
	order := seedOrder(t, f, entity.PaymentMethodCOD)

	if _, err := f.svc.ApplyTransition(context.Background(), order.ID, service.CODCollected{ActorID: "seller:test", CollectedBy: "rider"}); err != nil {
		t.Fatalf("collect: %v", err)
	}

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/cancel", `{"reason":"late"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.CancelOrder(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAdminResolveRequiresNote(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/resolve", `{"action":"mark_paid"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asAdmin(ctx)

	_ = f.orderCtrl.AdminResolve(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminResolveMarkPaid(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodUPIManual)

	ctx, rec := newJSONContext(http.MethodPost, "/orders/1/resolve", `{"action":"mark_paid","note":"verified out of band"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asAdmin(ctx)

	_ = f.orderCtrl.AdminResolve(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.OrderEnvelopeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload.Order.PaymentStatus != string(entity.PaymentStatePaid) {
		t.Fatalf("expected paid, got %q", payload.Order.PaymentStatus)
	}
}

func TestGetTimeline(t *testing.T) {
	f := newControllerFixture(t)
	seedOrder(t, f, entity.PaymentMethodCOD)

	ctx, rec := newJSONContext(http.MethodGet, "/orders/1/timeline", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.GetTimeline(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload types.TimelineResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.OrderId != 1 || len(payload.Entries) == 0 {
		t.Fatalf("unexpected timeline %+v", payload)
	}
}

func TestListPaymentsShowsAttemptHistory(t *testing.T) {
	f := newControllerFixture(t)
	order := seedOrder(t, f, entity.PaymentMethodUPIManual)

	if _, err := f.svc.ApplyTransition(context.Background(), order.ID, service.BuyerProofSubmitted{TransactionID: "UPI1"}); err != nil {
		t.Fatalf("proof: %v", err)
	}
	if _, err := f.svc.ApplyTransition(context.Background(), order.ID, service.SellerRejectPayment{ActorID: "seller:test"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.ApplyTransition(context.Background(), order.ID, service.BuyerProofSubmitted{TransactionID: "UPI2"}); err != nil {
		t.Fatalf("second proof: %v", err)
	}

	ctx, rec := newJSONContext(http.MethodGet, "/orders/1/payments", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")
	asSeller(ctx, 7)

	_ = f.orderCtrl.ListPayments(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.PaymentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Payments) != 2 {
		t.Fatalf("expected attempt history of 2 rows, got %d", len(payload.Payments))
	}
	if payload.Payments[0].Status != string(entity.PaymentStatusFailed) {
		t.Fatalf("expected first row FAILED, got %s", payload.Payments[0].Status)
	}
	if payload.Payments[1].UpiReference != "UPI2" {
		t.Fatalf("expected fresh row with new reference, got %+v", payload.Payments[1])
	}
}

func TestRotateWebhookSecretTooShort(t *testing.T) {
	f := newControllerFixture(t)

	ctx, rec := newJSONContext(http.MethodPut, "/sellers/7/webhook-secret", `{"secret":"short"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("7")
	asAdmin(ctx)

	_ = f.orderCtrl.RotateWebhookSecret(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
