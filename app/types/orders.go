package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type OrderItemInput struct {
	Name           string `json:"name"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type CreateOrderRequest struct {
	CustomerName   string           `json:"customer_name"`
	CustomerPhone  string           `json:"customer_phone"`
	Currency       string           `json:"currency"`
	Items          []OrderItemInput `json:"items"`
	PaymentMethod  string           `json:"payment_method"`
	GatewayOrderID string           `json:"gateway_order_id"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.CustomerName = strings.TrimSpace(body.CustomerName)
	body.CustomerPhone = strings.TrimSpace(body.CustomerPhone)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.PaymentMethod = strings.ToUpper(strings.TrimSpace(body.PaymentMethod))
	body.GatewayOrderID = strings.TrimSpace(body.GatewayOrderID)

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("items are required")
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return errors.New("item name is required")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be > 0")
		}
		if item.UnitPriceCents < 0 {
			return errors.New("item unit_price_cents must be >= 0")
		}
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	switch r.PaymentMethod {
	case "COD", "UPI_MANUAL", "GATEWAY":
	default:
		return errors.New("payment_method must be COD, UPI_MANUAL, or GATEWAY")
	}
	if r.PaymentMethod == "GATEWAY" && r.GatewayOrderID == "" {
		return errors.New("gateway_order_id is required for gateway payments")
	}
	return nil
}

type OrderIDRequest struct {
	ID uint64
}

func NewOrderIDRequestFromContext(ctx echo.Context) (*OrderIDRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &OrderIDRequest{ID: id}, nil
}

func (r *OrderIDRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type PaymentProofRequest struct {
	ID            uint64 `json:"-"`
	TransactionID string `json:"transaction_id"`
	ScreenshotURL string `json:"screenshot_url"`
	Notes         string `json:"notes"`
}

func NewPaymentProofRequestFromContext(ctx echo.Context) (*PaymentProofRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body PaymentProofRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id
	body.TransactionID = strings.TrimSpace(body.TransactionID)
	body.ScreenshotURL = strings.TrimSpace(body.ScreenshotURL)
	body.Notes = strings.TrimSpace(body.Notes)

	return &body, nil
}

func (r *PaymentProofRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	if r.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	return nil
}

type ConfirmPaymentRequest struct {
	ID     uint64 `json:"-"`
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

func NewConfirmPaymentRequestFromContext(ctx echo.Context) (*ConfirmPaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body ConfirmPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id
	body.Action = strings.ToLower(strings.TrimSpace(body.Action))
	body.Notes = strings.TrimSpace(body.Notes)

	return &body, nil
}

func (r *ConfirmPaymentRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	if r.Action != "confirm" && r.Action != "reject" {
		return errors.New("action must be confirm or reject")
	}
	return nil
}

type CODCollectRequest struct {
	ID          uint64 `json:"-"`
	CollectedBy string `json:"collected_by"`
	Notes       string `json:"notes"`
}

func NewCODCollectRequestFromContext(ctx echo.Context) (*CODCollectRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body CODCollectRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id
	body.CollectedBy = strings.TrimSpace(body.CollectedBy)
	body.Notes = strings.TrimSpace(body.Notes)

	return &body, nil
}

func (r *CODCollectRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	if r.CollectedBy == "" {
		return errors.New("collected_by is required")
	}
	return nil
}

type CancelOrderRequest struct {
	ID     uint64 `json:"-"`
	Reason string `json:"reason"`
}

func NewCancelOrderRequestFromContext(ctx echo.Context) (*CancelOrderRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body CancelOrderRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.ID = id
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *CancelOrderRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type AdminResolveRequest struct {
	ID     uint64 `json:"-"`
	Action string `json:"action"`
	Note   string `json:"note"`
}

func NewAdminResolveRequestFromContext(ctx echo.Context) (*AdminResolveRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body AdminResolveRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id
	body.Action = strings.ToLower(strings.TrimSpace(body.Action))
	body.Note = strings.TrimSpace(body.Note)

	return &body, nil
}

func (r *AdminResolveRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid order id")
	}
	switch r.Action {
	case "mark_paid", "mark_failed", "request_info":
	default:
		return errors.New("action must be mark_paid, mark_failed, or request_info")
	}
	if r.Note == "" {
		return errors.New("note is required")
	}
	return nil
}

type RotateWebhookSecretRequest struct {
	SellerID uint64 `json:"-"`
	Secret   string `json:"secret"`
}

func NewRotateWebhookSecretRequestFromContext(ctx echo.Context) (*RotateWebhookSecretRequest, error) {
	sellerID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body RotateWebhookSecretRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.SellerID = sellerID
	body.Secret = strings.TrimSpace(body.Secret)

	return &body, nil
}

func (r *RotateWebhookSecretRequest) Validate() error {
	if r.SellerID == 0 {
		return errors.New("invalid seller id")
	}
	if len(r.Secret) < 16 {
		return errors.New("secret must be at least 16 characters")
	}
	return nil
}

type OrderItem struct {
	Name           string `json:"name"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	Id            uint64      `json:"id"`
	Reference     string      `json:"reference"`
	SellerId      uint64      `json:"seller_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Items         []OrderItem `json:"items"`
	SubtotalCents int64       `json:"subtotal_cents"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	InvoiceNumber string      `json:"invoice_number,omitempty"`
	InvoiceUrl    string      `json:"invoice_url,omitempty"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

type OrderEnvelopeResponse struct {
	Order *Order `json:"order"`
}

type Payment struct {
	Id               uint64 `json:"id"`
	OrderId          uint64 `json:"order_id"`
	Method           string `json:"method"`
	Status           string `json:"status"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	GatewayOrderId   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentId string `json:"gateway_payment_id,omitempty"`
	UpiReference     string `json:"upi_reference,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type PaymentsResponse struct {
	OrderId  uint64     `json:"order_id"`
	Payments []*Payment `json:"payments"`
}

type TimelineEntry struct {
	Status    string `json:"status"`
	Note      string `json:"note"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

type TimelineResponse struct {
	OrderId uint64           `json:"order_id"`
	Entries []*TimelineEntry `json:"entries"`
}

type WebhookAckResponse struct {
	Status  string `json:"status"`
	EventId string `json:"event_id,omitempty"`
}
