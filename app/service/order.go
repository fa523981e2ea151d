package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/gate"
	"github.com/sellsutra/ms-go-orders/app/notify"
)

const (
	defaultBatchSize  = int32(100)
	transitionRetries = 2
)

type orderRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
	FindByReference(ctx context.Context, reference string) (*entity.Order, error)
	ListStalePendingVerification(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
}

type paymentRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByOrderID(ctx context.Context, orderID uint64) ([]*entity.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Payment, error)
}

type webhookEventRepository interface {
	Insert(ctx context.Context, event *entity.WebhookEvent) error
	MarkProcessed(ctx context.Context, eventID string) error
	Delete(ctx context.Context, eventID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type timelineRepository interface {
	Append(ctx context.Context, entry *entity.TimelineEntry) error
	ListByOrderID(ctx context.Context, orderID uint64) ([]*entity.TimelineEntry, error)
}

type sellerCredentialRepository interface {
	FindBySellerID(ctx context.Context, sellerID uint64) (*entity.SellerCredential, error)
	Upsert(ctx context.Context, cred *entity.SellerCredential) error
}

type transitionStore interface {
	CreateOrder(ctx context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error
	Commit(ctx context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error
}

// ReconcileConfig carries the tunables the service reads at runtime.
type ReconcileConfig struct {
	WebhookEventRetention time.Duration
	PendingReminderAge    time.Duration
	JobBatchSize          int32
	InvoiceBaseURL        string
}

type OrderService struct {
	orderRepo    orderRepository
	paymentRepo  paymentRepository
	webhookRepo  webhookEventRepository
	timelineRepo timelineRepository
	credRepo     sellerCredentialRepository
	transitions  transitionStore

	gate     gate.Gate
	notifier notify.Notifier
	secrets  *SecretBox

	cfg ReconcileConfig
}

func NewOrderService(
	orderRepo orderRepository,
	paymentRepo paymentRepository,
	webhookRepo webhookEventRepository,
	timelineRepo timelineRepository,
	credRepo sellerCredentialRepository,
	transitions transitionStore,
	opGate gate.Gate,
	notifier notify.Notifier,
	secrets *SecretBox,
	cfg ReconcileConfig,
) *OrderService {
	if opGate == nil {
		opGate = gate.AllowAll{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}

	return &OrderService{
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		webhookRepo:  webhookRepo,
		timelineRepo: timelineRepo,
		credRepo:     credRepo,
		transitions:  transitions,
		gate:         opGate,
		notifier:     notifier,
		secrets:      secrets,
		cfg:          cfg,
	}
}

type CreateOrderInput struct {
	SellerID      uint64
	CustomerName  string
	CustomerPhone string
	Currency      string
	Items         []entity.OrderItem
	PaymentMethod entity.PaymentMethod

	// GatewayOrderID links the payment row to a gateway order created by
	// the storefront when the buyer chose the gateway rail.
	GatewayOrderID string
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	if err := s.gate.Allow(ctx); err != nil {
		return nil, ErrMaintenance
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order must have at least one item", ErrValidation)
	}

	var subtotal int64
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPriceCents < 0 {
			return nil, fmt.Errorf("%w: invalid item quantity or price", ErrValidation)
		}
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}
	if subtotal <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", ErrValidation)
	}

	switch in.PaymentMethod {
	case entity.PaymentMethodCOD, entity.PaymentMethodUPIManual, entity.PaymentMethodGateway:
	default:
		return nil, fmt.Errorf("%w: unsupported payment method", ErrValidation)
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Reference:     newOrderReference(),
		SellerID:      in.SellerID,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		Items:         in.Items,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStateUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	payment := &entity.Payment{
		SellerID:    order.SellerID,
		Method:      in.PaymentMethod,
		Status:      entity.PaymentStatusPending,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if id := strings.TrimSpace(in.GatewayOrderID); id != "" {
		payment.GatewayOrderID = &id
	}

	entry := &entity.TimelineEntry{
		Status:    string(entity.OrderStatusPending),
		Note:      "order created (" + string(in.PaymentMethod) + ")",
		CreatedBy: entity.TimelineActorSystem,
		CreatedAt: now,
	}

	// One unit: an order must never exist without its first settlement
	// attempt and its creation timeline entry.
	if err := s.transitions.CreateOrder(ctx, order, payment, entry); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) GetTimeline(ctx context.Context, orderID uint64) ([]*entity.TimelineEntry, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.timelineRepo.ListByOrderID(ctx, orderID)
}

func (s *OrderService) ListPayments(ctx context.Context, orderID uint64) ([]*entity.Payment, error) {
	return s.paymentRepo.FindByOrderID(ctx, orderID)
}

func (s *OrderService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func newOrderReference() string {
	return "ORD-" + strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}
