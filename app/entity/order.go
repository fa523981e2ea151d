package entity

import "time"

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusOnHold    OrderStatus = "on_hold"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentState is the settlement state of an order, tracked separately
// from fulfillment.
type PaymentState string

const (
	PaymentStateUnpaid              PaymentState = "unpaid"
	PaymentStatePendingVerification PaymentState = "pending_verification"
	PaymentStatePaid                PaymentState = "paid"
	PaymentStateFailed              PaymentState = "failed"
	PaymentStateRefunded            PaymentState = "refunded"
)

type OrderItem struct {
	Name           string `json:"name"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID        uint64
	Reference string

	SellerID      uint64
	CustomerName  string
	CustomerPhone string

	Items         []OrderItem
	SubtotalCents int64
	TotalCents    int64
	Currency      string

	Status        OrderStatus
	PaymentStatus PaymentState

	NotesInternal string

	InvoiceNumber *string
	InvoiceURL    *string

	// Version is bumped on every committed transition and compared on
	// write, so two actors racing on the same order serialize cleanly.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PastConfirmed reports whether fulfillment already moved beyond the
// confirmed stage, in which case a paid transition must not pull it back.
// A cancelled order is not past confirmed: marking it paid restores it
// to confirmed rather than leaving a cancelled-but-paid order behind.
func (s OrderStatus) PastConfirmed() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}
