package service

import (
	"fmt"
	"strings"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

// Transition is the closed set of actions that may move an order through
// the reconciliation state machine. Each actor-channel pair has its own
// variant carrying only the fields it needs.
type Transition interface {
	isTransition()
}

// BuyerProofSubmitted is a buyer reporting a manual UPI transfer.
type BuyerProofSubmitted struct {
	TransactionID string
	ScreenshotURL string
	Notes         string
}

// SellerConfirmPayment is the seller accepting a reported payment.
type SellerConfirmPayment struct {
	ActorID string
	Notes   string
}

// SellerRejectPayment is the seller rejecting a reported payment.
type SellerRejectPayment struct {
	ActorID string
	Notes   string
}

// CODCollected is the seller recording cash collected on delivery.
type CODCollected struct {
	ActorID     string
	CollectedBy string
	Notes       string
}

// GatewayCaptured is a verified, deduplicated payment.captured webhook.
type GatewayCaptured struct {
	PaymentID        uint64
	GatewayPaymentID string
	EventID          string
}

// GatewayFailed is a verified, deduplicated payment.failed webhook.
type GatewayFailed struct {
	PaymentID        uint64
	GatewayPaymentID string
	EventID          string
}

// CancelOrder is a seller or admin cancelling fulfillment.
type CancelOrder struct {
	ActorID string
	Reason  string
}

// AdminMarkPaid, AdminMarkFailed and AdminRequestInfo are the manual
// resolve overrides; they bypass normal preconditions and are audited
// as administrative actions.
type AdminMarkPaid struct {
	ActorID string
	Note    string
}

type AdminMarkFailed struct {
	ActorID string
	Note    string
}

type AdminRequestInfo struct {
	ActorID string
	Note    string
}

func (BuyerProofSubmitted) isTransition()  {}
func (SellerConfirmPayment) isTransition() {}
func (SellerRejectPayment) isTransition()  {}
func (CODCollected) isTransition()         {}
func (GatewayCaptured) isTransition()      {}
func (GatewayFailed) isTransition()        {}
func (CancelOrder) isTransition()          {}
func (AdminMarkPaid) isTransition()        {}
func (AdminMarkFailed) isTransition()      {}
func (AdminRequestInfo) isTransition()     {}

// transitionPlan is the computed next state for one transition. changed
// is false when the transition converged on state the order already
// holds; converged replays produce no timeline entry and no side effect.
type transitionPlan struct {
	changed bool

	orderStatus   entity.OrderStatus
	paymentState  entity.PaymentState
	paymentStatus entity.PaymentStatus

	// freshPaymentMethod, when set, means the active payment row is
	// terminal and the transition starts a new settlement attempt
	// instead of mutating the settled row.
	freshPaymentMethod entity.PaymentMethod

	upiReference     *string
	gatewayPaymentID *string

	timelineStatus string
	note           string
	actor          string
	internalNote   string
}

// planTransition is the transition function: pure over the current
// (order, payment) snapshot and the transition variant. It never touches
// storage; the caller commits the plan atomically.
func planTransition(order *entity.Order, payment *entity.Payment, t Transition) (*transitionPlan, error) {
	plan := &transitionPlan{
		orderStatus:  order.Status,
		paymentState: order.PaymentStatus,
		actor:        entity.TimelineActorSystem,
	}
	if payment != nil {
		plan.paymentStatus = payment.Status
	}

	switch v := t.(type) {
	case BuyerProofSubmitted:
		if strings.TrimSpace(v.TransactionID) == "" {
			return nil, fmt.Errorf("%w: transaction id is required", ErrValidation)
		}
		if order.PaymentStatus == entity.PaymentStatePaid {
			return nil, fmt.Errorf("%w: order is already paid", ErrConflict)
		}
		if order.PaymentStatus == entity.PaymentStatePendingVerification && payment != nil &&
			payment.UPIReference != nil && *payment.UPIReference == v.TransactionID {
			return plan, nil
		}
		if order.PaymentStatus != entity.PaymentStateUnpaid &&
			order.PaymentStatus != entity.PaymentStatePendingVerification {
			return nil, fmt.Errorf("%w: payment proof cannot be submitted while %s", ErrConflict, order.PaymentStatus)
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStatePendingVerification
		plan.paymentStatus = entity.PaymentStatusPendingVerification
		ref := strings.TrimSpace(v.TransactionID)
		plan.upiReference = &ref
		if payment == nil || payment.Status.Terminal() || payment.Method != entity.PaymentMethodUPIManual {
			// Manual proof always lands on a UPI attempt; settled or
			// other-rail rows are left alone.
			plan.freshPaymentMethod = entity.PaymentMethodUPIManual
		}
		plan.timelineStatus = string(entity.PaymentStatePendingVerification)
		plan.note = buyerProofNote(v)
		plan.actor = "buyer"

	case SellerConfirmPayment:
		if order.PaymentStatus == entity.PaymentStatePaid {
			return plan, nil
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStatePaid
		plan.paymentStatus = entity.PaymentStatusSuccess
		if !order.Status.PastConfirmed() {
			plan.orderStatus = entity.OrderStatusConfirmed
		}
		if payment == nil || payment.Status == entity.PaymentStatusFailed {
			plan.freshPaymentMethod = entity.PaymentMethodUPIManual
		}
		plan.timelineStatus = string(plan.orderStatus)
		plan.note = withNotes("payment confirmed by seller", v.Notes)
		plan.actor = v.ActorID
		plan.internalNote = v.Notes

	case SellerRejectPayment:
		if order.PaymentStatus == entity.PaymentStatePaid {
			return nil, fmt.Errorf("%w: order is already paid", ErrConflict)
		}
		if order.PaymentStatus == entity.PaymentStateUnpaid &&
			(payment == nil || payment.Status == entity.PaymentStatusFailed) {
			return plan, nil
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStateUnpaid
		plan.paymentStatus = entity.PaymentStatusFailed
		plan.timelineStatus = "payment_rejected"
		plan.note = withNotes("payment rejected by seller", v.Notes)
		plan.actor = v.ActorID
		plan.internalNote = v.Notes

	case CODCollected:
		if payment == nil || payment.Method != entity.PaymentMethodCOD {
			return nil, fmt.Errorf("%w: order has no cash-on-delivery payment", ErrValidation)
		}
		if order.PaymentStatus == entity.PaymentStatePaid {
			return plan, nil
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStatePaid
		plan.paymentStatus = entity.PaymentStatusSuccess
		plan.orderStatus = entity.OrderStatusDelivered
		plan.timelineStatus = string(entity.OrderStatusDelivered)
		plan.note = withNotes("cash collected on delivery by "+v.CollectedBy, v.Notes)
		plan.actor = v.ActorID
		plan.internalNote = v.Notes

	case GatewayCaptured:
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		if payment.Status == entity.PaymentStatusSuccess {
			return plan, nil
		}
		if payment.Status == entity.PaymentStatusFailed {
			return nil, fmt.Errorf("%w: gateway reported capture for a failed payment", ErrTerminalStateConflict)
		}
		if order.PaymentStatus == entity.PaymentStatePaid {
			// Already settled over another rail. Never double-settle
			// silently; route to admin manual resolve.
			return nil, fmt.Errorf("%w: order already paid via %s", ErrTerminalStateConflict, order.PaymentStatus)
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStatePaid
		plan.paymentStatus = entity.PaymentStatusSuccess
		if !order.Status.PastConfirmed() {
			plan.orderStatus = entity.OrderStatusConfirmed
		}
		if id := strings.TrimSpace(v.GatewayPaymentID); id != "" {
			plan.gatewayPaymentID = &id
		}
		plan.timelineStatus = string(plan.orderStatus)
		plan.note = "payment captured by gateway (event " + v.EventID + ")"

	case GatewayFailed:
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		if payment.Status == entity.PaymentStatusSuccess {
			return nil, fmt.Errorf("%w: gateway reported failure for a captured payment", ErrTerminalStateConflict)
		}
		if payment.Status == entity.PaymentStatusFailed {
			return plan, nil
		}
		plan.changed = true
		plan.paymentStatus = entity.PaymentStatusFailed
		if id := strings.TrimSpace(v.GatewayPaymentID); id != "" {
			plan.gatewayPaymentID = &id
		}
		// Order settlement state is untouched: another rail may still be
		// in flight, and a paid order is never regressed by this event.
		plan.timelineStatus = "payment_failed"
		plan.note = "payment failed at gateway (event " + v.EventID + ")"

	case CancelOrder:
		if order.Status == entity.OrderStatusCancelled {
			return plan, nil
		}
		if order.PaymentStatus == entity.PaymentStatePaid {
			return nil, fmt.Errorf("%w: order is already paid, use refund instead", ErrConflict)
		}
		if order.Status == entity.OrderStatusDelivered {
			return nil, fmt.Errorf("%w: delivered orders cannot be cancelled", ErrConflict)
		}
		plan.changed = true
		plan.orderStatus = entity.OrderStatusCancelled
		plan.timelineStatus = string(entity.OrderStatusCancelled)
		plan.note = withNotes("order cancelled", v.Reason)
		plan.actor = v.ActorID
		plan.internalNote = v.Reason

	case AdminMarkPaid:
		if order.PaymentStatus == entity.PaymentStatePaid {
			return plan, nil
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStatePaid
		plan.paymentStatus = entity.PaymentStatusSuccess
		if !order.Status.PastConfirmed() {
			plan.orderStatus = entity.OrderStatusConfirmed
		}
		if payment != nil && payment.Status == entity.PaymentStatusFailed {
			plan.freshPaymentMethod = payment.Method
		}
		plan.timelineStatus = string(plan.orderStatus)
		plan.note = withNotes("administrative override: marked paid", v.Note)
		plan.actor = v.ActorID
		plan.internalNote = v.Note

	case AdminMarkFailed:
		if order.PaymentStatus == entity.PaymentStateFailed {
			return plan, nil
		}
		plan.changed = true
		plan.paymentState = entity.PaymentStateFailed
		if payment != nil {
			// The one sanctioned path that may overwrite a settled row.
			plan.paymentStatus = entity.PaymentStatusFailed
		}
		plan.timelineStatus = "payment_failed"
		plan.note = withNotes("administrative override: marked failed", v.Note)
		plan.actor = v.ActorID
		plan.internalNote = v.Note

	case AdminRequestInfo:
		if order.Status == entity.OrderStatusOnHold {
			return plan, nil
		}
		plan.changed = true
		plan.orderStatus = entity.OrderStatusOnHold
		plan.timelineStatus = string(entity.OrderStatusOnHold)
		plan.note = withNotes("placed on hold pending more information", v.Note)
		plan.actor = v.ActorID
		plan.internalNote = v.Note

	default:
		return nil, fmt.Errorf("%w: unknown transition", ErrValidation)
	}

	return plan, nil
}

func buyerProofNote(v BuyerProofSubmitted) string {
	note := "buyer submitted UPI reference " + strings.TrimSpace(v.TransactionID)
	if strings.TrimSpace(v.ScreenshotURL) != "" {
		note += ", screenshot " + strings.TrimSpace(v.ScreenshotURL)
	}
	return withNotes(note, v.Notes)
}

func withNotes(base, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return base
	}
	return base + ": " + notes
}
