package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/repository"
)

// ApplyTransition runs one pass of the reconciliation engine: read fresh
// state, plan the transition, commit the order, payment and timeline
// writes as one atomic unit. A lost compare-and-swap re-reads once; if
// the precondition still holds the plan is re-applied, otherwise the
// loser sees the conflict.
func (s *OrderService) ApplyTransition(ctx context.Context, orderID uint64, t Transition) (*entity.Order, error) {
	if err := s.gate.Allow(ctx); err != nil {
		return nil, ErrMaintenance
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		order, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, ErrOrderNotFound
		}

		payment, err := s.transitionPayment(ctx, order, t)
		if err != nil {
			return nil, err
		}

		plan, err := planTransition(order, payment, t)
		if err != nil {
			return nil, err
		}
		if !plan.changed {
			return order, nil
		}

		now := time.Now().UTC()
		commitPayment := materializePayment(order, payment, plan, now)
		applyPlanToOrder(order, plan, now)
		s.assignInvoice(order, plan)

		entry := &entity.TimelineEntry{
			OrderID:   order.ID,
			Status:    plan.timelineStatus,
			Note:      plan.note,
			CreatedBy: plan.actor,
			CreatedAt: now,
		}

		err = s.transitions.Commit(ctx, order, commitPayment, entry)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.notifier.OrderStateChanged(ctx, order, plan.note)
		return order, nil
	}

	return nil, fmt.Errorf("%w: concurrent update, please retry", ErrConflict)
}

// transitionPayment picks the payment row a transition operates on.
// Gateway variants were already correlated by the webhook gate and carry
// the row id; everything else works on the order's active attempt.
func (s *OrderService) transitionPayment(ctx context.Context, order *entity.Order, t Transition) (*entity.Payment, error) {
	var paymentID uint64
	switch v := t.(type) {
	case GatewayCaptured:
		paymentID = v.PaymentID
	case GatewayFailed:
		paymentID = v.PaymentID
	}

	if paymentID != 0 {
		payment, err := s.paymentRepo.FindByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		return payment, nil
	}

	payments, err := s.paymentRepo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if _, ok := t.(CODCollected); ok {
		for _, p := range payments {
			if p != nil && p.Method == entity.PaymentMethodCOD {
				return p, nil
			}
		}
		return nil, nil
	}
	return activePayment(payments), nil
}

// activePayment prefers the settled row, then the most recent attempt
// that has not failed, then the most recent row of any kind.
func activePayment(payments []*entity.Payment) *entity.Payment {
	var latest, latestLive *entity.Payment
	for _, p := range payments {
		if p == nil {
			continue
		}
		if p.Status == entity.PaymentStatusSuccess {
			return p
		}
		latest = p
		if p.Status != entity.PaymentStatusFailed {
			latestLive = p
		}
	}
	if latestLive != nil {
		return latestLive
	}
	return latest
}

// materializePayment turns the plan's payment portion into the row the
// commit writes: nil when no payment is touched, a zero-ID row when a
// fresh settlement attempt replaces a terminal one.
func materializePayment(order *entity.Order, payment *entity.Payment, plan *transitionPlan, now time.Time) *entity.Payment {
	if plan.freshPaymentMethod != "" {
		fresh := &entity.Payment{
			OrderID:      order.ID,
			SellerID:     order.SellerID,
			Method:       plan.freshPaymentMethod,
			Status:       plan.paymentStatus,
			AmountCents:  order.TotalCents,
			Currency:     order.Currency,
			UPIReference: plan.upiReference,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return fresh
	}

	if payment == nil {
		return nil
	}
	if payment.Status == plan.paymentStatus &&
		plan.upiReference == nil && plan.gatewayPaymentID == nil {
		return nil
	}

	payment.Status = plan.paymentStatus
	if plan.upiReference != nil {
		payment.UPIReference = plan.upiReference
	}
	if plan.gatewayPaymentID != nil {
		payment.GatewayPaymentID = plan.gatewayPaymentID
	}
	payment.UpdatedAt = now
	return payment
}

func applyPlanToOrder(order *entity.Order, plan *transitionPlan, now time.Time) {
	order.Status = plan.orderStatus
	order.PaymentStatus = plan.paymentState
	if plan.internalNote != "" {
		order.NotesInternal = appendInternalNote(order.NotesInternal, plan.actor, plan.internalNote, now)
	}
	order.UpdatedAt = now
}

// assignInvoice numbers the order exactly once, on its first transition
// into paid. Replays and later transitions leave it untouched.
func (s *OrderService) assignInvoice(order *entity.Order, plan *transitionPlan) {
	if plan.paymentState != entity.PaymentStatePaid || order.InvoiceNumber != nil {
		return
	}
	number := fmt.Sprintf("INV-%d-%d", order.UpdatedAt.Year(), order.ID)
	order.InvoiceNumber = &number
	if s.cfg.InvoiceBaseURL != "" {
		url := s.cfg.InvoiceBaseURL + "/" + number + ".pdf"
		order.InvoiceURL = &url
	}
}

func appendInternalNote(existing, actor, note string, now time.Time) string {
	line := now.Format("2006-01-02 15:04") + " " + actor + ": " + note
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
