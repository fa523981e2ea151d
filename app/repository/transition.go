package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

// TransitionStore is the only write path for reconciled state. The order
// compare-and-swap, the payment write, and the timeline append commit as
// one unit; any failure rolls all three back.
type TransitionStore struct {
	db *sql.DB
}

func NewTransitionStore(db *sql.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

// CreateOrder inserts a new order together with its first settlement
// attempt and its creation timeline entry. The payment and entry get
// the generated order ID before they are written.
func (s *TransitionStore) CreateOrder(ctx context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := NewOrderRepository(tx).Create(ctx, order); err != nil {
		return err
	}

	payment.OrderID = order.ID
	if err := NewPaymentRepository(tx).Create(ctx, payment); err != nil {
		return err
	}

	entry.OrderID = order.ID
	if err := NewTimelineRepository(tx).Append(ctx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order creation: %w", err)
	}
	return nil
}

// Commit persists a planned transition. A payment with ID zero is a
// fresh settlement attempt and is inserted; otherwise the existing row
// is updated in place.
func (s *TransitionStore) Commit(ctx context.Context, order *entity.Order, payment *entity.Payment, entry *entity.TimelineEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := NewOrderRepository(tx).UpdateTransition(ctx, order); err != nil {
		return err
	}

	if payment != nil {
		payments := NewPaymentRepository(tx)
		if payment.ID == 0 {
			if err := payments.Create(ctx, payment); err != nil {
				return err
			}
		} else if err := payments.Update(ctx, payment); err != nil {
			return err
		}
	}

	if entry != nil {
		if err := NewTimelineRepository(tx).Append(ctx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}
