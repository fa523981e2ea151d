package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")

	// ErrVersionConflict means the row changed between read and write;
	// the caller must re-read and re-plan.
	ErrVersionConflict = errors.New("order version conflict")
)

const orderColumns = `id, reference, seller_id, customer_name, customer_phone, items_json,
		subtotal_cents, total_cents, currency, status, payment_status,
		notes_internal, invoice_number, invoice_url, version, created_at, updated_at`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	itemsJSON, err := serializeItems(order.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			reference, seller_id, customer_name, customer_phone, items_json,
			subtotal_cents, total_cents, currency, status, payment_status,
			notes_internal, invoice_number, invoice_url, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Reference,
		order.SellerID,
		order.CustomerName,
		order.CustomerPhone,
		itemsJSON,
		order.SubtotalCents,
		order.TotalCents,
		order.Currency,
		string(order.Status),
		string(order.PaymentStatus),
		order.NotesInternal,
		nullableStringValue(order.InvoiceNumber),
		nullableStringValue(order.InvoiceURL),
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

// UpdateTransition writes the reconciled state with a compare-and-swap
// on the version column. Zero rows affected means another actor won the
// race and the caller must start over from a fresh read.
func (r *OrderRepository) UpdateTransition(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			status = ?,
			payment_status = ?,
			notes_internal = ?,
			invoice_number = ?,
			invoice_url = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(order.Status),
		string(order.PaymentStatus),
		order.NotesInternal,
		nullableStringValue(order.InvoiceNumber),
		nullableStringValue(order.InvoiceURL),
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	order.Version++
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, id), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE reference = ? LIMIT 1`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, reference), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

// ListStalePendingVerification returns orders whose buyer-submitted
// proof has been waiting on the seller longer than the cutoff.
func (r *OrderRepository) ListStalePendingVerification(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_status = ? AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(entity.PaymentStatePendingVerification), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		item := &entity.Order{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(scan rowScanner, order *entity.Order) error {
	var itemsJSON string
	var status, paymentStatus string
	var invoiceNumber, invoiceURL sql.NullString

	err := scan.Scan(
		&order.ID,
		&order.Reference,
		&order.SellerID,
		&order.CustomerName,
		&order.CustomerPhone,
		&itemsJSON,
		&order.SubtotalCents,
		&order.TotalCents,
		&order.Currency,
		&status,
		&paymentStatus,
		&order.NotesInternal,
		&invoiceNumber,
		&invoiceURL,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.Status = entity.OrderStatus(status)
	order.PaymentStatus = entity.PaymentState(paymentStatus)
	order.InvoiceNumber = stringPtrFromNull(invoiceNumber)
	order.InvoiceURL = stringPtrFromNull(invoiceURL)

	items, err := parseItems(itemsJSON)
	if err != nil {
		return err
	}
	order.Items = items

	return nil
}
