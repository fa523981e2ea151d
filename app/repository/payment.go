package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, order_id, seller_id, method, status, amount_cents, currency,
		gateway_order_id, gateway_payment_id, upi_reference, created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			order_id, seller_id, method, status, amount_cents, currency,
			gateway_order_id, gateway_payment_id, upi_reference, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.SellerID,
		string(payment.Method),
		string(payment.Status),
		payment.AmountCents,
		payment.Currency,
		nullableStringValue(payment.GatewayOrderID),
		nullableStringValue(payment.GatewayPaymentID),
		nullableStringValue(payment.UPIReference),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			status = ?,
			gateway_order_id = ?,
			gateway_payment_id = ?,
			upi_reference = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(payment.Status),
		nullableStringValue(payment.GatewayOrderID),
		nullableStringValue(payment.GatewayPaymentID),
		nullableStringValue(payment.UPIReference),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByGatewayOrderID correlates an inbound webhook to its payment row.
func (r *PaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, gatewayOrderID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID uint64) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var method, status string
	var gatewayOrderID, gatewayPaymentID, upiReference sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.SellerID,
		&method,
		&status,
		&payment.AmountCents,
		&payment.Currency,
		&gatewayOrderID,
		&gatewayPaymentID,
		&upiReference,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.Method = entity.PaymentMethod(method)
	payment.Status = entity.PaymentStatus(status)
	payment.GatewayOrderID = stringPtrFromNull(gatewayOrderID)
	payment.GatewayPaymentID = stringPtrFromNull(gatewayPaymentID)
	payment.UPIReference = stringPtrFromNull(upiReference)

	return nil
}
