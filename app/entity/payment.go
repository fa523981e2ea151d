package entity

import "time"

// PaymentMethod is the rail a settlement attempt runs on.
type PaymentMethod string

const (
	PaymentMethodCOD       PaymentMethod = "COD"
	PaymentMethodUPIManual PaymentMethod = "UPI_MANUAL"
	PaymentMethodGateway   PaymentMethod = "GATEWAY"
)

// PaymentStatus is the state of a single settlement attempt.
type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "PENDING"
	PaymentStatusPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentStatusSuccess             PaymentStatus = "SUCCESS"
	PaymentStatusFailed              PaymentStatus = "FAILED"
)

// Terminal reports whether the status must not be overwritten without
// explicit administrative action.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type Payment struct {
	ID       uint64
	OrderID  uint64
	SellerID uint64

	Method PaymentMethod
	Status PaymentStatus

	AmountCents int64
	Currency    string

	GatewayOrderID   *string
	GatewayPaymentID *string
	UPIReference     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
