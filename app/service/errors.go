package service

import "errors"

var (
	ErrValidation       = errors.New("invalid request")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrForbidden        = errors.New("forbidden")
	ErrMaintenance      = errors.New("platform is in maintenance mode")

	// ErrConflict means a transition precondition no longer holds, either
	// because of current state or because a concurrent actor won the race.
	ErrConflict = errors.New("order state conflict")

	// ErrTerminalStateConflict means a settled payment would be silently
	// overwritten. Never auto-resolved; routed to admin manual resolve.
	ErrTerminalStateConflict = errors.New("payment is in a terminal state")
)
