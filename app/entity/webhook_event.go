package entity

import "time"

// WebhookEvent is one row in the dedup ledger. EventID is globally
// unique; a duplicate-key failure on insert is the at-most-once fence.
type WebhookEvent struct {
	ID uint64

	EventID   string
	MessageID *string
	Source    string

	Processed bool

	CreatedAt time.Time
}
