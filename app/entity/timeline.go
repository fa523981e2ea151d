package entity

import "time"

// TimelineActorSystem is the CreatedBy value for entries the service
// writes on its own behalf (webhooks, sweeps).
const TimelineActorSystem = "system"

// TimelineEntry is an append-only audit record. Entries are never
// mutated or deleted; ordering is created_at then insertion order.
type TimelineEntry struct {
	ID      uint64
	OrderID uint64

	Status    string
	Note      string
	CreatedBy string

	CreatedAt time.Time
}
