package entity

import "time"

// SellerCredential holds a seller's gateway sub-account material.
// WebhookSecretEnc is the AES-GCM sealed webhook secret, never the
// plaintext.
type SellerCredential struct {
	ID       uint64
	SellerID uint64

	WebhookSecretEnc string

	CreatedAt time.Time
	UpdatedAt time.Time
}
