package repository

import (
	"context"
	"database/sql"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

type SellerCredentialRepository struct {
	db DBTX
}

func NewSellerCredentialRepository(db DBTX) *SellerCredentialRepository {
	return &SellerCredentialRepository{db: db}
}

func (r *SellerCredentialRepository) FindBySellerID(ctx context.Context, sellerID uint64) (*entity.SellerCredential, error) {
	query := `
		SELECT id, seller_id, webhook_secret_enc, created_at, updated_at
		FROM seller_credentials
		WHERE seller_id = ?
		LIMIT 1
	`

	cred := &entity.SellerCredential{}
	err := r.db.QueryRowContext(ctx, query, sellerID).Scan(
		&cred.ID,
		&cred.SellerID,
		&cred.WebhookSecretEnc,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *SellerCredentialRepository) Upsert(ctx context.Context, cred *entity.SellerCredential) error {
	query := `
		INSERT INTO seller_credentials (seller_id, webhook_secret_enc, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE webhook_secret_enc = VALUES(webhook_secret_enc), updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.SellerID,
		cred.WebhookSecretEnc,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	return err
}
