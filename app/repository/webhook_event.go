package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

// ErrEventAlreadySeen is the dedup signal: the unique-key insert lost to
// an earlier delivery of the same event. It is not an error to surface.
var ErrEventAlreadySeen = errors.New("webhook event already seen")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Insert(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (event_id, message_id, source, processed, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.EventID,
		nullableStringValue(event.MessageID),
		event.Source,
		event.Processed,
		event.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrEventAlreadySeen
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

// Delete removes a fence row whose processing failed before anything was
// committed, so the sender's retry is not swallowed as a duplicate.
func (r *WebhookEventRepository) Delete(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE event_id = ?`,
		eventID,
	)
	return err
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET processed = 1 WHERE event_id = ?`,
		eventID,
	)
	return err
}

// DeleteOlderThan purges rows past the retention window. Events that old
// are assumed never to be retried by the source.
func (r *WebhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE created_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
