package repository

import (
	"context"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

type TimelineRepository struct {
	db DBTX
}

func NewTimelineRepository(db DBTX) *TimelineRepository {
	return &TimelineRepository{db: db}
}

func (r *TimelineRepository) Append(ctx context.Context, entry *entity.TimelineEntry) error {
	query := `
		INSERT INTO order_timeline (order_id, status, note, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.OrderID,
		entry.Status,
		entry.Note,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (r *TimelineRepository) ListByOrderID(ctx context.Context, orderID uint64) ([]*entity.TimelineEntry, error) {
	query := `
		SELECT id, order_id, status, note, created_by, created_at
		FROM order_timeline
		WHERE order_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*entity.TimelineEntry, 0)
	for rows.Next() {
		entry := &entity.TimelineEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.Note,
			&entry.CreatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
