package service

import (
	"context"
	"time"
)

const defaultWebhookEventRetention = 7 * 24 * time.Hour

// RunPurgeWebhookEventsBatch deletes dedup ledger rows older than the
// retention window. Purging only bounds storage growth; events past the
// window are never retried by the gateway.
func (s *OrderService) RunPurgeWebhookEventsBatch(ctx context.Context) (int64, error) {
	retention := s.cfg.WebhookEventRetention
	if retention <= 0 {
		retention = defaultWebhookEventRetention
	}
	cutoff := time.Now().UTC().Add(-retention)
	return s.webhookRepo.DeleteOlderThan(ctx, cutoff)
}

// RunRemindPendingBatch nudges sellers about proofs that have sat in
// pending_verification past the configured age. Purely informational.
func (s *OrderService) RunRemindPendingBatch(ctx context.Context) error {
	age := s.cfg.PendingReminderAge
	if age <= 0 {
		age = 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-age)

	orders, err := s.orderRepo.ListStalePendingVerification(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	for _, order := range orders {
		if order == nil {
			continue
		}
		s.notifier.OrderStateChanged(ctx, order, "payment proof still awaiting seller verification")
	}
	return nil
}
