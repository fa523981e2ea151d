package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/repository"
)

const webhookSource = "gateway"

const (
	gatewayEventCaptured = "payment.captured"
	gatewayEventFailed   = "payment.failed"
)

// GatewayWebhookResult reports what the gate did with a delivery.
// Duplicate and Ignored deliveries both answer 200 to the sender.
type GatewayWebhookResult struct {
	EventID   string
	Duplicate bool
	Ignored   bool
	Order     *entity.Order
}

type gatewayEnvelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleGatewayWebhook is the ingestion gate: verify authenticity with
// the per-seller secret over the exact raw bytes, fence duplicates via
// the event ledger, then hand the event to the reconciliation engine.
func (s *OrderService) HandleGatewayWebhook(ctx context.Context, rawBody []byte, signature, messageID string) (*GatewayWebhookResult, error) {
	var envelope gatewayEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook body", ErrValidation)
	}

	gatewayOrderID := strings.TrimSpace(envelope.Payload.Payment.Entity.OrderID)
	if gatewayOrderID == "" {
		return nil, fmt.Errorf("%w: webhook payload has no order_id", ErrValidation)
	}

	payment, err := s.paymentRepo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	secret, err := s.webhookSecret(ctx, payment.SellerID)
	if err != nil {
		return nil, err
	}
	if !verifyWebhookSignature(rawBody, signature, secret) {
		// Never persisted: an unauthenticated delivery must not touch
		// the ledger.
		return nil, ErrInvalidSignature
	}

	eventID := strings.TrimSpace(envelope.ID)
	if eventID == "" {
		eventID = synthesizeEventID(gatewayOrderID, envelope.Payload.Payment.Entity.ID, envelope.Event)
	}

	if err := s.gate.Allow(ctx); err != nil {
		// Refuse before fencing: a delivery rejected during maintenance
		// must stay retryable, not become a swallowed duplicate.
		return nil, ErrMaintenance
	}

	event := &entity.WebhookEvent{
		EventID:   eventID,
		Source:    webhookSource,
		CreatedAt: time.Now().UTC(),
	}
	if id := strings.TrimSpace(messageID); id != "" {
		event.MessageID = &id
	}

	if err := s.webhookRepo.Insert(ctx, event); err != nil {
		if errors.Is(err, repository.ErrEventAlreadySeen) {
			// At-most-once: tell the sender it succeeded so it stops
			// retrying, but run no business logic.
			return &GatewayWebhookResult{EventID: eventID, Duplicate: true}, nil
		}
		// Fail closed: without the fence in place the engine must not
		// run, or a sender retry could double-process.
		return nil, err
	}

	result := &GatewayWebhookResult{EventID: eventID}

	var t Transition
	switch envelope.Event {
	case gatewayEventCaptured:
		t = GatewayCaptured{
			PaymentID:        payment.ID,
			GatewayPaymentID: strings.TrimSpace(envelope.Payload.Payment.Entity.ID),
			EventID:          eventID,
		}
	case gatewayEventFailed:
		t = GatewayFailed{
			PaymentID:        payment.ID,
			GatewayPaymentID: strings.TrimSpace(envelope.Payload.Payment.Entity.ID),
			EventID:          eventID,
		}
	default:
		// Unknown event types are fenced and acknowledged but carry no
		// transition.
		result.Ignored = true
		s.markWebhookProcessed(ctx, eventID)
		return result, nil
	}

	order, err := s.ApplyTransition(ctx, payment.OrderID, t)
	if err != nil {
		if errors.Is(err, ErrTerminalStateConflict) {
			// Surface for human review, never auto-resolve. The fence
			// stays so redeliveries of this event are swallowed.
			s.recordWebhookConflict(ctx, payment.OrderID, envelope.Event, eventID, err)
			s.markWebhookProcessed(ctx, eventID)
			return nil, err
		}
		// The engine committed nothing, so release the fence: the
		// sender's retry must re-run the event instead of being
		// swallowed as a duplicate.
		s.releaseWebhookFence(ctx, eventID)
		return nil, err
	}

	s.markWebhookProcessed(ctx, eventID)
	result.Order = order
	return result, nil
}

// RotateWebhookSecret seals and stores a seller's gateway secret.
func (s *OrderService) RotateWebhookSecret(ctx context.Context, sellerID uint64, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%w: secret is required", ErrValidation)
	}

	sealed, err := s.secrets.Seal(secret)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.credRepo.Upsert(ctx, &entity.SellerCredential{
		SellerID:         sellerID,
		WebhookSecretEnc: sealed,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (s *OrderService) webhookSecret(ctx context.Context, sellerID uint64) (string, error) {
	cred, err := s.credRepo.FindBySellerID(ctx, sellerID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		// No configured secret means nothing can be verified; treat as
		// unauthenticated rather than leaking which sellers exist.
		return "", ErrInvalidSignature
	}
	return s.secrets.Open(cred.WebhookSecretEnc)
}

// markWebhookProcessed failing is informational only: the insert already
// fenced duplicates.
func (s *OrderService) markWebhookProcessed(ctx context.Context, eventID string) {
	_ = s.webhookRepo.MarkProcessed(ctx, eventID)
}

// releaseWebhookFence failing is tolerated: the event stays fenced and
// needs an operator replay, which is safer than double-processing.
func (s *OrderService) releaseWebhookFence(ctx context.Context, eventID string) {
	_ = s.webhookRepo.Delete(ctx, eventID)
}

func (s *OrderService) recordWebhookConflict(ctx context.Context, orderID uint64, eventType, eventID string, cause error) {
	_ = s.timelineRepo.Append(ctx, &entity.TimelineEntry{
		OrderID:   orderID,
		Status:    "conflict",
		Note:      fmt.Sprintf("gateway event %s (%s) rejected: %v", eventType, eventID, cause),
		CreatedBy: entity.TimelineActorSystem,
		CreatedAt: time.Now().UTC(),
	})
}

func verifyWebhookSignature(payload []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(supplied, mac.Sum(nil))
}

// synthesizeEventID makes logically identical redeliveries collide when
// the gateway omits an event id.
func synthesizeEventID(gatewayOrderID, gatewayPaymentID, eventType string) string {
	sum := sha256.Sum256([]byte(gatewayOrderID + "|" + gatewayPaymentID + "|" + eventType))
	return "syn_" + hex.EncodeToString(sum[:])
}
