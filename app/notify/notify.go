package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sellsutra/ms-go-orders/app/entity"
)

// Notifier is the outbound hook fired when a transition actually changed
// state. Surrounding code plugs in chat/email delivery; the core only
// guarantees it never fires for converged replays.
type Notifier interface {
	OrderStateChanged(ctx context.Context, order *entity.Order, note string)
}

type Discard struct{}

func (Discard) OrderStateChanged(context.Context, *entity.Order, string) {}

// LogNotifier records state changes to the service log. The default
// implementation until a delivery channel is wired in.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logrus.WithField("module", "order-notifier")}
}

func (n *LogNotifier) OrderStateChanged(_ context.Context, order *entity.Order, note string) {
	n.logger.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"reference":      order.Reference,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	}).Info(note)
}
