package notifications

import (
	"context"
	"fmt"

	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
)

// Message is a rendered shopper notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the structured log instead of a mail provider.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds a sender backed by logg.
func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	s.logg.Info(logCtx, "notification sent")
	return nil
}

// Render turns a notification request into a message.
func Render(evt payloads.NotificationRequestedEvent) (Message, error) {
	if evt.Email == "" {
		return Message{}, fmt.Errorf("recipient email missing for order %s", evt.OrderNumber)
	}
	total := evt.Currency + " " + evt.TotalAmount.StringFixed(2)
	switch evt.Kind {
	case enums.NotificationOrderConfirmation:
		return Message{
			To:      evt.Email,
			Subject: fmt.Sprintf("Order %s confirmed", evt.OrderNumber),
			Body:    fmt.Sprintf("Thanks for shopping with Kartly. We received your payment of %s for order %s.", total, evt.OrderNumber),
		}, nil
	case enums.NotificationOrderDelivered:
		return Message{
			To:      evt.Email,
			Subject: fmt.Sprintf("Order %s delivered", evt.OrderNumber),
			Body:    fmt.Sprintf("Your order %s has been delivered. Enjoy!", evt.OrderNumber),
		}, nil
	default:
		return Message{}, fmt.Errorf("unsupported notification kind %q", evt.Kind)
	}
}
