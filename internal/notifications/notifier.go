package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// UserReader resolves the shopper's contact details.
type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier queues shopper notifications as notification_requested outbox
// rows. Delivery happens in the notification worker.
type Notifier struct {
	tx     txRunner
	outbox outboxPublisher
	users  UserReader
}

// NewNotifier wires the outbox backed notifier.
func NewNotifier(tx txRunner, outbox outboxPublisher, users UserReader) (*Notifier, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	return &Notifier{tx: tx, outbox: outbox, users: users}, nil
}

// SendOrderConfirmation asks for the "order confirmed" message.
func (n *Notifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return n.request(ctx, enums.NotificationOrderConfirmation, order)
}

// SendOrderDelivered asks for the "order delivered" message.
func (n *Notifier) SendOrderDelivered(ctx context.Context, order *models.Order) error {
	return n.request(ctx, enums.NotificationOrderDelivered, order)
}

func (n *Notifier) request(ctx context.Context, kind enums.NotificationKind, order *models.Order) error {
	if order == nil || order.ID == uuid.Nil {
		return errors.New("order required")
	}
	user, err := n.users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.NotificationRequestedEvent{
			Kind:        kind,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Email:       user.Email,
			TotalAmount: order.TotalAmount,
			Currency:    order.Currency,
		},
	}
	return n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := n.outbox.Emit(ctx, tx, event)
		return err
	})
}
