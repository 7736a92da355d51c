package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/outbox/idempotency"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
	"github.com/kartly/storefront-backend/pkg/outbox/registry"
)

const consumerName = "notification-worker"

// Consumer delivers notification_requested events pulled from Pub/Sub.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	sender       Sender
	logg         *logger.Logger
}

// NewDecoders registers the payload decoders the consumer understands.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventNotificationRequested, 1, func(payload json.RawMessage) (any, error) {
		var evt payloads.NotificationRequestedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	return decoders
}

// NewConsumer builds the notification consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, sender Sender, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		idempotency:  manager,
		decoders:     NewDecoders(),
		sender:       sender,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	version := envelope.Version
	if version == 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(enums.EventNotificationRequested, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}
	evt := decoded.(payloads.NotificationRequestedEvent)
	logCtx = c.logg.WithOrderID(logCtx, evt.OrderID.String())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	msg, err := Render(evt)
	if err != nil {
		c.logg.Error(logCtx, "notification cannot be rendered", err)
		return processResult{ack: true}
	}
	if err := c.sender.Send(logCtx, msg); err != nil {
		c.logg.Error(logCtx, "notification delivery failed", err)
		if relErr := c.idempotency.Release(ctx, consumerName, envelope.EventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", relErr)
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
