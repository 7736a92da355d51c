package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartly/storefront-backend/internal/users"
	"github.com/kartly/storefront-backend/pkg/db"
	"github.com/kartly/storefront-backend/pkg/db/dbtest"
	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/outbox/idempotency"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
	"github.com/kartly/storefront-backend/pkg/redis/redistest"
)

func TestNotifierQueuesNotificationRequest(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, "0")
	n, err := NewNotifier(db.FromConn(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), users.NewRepository(conn))
	require.NoError(t, err)

	order := &models.Order{ID: uuid.New(), OrderNumber: "KRT-20260301-AAAA0001", UserID: user.ID, TotalAmount: decimal.NewFromInt(150), Currency: "INR"}
	require.NoError(t, n.SendOrderConfirmation(context.Background(), order))
	require.NoError(t, n.SendOrderDelivered(context.Background(), order))

	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	kinds := map[enums.NotificationKind]bool{}
	for _, row := range rows {
		assert.Equal(t, enums.EventNotificationRequested, row.EventType)
		assert.Equal(t, order.ID, row.AggregateID)
		var env outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		var evt payloads.NotificationRequestedEvent
		require.NoError(t, json.Unmarshal(env.Data, &evt))
		assert.Equal(t, user.Email, evt.Email)
		kinds[evt.Kind] = true
	}
	assert.True(t, kinds[enums.NotificationOrderConfirmation])
	assert.True(t, kinds[enums.NotificationOrderDelivered])
}

func TestNotifierFailsForUnknownUser(t *testing.T) {
	conn := dbtest.Open(t)
	n, err := NewNotifier(db.FromConn(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), users.NewRepository(conn))
	require.NoError(t, err)

	err = n.SendOrderConfirmation(context.Background(), &models.Order{ID: uuid.New(), UserID: uuid.New()})
	assert.True(t, errors.Is(err, users.ErrNotFound))
}

func TestRender(t *testing.T) {
	evt := payloads.NotificationRequestedEvent{
		Kind: enums.NotificationOrderConfirmation, OrderNumber: "KRT-1", Email: "a@example.com",
		TotalAmount: decimal.NewFromInt(150), Currency: "INR",
	}
	msg, err := Render(evt)
	require.NoError(t, err)
	assert.Equal(t, "Order KRT-1 confirmed", msg.Subject)
	assert.Contains(t, msg.Body, "INR 150.00")

	evt.Kind = enums.NotificationOrderDelivered
	msg, err = Render(evt)
	require.NoError(t, err)
	assert.Equal(t, "Order KRT-1 delivered", msg.Subject)

	evt.Kind = "sms_blast"
	_, err = Render(evt)
	assert.Error(t, err)

	evt.Kind = enums.NotificationOrderDelivered
	evt.Email = ""
	_, err = Render(evt)
	assert.Error(t, err)
}

type recordingSender struct {
	sent []Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestConsumer(t *testing.T, sender Sender) (*Consumer, *redistest.Store) {
	t.Helper()
	store := redistest.New()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	return &Consumer{idempotency: manager, decoders: NewDecoders(), sender: sender, logg: logger.Nop()}, store
}

func notificationMessage(t *testing.T, eventID string) (map[string]string, []byte) {
	t.Helper()
	data, err := json.Marshal(payloads.NotificationRequestedEvent{
		Kind: enums.NotificationOrderConfirmation, OrderID: uuid.New(), OrderNumber: "KRT-9",
		Email: "shopper@example.com", TotalAmount: decimal.NewFromInt(99), Currency: "INR",
	})
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now().UTC(), Data: data})
	require.NoError(t, err)
	return map[string]string{"event_type": string(enums.EventNotificationRequested), "event_id": eventID}, env
}

func TestConsumerDeliversOnce(t *testing.T) {
	sender := &recordingSender{}
	c, _ := newTestConsumer(t, sender)
	attrs, data := notificationMessage(t, uuid.NewString())

	res := c.process(context.Background(), "m1", attrs, data)
	assert.True(t, res.ack)
	res = c.process(context.Background(), "m2", attrs, data)
	assert.True(t, res.ack)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "shopper@example.com", sender.sent[0].To)
}

func TestConsumerSendFailureNacksAndReleases(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	c, _ := newTestConsumer(t, sender)
	attrs, data := notificationMessage(t, uuid.NewString())

	res := c.process(context.Background(), "m1", attrs, data)
	assert.True(t, res.nack)

	sender.err = nil
	res = c.process(context.Background(), "m1", attrs, data)
	assert.True(t, res.ack)
	assert.Len(t, sender.sent, 1, "released key lets the redelivery through")
}

func TestConsumerAcksJunk(t *testing.T) {
	sender := &recordingSender{}
	c, _ := newTestConsumer(t, sender)

	assert.True(t, c.process(context.Background(), "m1", map[string]string{"event_type": "order_confirmed"}, []byte(`{}`)).ack)
	assert.True(t, c.process(context.Background(), "m2", map[string]string{"event_type": string(enums.EventNotificationRequested)}, []byte(`not json`)).ack)
	attrs, data := notificationMessage(t, "not-a-uuid")
	assert.True(t, c.process(context.Background(), "m3", attrs, data).ack)
	assert.Empty(t, sender.sent)
}

func TestConsumerIdempotencyStoreDownNacks(t *testing.T) {
	sender := &recordingSender{}
	c, store := newTestConsumer(t, sender)
	store.Err = errors.New("redis down")
	attrs, data := notificationMessage(t, uuid.NewString())

	assert.True(t, c.process(context.Background(), "m1", attrs, data).nack)
	assert.Empty(t, sender.sent)
}
