package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/logger"
	"canteen/models"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	published []published
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	_, hasDeadline := ctx.Deadline()
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg, deadline: hasDeadline})
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func testOrder() models.Order {
	return models.Order{
		ID:          7,
		UserID:      3,
		TotalAmount: 112.5,
		CreatedAt:   time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{ID: 1, OrderID: 7, FoodItemID: 14, Quantity: 1, ItemPrice: 100, TotalPrice: 100},
			{ID: 2, OrderID: 7, FoodItemID: 15, Quantity: 1, ItemPrice: 12.5, TotalPrice: 12.5},
		},
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	ch := &fakeChannel{}
	r := NewWithChannel(ch, Config{}, logger.Discard())

	require.NoError(t, r.PublishOrderPlaced(context.Background(), testOrder()))
	require.Len(t, ch.published, 1)

	p := ch.published[0]
	assert.Equal(t, DefaultExchange, p.exchange)
	assert.Equal(t, RoutingKeyOrderPlaced, p.key)
	assert.True(t, p.deadline)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, "order-7", p.msg.MessageId)

	var body OrderPlaced
	require.NoError(t, json.Unmarshal(p.msg.Body, &body))
	assert.Equal(t, int64(7), body.OrderID)
	assert.Equal(t, int64(3), body.UserID)
	assert.Equal(t, 112.5, body.TotalAmount)
	require.Len(t, body.Items, 2)
	assert.Equal(t, OrderPlacedItem{FoodItemID: 15, Quantity: 1, ItemPrice: 12.5, TotalPrice: 12.5}, body.Items[1])
}

func TestPublishOrderPlacedUsesConfiguredExchange(t *testing.T) {
	ch := &fakeChannel{}
	r := NewWithChannel(ch, Config{Exchange: "kitchen"}, nil)

	require.NoError(t, r.PublishOrderPlaced(context.Background(), testOrder()))
	assert.Equal(t, "kitchen", ch.published[0].exchange)

	require.NoError(t, r.Close())
	assert.True(t, ch.closed)
}

func TestPublishOrderPlacedError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	r := NewWithChannel(ch, Config{}, logger.Discard())

	err := r.PublishOrderPlaced(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order 7")
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.PublishOrderPlaced(context.Background(), testOrder()))
	assert.NoError(t, n.Close())
}
