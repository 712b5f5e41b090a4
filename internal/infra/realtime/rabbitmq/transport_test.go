package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
)

func newTestTransport(handles ...realtime.Handle) *Transport {
	t := &Transport{log: logger.NewNop(), subs: make(map[realtime.Handle]*subscription)}
	for _, h := range handles {
		t.subs[h] = &subscription{target: realtime.BookingTarget(8)}
	}
	return t
}

func TestConsume_ReportsLostStream(t *testing.T) {
	tr := newTestTransport("h1")
	target := realtime.BookingTarget(8)

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{RoutingKey: "booking.8.booking.update", Body: []byte(`{}`)}
	close(msgs)
	closed := make(chan *amqp.Error, 1)
	closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker shutdown"}

	var delivered []realtime.Event
	var cause error
	tr.consume("h1", target, msgs, closed, func(ev realtime.Event) {
		delivered = append(delivered, ev)
	}, func(err error) { cause = err })

	assert.Len(t, delivered, 1)
	require.Error(t, cause)
	assert.True(t, errors.Is(cause, ErrStreamLost))
	assert.Contains(t, cause.Error(), "broker shutdown")
	assert.Empty(t, tr.subs)
}

func TestConsume_UnsubscribedStreamIsNotLost(t *testing.T) {
	tr := newTestTransport()

	msgs := make(chan amqp.Delivery)
	close(msgs)

	called := false
	tr.consume("h1", realtime.BookingTarget(8), msgs, make(chan *amqp.Error, 1),
		func(realtime.Event) {}, func(error) { called = true })

	assert.False(t, called)
}

func TestToEvent(t *testing.T) {
	target := realtime.BookingTarget(8)

	ev, err := toEvent(target, "booking.8.booking.update", []byte(`{"id":8}`))
	require.NoError(t, err)
	assert.Equal(t, realtime.EntityBooking, ev.Entity)
	assert.Equal(t, realtime.OpUpdate, ev.Op)
	assert.Equal(t, `{"id":8}`, string(ev.Payload))
}

func TestToEvent_Rejects(t *testing.T) {
	target := realtime.ThreadTarget(3)

	tests := []struct {
		name string
		key  string
	}{
		{name: "other target", key: "thread.4.message.insert"},
		{name: "other kind", key: "booking.3.booking.update"},
		{name: "garbage", key: "thread.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toEvent(target, tt.key, nil)
			assert.True(t, errors.Is(err, realtime.ErrMalformedEvent))
		})
	}
}
