package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-BookingSync/internal/realtime"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type subscription struct {
	target realtime.Target
	ch     *amqp.Channel
	tag    string
}

// Transport realtime-транспорт поверх topic exchange.
// Одно соединение на процесс; на каждую подписку свой AMQP-канал и
// эксклюзивная auto-delete очередь, привязанная ключом <kind>.<id>.#
type Transport struct {
	conn     *amqp.Connection
	exchange string
	prefetch int
	log      Logger

	mu   sync.Mutex
	subs map[realtime.Handle]*subscription
}

// NewTransport подключается к брокеру и объявляет exchange
func NewTransport(url, exchange string, prefetch int, log Logger) (*Transport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare exchange %s: %v", ErrSetup, exchange, err)
	}
	if prefetch <= 0 {
		prefetch = 16
	}

	t := &Transport{
		conn:     conn,
		exchange: exchange,
		prefetch: prefetch,
		log:      log,
		subs:     make(map[realtime.Handle]*subscription),
	}
	go t.watchConnection(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return t, nil
}

// Subscribe открывает канал событий цели. deliver вызывается из
// отдельной горутины в порядке поступления сообщений. lost вызывается один
// раз, если поток доставки оборвался не по Unsubscribe (закрытие канала
// брокером или потеря соединения).
func (t *Transport) Subscribe(_ context.Context, target realtime.Target, deliver func(realtime.Event), lost func(error)) (realtime.Handle, error) {
	ch, err := t.conn.Channel()
	if err != nil {
		return "", fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}

	fail := func(step string, err error) (realtime.Handle, error) {
		_ = ch.Close()
		return "", fmt.Errorf("%w: %s for %s: %v", ErrSetup, step, target, err)
	}

	if err := ch.Qos(t.prefetch, 0, false); err != nil {
		return fail("set qos", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, target.BindingKey(), t.exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}

	handle := realtime.Handle(uuid.NewString())
	tag := "sync-" + string(handle)
	msgs, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	t.mu.Lock()
	t.subs[handle] = &subscription{target: target, ch: ch, tag: tag}
	t.mu.Unlock()

	go t.consume(handle, target, msgs, closed, deliver, lost)

	t.log.Info("Subscribe: %s bound to queue %s (handle=%s)", target, q.Name, handle)
	return handle, nil
}

// Unsubscribe отменяет потребителя и закрывает канал подписки.
// Не ждёт завершения горутины доставки.
func (t *Transport) Unsubscribe(handle realtime.Handle) error {
	t.mu.Lock()
	sub, ok := t.subs[handle]
	if ok {
		delete(t.subs, handle)
	}
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	if err := sub.ch.Cancel(sub.tag, false); err != nil {
		t.log.Warn("Unsubscribe: cancel consumer %s: %v", sub.tag, err)
	}
	if err := sub.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("%w: close channel for %s: %v", ErrSetup, sub.target, err)
	}
	return nil
}

// Close закрывает все подписки и соединение
func (t *Transport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[realtime.Handle]*subscription)
	t.mu.Unlock()

	for _, sub := range subs {
		_ = sub.ch.Close()
	}
	return t.conn.Close()
}

func (t *Transport) consume(
	handle realtime.Handle,
	target realtime.Target,
	msgs <-chan amqp.Delivery,
	closed <-chan *amqp.Error,
	deliver func(realtime.Event),
	lost func(error),
) {
	for d := range msgs {
		ev, err := toEvent(target, d.RoutingKey, d.Body)
		if err != nil {
			t.log.Warn("consume: %s: skipping delivery: %v", target, err)
			continue
		}
		deliver(ev)
	}

	// подписку уже сняли через Unsubscribe или Close
	if !t.forget(handle) {
		t.log.Info("consume: %s delivery stream closed", target)
		return
	}

	cause := fmt.Errorf("%w: %s", ErrStreamLost, target)
	select {
	case amqpErr, ok := <-closed:
		if ok && amqpErr != nil {
			cause = fmt.Errorf("%w: %s: %v", ErrStreamLost, target, amqpErr)
		}
	default:
	}
	t.log.Error("consume: %v", cause)
	if lost != nil {
		lost(cause)
	}
}

// forget удаляет подписку; false, если её уже удалили
func (t *Transport) forget(handle realtime.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subs[handle]; !ok {
		return false
	}
	delete(t.subs, handle)
	return true
}

// watchConnection пишет в лог причину потери соединения.
// Подписки узнают о ней сами: их потоки доставки закрываются.
func (t *Transport) watchConnection(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		t.log.Info("watchConnection: connection closed")
		return
	}
	t.log.Error("watchConnection: connection lost: %v", amqpErr)
}

// toEvent собирает событие из ключа маршрутизации и тела сообщения
func toEvent(target realtime.Target, routingKey string, body []byte) (realtime.Event, error) {
	ev, err := realtime.ParseRoutingKey(routingKey)
	if err != nil {
		return realtime.Event{}, err
	}
	if ev.Target != target {
		return realtime.Event{}, fmt.Errorf("%w: key %q does not belong to %s", realtime.ErrMalformedEvent, routingKey, target)
	}
	ev.Payload = body
	return ev, nil
}
