package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-BookingSync/internal/realtime"
)

// publishChannel часть *amqp.Channel, нужная публикатору
type publishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Publisher публикует события изменений в topic exchange.
// Канал, закрытый брокером после ошибки, переоткрывается при следующей публикации.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	open     func() (publishChannel, error)

	mu sync.Mutex
	ch publishChannel
}

// NewPublisher открывает отдельное соединение для публикации
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
	}

	p := newPublisher(exchange, func() (publishChannel, error) {
		return conn.Channel()
	})
	p.conn = conn

	p.mu.Lock()
	err = p.ensureChannelLocked()
	p.mu.Unlock()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(exchange string, open func() (publishChannel, error)) *Publisher {
	return &Publisher{exchange: exchange, open: open}
}

// PublishEvent публикует событие с ключом <kind>.<id>.<entity>.<op>
func (p *Publisher) PublishEvent(ctx context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannelLocked(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, ev.RoutingKey(), err)
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        ev.Payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, ev.RoutingKey(), err)
	}
	return nil
}

// ensureChannelLocked открывает канал и объявляет exchange, если канала нет
// или брокер его закрыл
func (p *Publisher) ensureChannelLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("%w: declare exchange %s: %v", ErrSetup, p.exchange, err)
	}
	p.ch = ch
	return nil
}

// Close закрывает канал и соединение
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
