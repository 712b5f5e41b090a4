package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/m04kA/SMC-BookingSync/pkg/metrics"
)

type channel struct {
	state  State
	handle Handle
	gen    uint64
}

// Manager владеет жизненным циклом realtime-каналов одной сессии.
// На одну цель открыт не более одного канала; события закрытого или
// переоткрытого канала отбрасываются по номеру поколения.
type Manager struct {
	ctx        context.Context
	transport  Transport
	dispatcher Dispatcher
	logger     Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	channels map[Target]*channel
	nextGen  uint64
	closed   bool
}

// NewManager создает менеджер каналов. ctx - контекст жизни сессии,
// он передаётся в обработчики событий.
func NewManager(ctx context.Context, transport Transport, dispatcher Dispatcher, logger Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		ctx:        ctx,
		transport:  transport,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		channels:   make(map[Target]*channel),
	}
}

// Open открывает канал для цели. Уже открытый канал этой цели сначала
// закрывается, чтобы события не приходили дважды.
func (m *Manager) Open(ctx context.Context, target Target) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	var stale []Handle
	if prev, ok := m.channels[target]; ok {
		stale = m.detachLocked(target, prev, stale)
	}
	m.nextGen++
	gen := m.nextGen
	m.channels[target] = &channel{state: StateOpening, gen: gen}
	m.mu.Unlock()

	m.unsubscribe(stale)

	handle, err := m.transport.Subscribe(ctx, target, func(ev Event) {
		m.deliver(target, gen, ev)
	}, func(cause error) {
		m.lost(target, gen, cause)
	})

	m.mu.Lock()
	ch, ok := m.channels[target]
	current := ok && ch.gen == gen

	if err != nil {
		if current {
			delete(m.channels, target)
		}
		m.mu.Unlock()
		m.logger.Error("Open: subscribe to %s failed: %v", target, err)
		return fmt.Errorf("%w: %s: %v", ErrSubscribe, target, err)
	}

	if !current {
		m.mu.Unlock()
		// канал закрыли или переоткрыли, пока шла подписка
		m.unsubscribe([]Handle{handle})
		return nil
	}

	ch.handle = handle
	ch.state = StateOpen
	m.mu.Unlock()

	m.metrics.ChannelOpened()
	m.logger.Info("Open: channel %s open (gen=%d)", target, gen)
	return nil
}

// Close закрывает канал цели, если он есть
func (m *Manager) Close(target Target) {
	m.mu.Lock()
	var stale []Handle
	if ch, ok := m.channels[target]; ok {
		stale = m.detachLocked(target, ch, stale)
	}
	m.mu.Unlock()

	m.unsubscribe(stale)
}

// CloseAll закрывает все каналы и запрещает открытие новых
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	var stale []Handle
	for target, ch := range m.channels {
		stale = m.detachLocked(target, ch, stale)
	}
	m.mu.Unlock()

	m.unsubscribe(stale)
	m.logger.Info("CloseAll: %d channels closed", len(stale))
}

// Sync приводит набор открытых каналов к want: лишние закрываются,
// недостающие открываются
func (m *Manager) Sync(ctx context.Context, want []Target) error {
	wanted := make(map[Target]struct{}, len(want))
	for _, t := range want {
		wanted[t] = struct{}{}
	}

	for _, t := range m.Targets() {
		if _, ok := wanted[t]; !ok {
			m.Close(t)
		}
	}

	var errs []error
	for _, t := range want {
		if m.State(t) != StateClosed {
			continue
		}
		if err := m.Open(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State текущее состояние канала цели
func (m *Manager) State(target Target) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.channels[target]; ok {
		return ch.state
	}
	return StateClosed
}

// Targets цели с открытыми или открывающимися каналами
func (m *Manager) Targets() []Target {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Target, 0, len(m.channels))
	for t := range m.channels {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// detachLocked убирает канал из таблицы. С этого момента его события
// считаются устаревшими; сам handle освобождается вне блокировки.
func (m *Manager) detachLocked(target Target, ch *channel, stale []Handle) []Handle {
	delete(m.channels, target)
	if ch.state != StateOpen {
		// подписка ещё идёт, Open сам освободит handle
		return stale
	}
	m.metrics.ChannelClosed()
	m.logger.Info("detach: channel %s closed (gen=%d)", target, ch.gen)
	return append(stale, ch.handle)
}

func (m *Manager) unsubscribe(handles []Handle) {
	for _, h := range handles {
		if err := m.transport.Unsubscribe(h); err != nil {
			m.logger.Warn("unsubscribe: handle %s failed: %v", h, err)
		}
	}
}

// lost помечает канал закрытым после обрыва в транспорте.
// Следующий Sync откроет его заново.
func (m *Manager) lost(target Target, gen uint64, cause error) {
	m.mu.Lock()
	ch, ok := m.channels[target]
	current := ok && ch.gen == gen
	wasOpen := current && ch.state == StateOpen
	if current {
		delete(m.channels, target)
	}
	m.mu.Unlock()

	if !current {
		return
	}
	if wasOpen {
		m.metrics.ChannelClosed()
	}
	m.metrics.RealtimeEvent(string(target.Kind), "channel_lost")
	m.logger.Warn("lost: channel %s (gen=%d) lost: %v", target, gen, cause)
}

func (m *Manager) deliver(target Target, gen uint64, ev Event) {
	m.mu.Lock()
	ch, ok := m.channels[target]
	live := ok && ch.gen == gen && !m.closed
	m.mu.Unlock()

	kind := string(target.Kind)
	if !live {
		m.metrics.RealtimeEvent(kind, "dropped_stale")
		m.logger.Warn("deliver: dropping event %s from stale channel gen=%d", ev.RoutingKey(), gen)
		return
	}

	if err := m.dispatch(ev); err != nil {
		outcome := "dropped_failed"
		if errors.Is(err, ErrMalformedEvent) {
			outcome = "dropped_malformed"
		}
		m.metrics.RealtimeEvent(kind, outcome)
		m.logger.Warn("deliver: dropping event %s: %v", ev.RoutingKey(), err)
		return
	}
	m.metrics.RealtimeEvent(kind, "dispatched")
}

// dispatch вызывает обработчик; паника одного события не роняет канал
func (m *Manager) dispatch(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrMalformedEvent, r)
		}
	}()
	return m.dispatcher.Dispatch(m.ctx, ev)
}
