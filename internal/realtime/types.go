package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TargetKind тип объекта подписки
type TargetKind string

const (
	KindBooking TargetKind = "booking"
	KindThread  TargetKind = "thread"
	KindUser    TargetKind = "user" // новые треды и бронирования пользователя
)

// Target объект подписки: бронирование, тред или пользователь
type Target struct {
	Kind TargetKind
	ID   int64
}

func BookingTarget(id int64) Target { return Target{Kind: KindBooking, ID: id} }
func ThreadTarget(id int64) Target  { return Target{Kind: KindThread, ID: id} }
func UserTarget(id int64) Target    { return Target{Kind: KindUser, ID: id} }

func (t Target) String() string {
	return fmt.Sprintf("%s.%d", t.Kind, t.ID)
}

// Entity тип записи в событии
type Entity string

const (
	EntityBooking Entity = "booking"
	EntityThread  Entity = "thread"
	EntityMessage Entity = "message"
)

// Op тип изменения
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Event входящее событие канала
type Event struct {
	Target  Target
	Entity  Entity
	Op      Op
	Payload []byte
}

// RoutingKey ключ маршрутизации события: <kind>.<id>.<entity>.<op>
func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s.%s", e.Target, e.Entity, e.Op)
}

// BindingKey шаблон ключей всех событий цели
func (t Target) BindingKey() string {
	return t.String() + ".#"
}

// ParseRoutingKey разбирает ключ маршрутизации в событие без payload
func ParseRoutingKey(key string) (Event, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 4 {
		return Event{}, fmt.Errorf("%w: routing key %q", ErrMalformedEvent, key)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: routing key %q: bad id", ErrMalformedEvent, key)
	}

	ev := Event{
		Target: Target{Kind: TargetKind(parts[0]), ID: id},
		Entity: Entity(parts[2]),
		Op:     Op(parts[3]),
	}
	switch ev.Target.Kind {
	case KindBooking, KindThread, KindUser:
	default:
		return Event{}, fmt.Errorf("%w: routing key %q: unknown kind", ErrMalformedEvent, key)
	}
	switch ev.Entity {
	case EntityBooking, EntityThread, EntityMessage:
	default:
		return Event{}, fmt.Errorf("%w: routing key %q: unknown entity", ErrMalformedEvent, key)
	}
	if ev.Op != OpInsert && ev.Op != OpUpdate {
		return Event{}, fmt.Errorf("%w: routing key %q: unknown op", ErrMalformedEvent, key)
	}
	return ev, nil
}

// Handle идентификатор подписки в транспорте
type Handle string

// Transport внешний realtime-транспорт. lost вызывается, если подписка
// оборвалась не по Unsubscribe; после этого handle недействителен.
type Transport interface {
	Subscribe(ctx context.Context, target Target, deliver func(Event), lost func(error)) (Handle, error)
	Unsubscribe(handle Handle) error
}

// Dispatcher получатель событий (инкрементальные точки входа компонентов)
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// State состояние канала
type State string

const (
	StateClosed  State = "closed"
	StateOpening State = "opening"
	StateOpen    State = "open"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
