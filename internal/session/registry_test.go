package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/integrations/userservice"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
	"github.com/m04kA/SMC-BookingSync/pkg/metrics"
)

const (
	customer int64 = 1
	provider int64 = 2
	other    int64 = 3
)

var now = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memSub struct {
	target  realtime.Target
	deliver func(realtime.Event)
}

type memTransport struct {
	mu   sync.Mutex
	n    int
	subs map[realtime.Handle]memSub
}

func newMemTransport() *memTransport {
	return &memTransport{subs: make(map[realtime.Handle]memSub)}
}

func (t *memTransport) Subscribe(_ context.Context, target realtime.Target, deliver func(realtime.Event), _ func(error)) (realtime.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	h := realtime.Handle(fmt.Sprintf("h%d", t.n))
	t.subs[h] = memSub{target: target, deliver: deliver}
	return h, nil
}

func (t *memTransport) Unsubscribe(h realtime.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, h)
	return nil
}

func (t *memTransport) has(target realtime.Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		if sub.target == target {
			return true
		}
	}
	return false
}

func (t *memTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *memTransport) publish(ev realtime.Event) {
	t.mu.Lock()
	var deliver []func(realtime.Event)
	for _, sub := range t.subs {
		if sub.target == ev.Target {
			deliver = append(deliver, sub.deliver)
		}
	}
	t.mu.Unlock()
	for _, d := range deliver {
		d(ev)
	}
}

type memBookings struct {
	list []*domain.Booking
	err  error
}

func (b *memBookings) ListByParticipant(_ context.Context, _ int64) ([]*domain.Booking, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]*domain.Booking, 0, len(b.list))
	for _, x := range b.list {
		c := *x
		out = append(out, &c)
	}
	return out, nil
}

type memThreads struct {
	records []domain.ChatThreadRecord
}

func (m *memThreads) ListByParticipant(_ context.Context, _ int64) ([]domain.ChatThreadRecord, error) {
	return m.records, nil
}

func (m *memThreads) MarkRead(context.Context, int64, []int64) error { return nil }

type memDirectory struct{}

func (memDirectory) GetProfile(_ context.Context, userID int64) (*userservice.Profile, error) {
	return &userservice.Profile{ID: userID, Name: "user"}, nil
}

type memFavorites struct {
	favs    []int64
	changes chan []int64
}

func (f *memFavorites) Favorites(context.Context, int64) ([]int64, error) {
	return f.favs, nil
}

func (f *memFavorites) Watch(ctx context.Context, _ int64, onChange func([]int64)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case favs := <-f.changes:
			onChange(favs)
		}
	}
}

type fixture struct {
	registry  *Registry
	transport *memTransport
	bookings  *memBookings
	threads   *memThreads
	favorites *memFavorites
}

func newFixture() *fixture {
	f := &fixture{
		transport: newMemTransport(),
		bookings: &memBookings{list: []*domain.Booking{{
			ID:              10,
			CustomerID:      customer,
			ProviderID:      provider,
			Status:          domain.StatusConfirmed,
			ScheduledAt:     now.Add(30 * time.Minute),
			DurationMinutes: 90,
			Total:           decimal.NewFromInt(100),
			CreatedAt:       now.Add(-24 * time.Hour),
			UpdatedAt:       now.Add(-time.Hour),
		}}},
		threads: &memThreads{records: []domain.ChatThreadRecord{{
			ID:             100,
			ParticipantA:   customer,
			ParticipantB:   provider,
			LastActivityAt: now.Add(-time.Hour),
		}}},
		favorites: &memFavorites{changes: make(chan []int64)},
	}
	f.registry = NewRegistry(f.bookings, f.threads, memDirectory{}, f.favorites, f.transport,
		metrics.New("test"), Options{TickInterval: time.Hour}, logger.NewNop())
	f.registry.clock = fixedClock{t: now}
	return f
}

func (f *fixture) signIn(t *testing.T) *Session {
	t.Helper()
	s, err := f.registry.SignIn(context.Background(), customer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.registry.SignOut(customer) })
	return s
}

func bookingEvent(t *testing.T, target realtime.Target, b *domain.Booking) realtime.Event {
	t.Helper()
	payload, err := realtime.EncodeBooking(b)
	require.NoError(t, err)
	return realtime.Event{Target: target, Entity: realtime.EntityBooking, Op: realtime.OpUpdate, Payload: payload}
}

func TestSignIn_LoadsAndOpensChannels(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	views := s.Views()
	require.Len(t, views, 1)
	assert.Equal(t, domain.CoarseUpcoming, views[0].CoarseStatus)
	require.NotNil(t, views[0].Countdown)
	assert.Equal(t, "starts in 30 minutes", *views[0].Countdown)

	convs := s.Inbox().Conversations()
	require.Len(t, convs, 1)
	assert.True(t, convs[0].HasActiveJob)

	assert.True(t, f.transport.has(realtime.UserTarget(customer)))
	assert.True(t, f.transport.has(realtime.BookingTarget(10)))
	assert.True(t, f.transport.has(realtime.ThreadTarget(100)))

	again, err := f.registry.SignIn(context.Background(), customer)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 3, f.transport.count())
}

func TestSignIn_LoadFailure(t *testing.T) {
	f := newFixture()
	f.bookings.err = errors.New("db down")

	_, err := f.registry.SignIn(context.Background(), customer)
	assert.True(t, errors.Is(err, ErrLoad))

	_, ok := f.registry.Get(customer)
	assert.False(t, ok)
	assert.Equal(t, 0, f.transport.count())
}

func TestSignOut_ClosesEverything(t *testing.T) {
	f := newFixture()
	_, err := f.registry.SignIn(context.Background(), customer)
	require.NoError(t, err)

	require.NoError(t, f.registry.SignOut(customer))
	assert.Equal(t, 0, f.transport.count())
	assert.True(t, errors.Is(f.registry.SignOut(customer), ErrSessionNotFound))
}

func TestDispatch_BookingProgress(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	b := *f.bookings.list[0]
	b.Status = domain.StatusArrived
	b.UpdatedAt = now
	f.transport.publish(bookingEvent(t, realtime.BookingTarget(10), &b))

	v, ok := s.View(10)
	require.True(t, ok)
	assert.Equal(t, domain.CoarseActive, v.CoarseStatus)
	assert.Equal(t, 50, v.Progress)

	// запоздавшее событие со старым статусом не откатывает представление
	old := *f.bookings.list[0]
	old.Status = domain.StatusEnRoute
	f.transport.publish(bookingEvent(t, realtime.BookingTarget(10), &old))

	v, _ = s.View(10)
	assert.Equal(t, domain.StatusArrived, v.RawStatus)
}

func TestDispatch_CompletedBookingClearsActiveJob(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	b := *f.bookings.list[0]
	b.Status = domain.StatusCompleted
	b.UpdatedAt = now
	f.transport.publish(bookingEvent(t, realtime.BookingTarget(10), &b))

	convs := s.Inbox().Conversations()
	require.Len(t, convs, 1)
	assert.False(t, convs[0].HasActiveJob)
}

func TestDispatch_MalformedEventKeepsChannel(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	f.transport.publish(realtime.Event{Target: realtime.ThreadTarget(100), Entity: realtime.EntityMessage, Op: realtime.OpInsert, Payload: []byte(`{broken`)})
	f.transport.publish(realtime.Event{
		Target:  realtime.ThreadTarget(100),
		Entity:  realtime.EntityMessage,
		Op:      realtime.OpInsert,
		Payload: []byte(`{"id":5,"thread_id":100,"sender_id":2,"body":"on my way","created_at":"2025-10-15T10:00:00Z"}`),
	})

	assert.Equal(t, 1, s.Inbox().TotalUnread())
	assert.True(t, f.transport.has(realtime.ThreadTarget(100)))
}

func TestDispatch_ForeignBookingDropped(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	foreign := &domain.Booking{ID: 77, CustomerID: other, ProviderID: provider, Status: domain.StatusPending, UpdatedAt: now}
	f.transport.publish(bookingEvent(t, realtime.UserTarget(customer), foreign))

	_, ok := s.View(77)
	assert.False(t, ok)
}

func TestDispatch_NewThreadOpensChannel(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	f.transport.publish(realtime.Event{
		Target:  realtime.UserTarget(customer),
		Entity:  realtime.EntityThread,
		Op:      realtime.OpInsert,
		Payload: []byte(`{"id":200,"participant_a":3,"participant_b":1,"last_activity_at":"2025-10-15T10:00:00Z"}`),
	})

	assert.Len(t, s.Inbox().Conversations(), 2)
	assert.Eventually(t, func() bool {
		return f.transport.has(realtime.ThreadTarget(200))
	}, time.Second, 10*time.Millisecond)
}

func TestFavoritesPushedToInbox(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	f.favorites.changes <- []int64{provider}

	assert.Eventually(t, func() bool {
		convs := s.Inbox().Conversations()
		return len(convs) == 1 && convs[0].IsFavorite
	}, time.Second, 10*time.Millisecond)
}

func TestRefresh(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	f.bookings.list = append(f.bookings.list, &domain.Booking{
		ID: 11, CustomerID: customer, ProviderID: other, Status: domain.StatusPending,
		ScheduledAt: now.Add(48 * time.Hour), UpdatedAt: now,
	})

	_, err := f.registry.Refresh(context.Background(), customer)
	require.NoError(t, err)
	assert.Len(t, s.Views(), 2)
	assert.True(t, f.transport.has(realtime.BookingTarget(11)))

	_, err = f.registry.Refresh(context.Background(), other)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestApplyCancelled(t *testing.T) {
	f := newFixture()
	s := f.signIn(t)

	v, ok := s.ApplyCancelled(10, "changed plans", domain.RoleCustomer, decimal.Zero, now)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, v.RawStatus)
	assert.Equal(t, domain.CoarseCompleted, v.CoarseStatus)
	assert.False(t, s.Inbox().Conversations()[0].HasActiveJob)
}
