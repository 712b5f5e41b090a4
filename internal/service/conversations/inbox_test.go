package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	threadRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/thread"
	"github.com/m04kA/SMC-BookingSync/internal/integrations/userservice"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
)

type fakeThreadStore struct {
	mu       sync.Mutex
	records  []domain.ChatThreadRecord
	listErr  error
	markErr  error
	marked   map[int64][]int64
	markCall int

	// block задерживает MarkRead, пока канал не закрыт
	block   chan struct{}
	entered chan struct{}

	// listBlock задерживает ListByParticipant после снятия выборки
	listBlock   chan struct{}
	listEntered chan struct{}
}

func (f *fakeThreadStore) ListByParticipant(_ context.Context, _ int64) ([]domain.ChatThreadRecord, error) {
	out, err := f.list()
	if f.listEntered != nil {
		close(f.listEntered)
	}
	if f.listBlock != nil {
		<-f.listBlock
	}
	return out, err
}

func (f *fakeThreadStore) list() ([]domain.ChatThreadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.ChatThreadRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (f *fakeThreadStore) MarkRead(_ context.Context, threadID int64, ids []int64) error {
	f.mu.Lock()
	f.markCall++
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.markErr != nil {
		return f.markErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marked == nil {
		f.marked = make(map[int64][]int64)
	}
	f.marked[threadID] = append(f.marked[threadID], ids...)
	return nil
}

type fakeDirectory struct {
	profiles map[int64]string
}

func (d *fakeDirectory) GetProfile(_ context.Context, userID int64) (*userservice.Profile, error) {
	name, ok := d.profiles[userID]
	if !ok {
		return nil, userservice.ErrUserNotFound
	}
	return &userservice.Profile{ID: userID, Name: name}, nil
}

func newInbox(store *fakeThreadStore) *Inbox {
	dir := &fakeDirectory{profiles: map[int64]string{userB: "Bob", userC: "Carol"}}
	return NewInbox(userA, store, dir, logger.NewNop())
}

func loadedInbox(t *testing.T, store *fakeThreadStore) *Inbox {
	t.Helper()
	in := newInbox(store)
	require.NoError(t, in.Load(context.Background()))
	return in
}

func TestInbox_Load(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{
		thread(1, userA, userB, t0, msg(1, userB, "hi", t0, false)),
		thread(2, userB, userA, t0.Add(time.Hour)),
		thread(3, userC, userA, t0, msg(2, userC, "yo", t0, false)),
	}}
	in := loadedInbox(t, store)

	convs := in.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, "Bob", convs[0].Counterpart.Name)
	assert.Equal(t, int64(2), convs[0].CanonicalThreadID)
	assert.Equal(t, 0, convs[0].UnreadCount)
	assert.Equal(t, 1, in.TotalUnread())
	assert.Equal(t, []int64{1, 2, 3}, in.ThreadIDs())
}

func TestInbox_LoadKeepsThreadsAppliedDuringFetch(t *testing.T) {
	store := &fakeThreadStore{
		records:     []domain.ChatThreadRecord{thread(1, userA, userB, t0, msg(1, userB, "old", t0, false))},
		listBlock:   make(chan struct{}),
		listEntered: make(chan struct{}),
	}
	in := newInbox(store)

	done := make(chan error, 1)
	go func() { done <- in.Load(context.Background()) }()

	<-store.listEntered
	// выборка уже снята, а событие о зеркальном треде пришло раньше, чем она применилась
	mirror := thread(2, userB, userA, t0.Add(time.Hour), msg(9, userB, "new", t0.Add(time.Hour), false))
	require.True(t, in.ApplyThread(context.Background(), mirror))
	close(store.listBlock)
	require.NoError(t, <-done)

	convs := in.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, int64(2), convs[0].CanonicalThreadID)
	assert.Equal(t, t0.Add(time.Hour), convs[0].LastActivityAt)
	assert.Equal(t, []int64{1, 2}, in.ThreadIDs())
}

func TestInbox_LoadDropsUntouchedMissingThreads(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{
		thread(1, userA, userB, t0),
		thread(3, userC, userA, t0),
	}}
	in := loadedInbox(t, store)
	in.ApplyThread(context.Background(), thread(4, userA, userC, t0.Add(time.Minute)))

	store.mu.Lock()
	store.records = store.records[:1]
	store.mu.Unlock()
	require.NoError(t, in.Load(context.Background()))

	assert.Equal(t, []int64{1}, in.ThreadIDs())
}

func TestInbox_LoadFailure(t *testing.T) {
	in := newInbox(&fakeThreadStore{listErr: errors.New("connection refused")})

	err := in.Load(context.Background())
	assert.True(t, errors.Is(err, ErrTransientNetwork))
	assert.Empty(t, in.Conversations())
}

func TestInbox_UnknownCounterpartGetsPlaceholder(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{thread(1, userA, 99, t0)}}
	in := loadedInbox(t, store)

	convs := in.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "Unknown user", convs[0].Counterpart.Name)
}

func TestInbox_ApplyThreadMirrorReplacesCanonical(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{
		thread(1, userA, userB, t0, msg(1, userB, "old", t0, false)),
	}}
	in := loadedInbox(t, store)

	mirror := thread(5, userB, userA, t0.Add(time.Hour), msg(9, userB, "new", t0.Add(time.Hour), false))
	assert.True(t, in.ApplyThread(context.Background(), mirror))
	assert.False(t, in.ApplyThread(context.Background(), mirror))

	convs := in.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, int64(5), convs[0].CanonicalThreadID)
	assert.Equal(t, "new", convs[0].LastMessage.Body)
	assert.Equal(t, 1, convs[0].UnreadCount)
}

func TestInbox_ApplyThreadOfOtherUserIgnored(t *testing.T) {
	in := loadedInbox(t, &fakeThreadStore{})
	assert.False(t, in.ApplyThread(context.Background(), thread(1, userB, userC, t0)))
	assert.Empty(t, in.Conversations())
}

func TestInbox_ApplyMessage(t *testing.T) {
	in := loadedInbox(t, &fakeThreadStore{records: []domain.ChatThreadRecord{thread(1, userA, userB, t0)}})

	changed, err := in.ApplyMessage(domain.Message{ID: 3, ThreadID: 1, SenderID: userB, Body: "ping", CreatedAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, in.TotalUnread())

	_, err = in.ApplyMessage(domain.Message{ID: 4, ThreadID: 77, SenderID: userB})
	assert.True(t, errors.Is(err, ErrUnknownThread))
}

func TestInbox_SetBookingsAndFavorites(t *testing.T) {
	in := loadedInbox(t, &fakeThreadStore{records: []domain.ChatThreadRecord{thread(1, userA, userB, t0)}})

	in.SetBookings([]domain.Booking{bookingWith(11, userA, userB, domain.StatusArrived, t0)})
	in.SetFavorites([]int64{userB})

	route, err := in.Open("10_20")
	require.NoError(t, err)
	assert.True(t, route.IsActiveJob)
	assert.Equal(t, int64(11), *route.BookingID)
	assert.True(t, in.Conversations()[0].IsFavorite)

	in.SetBookings(nil)
	route, err = in.Open("10_20")
	require.NoError(t, err)
	assert.False(t, route.IsActiveJob)

	_, err = in.Open("1_2")
	assert.True(t, errors.Is(err, ErrConversationNotFound))
}

func TestInbox_MarkRead(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{
		thread(1, userA, userB, t0,
			msg(1, userB, "a", t0, false),
			msg(2, userA, "mine", t0, false),
			msg(3, userB, "b", t0, false),
		),
	}}
	in := loadedInbox(t, store)

	require.NoError(t, in.MarkRead(context.Background(), "10_20"))
	assert.Equal(t, []int64{1, 3}, store.marked[1])
	assert.Equal(t, 0, in.TotalUnread())

	// повторный вызов без непрочитанных в хранилище не ходит
	require.NoError(t, in.MarkRead(context.Background(), "10_20"))
	assert.Equal(t, 1, store.markCall)
}

func TestInbox_MarkReadStaleReference(t *testing.T) {
	store := &fakeThreadStore{records: []domain.ChatThreadRecord{
		thread(1, userA, userB, t0, msg(1, userB, "a", t0, false)),
	}}
	in := loadedInbox(t, store)

	err := in.MarkRead(context.Background(), "10_99")
	assert.True(t, errors.Is(err, ErrStaleReference))

	store.markErr = fmt.Errorf("%w: MarkRead - id=1", threadRepo.ErrThreadNotFound)
	err = in.MarkRead(context.Background(), "10_20")
	assert.True(t, errors.Is(err, ErrStaleReference))
	assert.Equal(t, 1, in.TotalUnread(), "no local change on failure")
}

func TestInbox_MarkReadTransientFailure(t *testing.T) {
	store := &fakeThreadStore{
		records: []domain.ChatThreadRecord{thread(1, userA, userB, t0, msg(1, userB, "a", t0, false))},
		markErr: errors.New("timeout"),
	}
	in := loadedInbox(t, store)

	err := in.MarkRead(context.Background(), "10_20")
	assert.True(t, errors.Is(err, ErrTransientNetwork))
	assert.Equal(t, 1, in.TotalUnread())

	store.markErr = nil
	require.NoError(t, in.MarkRead(context.Background(), "10_20"))
	assert.Equal(t, 0, in.TotalUnread())
}

func TestInbox_ConcurrentMarkReadCoalesced(t *testing.T) {
	store := &fakeThreadStore{
		records: []domain.ChatThreadRecord{thread(1, userA, userB, t0, msg(1, userB, "a", t0, false))},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	in := loadedInbox(t, store)

	done := make(chan error, 1)
	go func() { done <- in.MarkRead(context.Background(), "10_20") }()

	<-store.entered
	// первый вызов ещё в хранилище: второй схлопывается
	require.NoError(t, in.MarkRead(context.Background(), "10_20"))
	close(store.block)

	require.NoError(t, <-done)
	assert.Equal(t, 1, store.markCall)
	assert.Equal(t, 0, in.TotalUnread())
}

func TestInbox_MarkReadThreadDroppedDuringCall(t *testing.T) {
	store := &fakeThreadStore{
		records: []domain.ChatThreadRecord{thread(1, userA, userB, t0, msg(1, userB, "a", t0, false))},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	in := loadedInbox(t, store)

	done := make(chan error, 1)
	go func() { done <- in.MarkRead(context.Background(), "10_20") }()

	<-store.entered
	// параллельная перезагрузка уже без этого треда
	store.mu.Lock()
	store.records = nil
	store.mu.Unlock()
	require.NoError(t, in.Load(context.Background()))
	close(store.block)

	err := <-done
	assert.True(t, errors.Is(err, ErrStaleReference))
	assert.Empty(t, in.Conversations())
}
