package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	threadRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/thread"
)

const profileFetchConcurrency = 8

// Inbox список разговоров одного пользователя.
// Единственный писатель: все изменения идут через методы Inbox,
// наружу отдаются только копии.
type Inbox struct {
	userID    int64
	threads   ThreadStore
	directory UserDirectory
	logger    Logger

	mu        sync.RWMutex
	index     *Index
	profiles  map[int64]domain.Profile
	bookings  []domain.Booking
	favorites map[int64]bool
	snapshot  []domain.Conversation
	marking   map[string]bool
}

// NewInbox создает пустой inbox пользователя
func NewInbox(userID int64, threads ThreadStore, directory UserDirectory, logger Logger) *Inbox {
	return &Inbox{
		userID:    userID,
		threads:   threads,
		directory: directory,
		logger:    logger,
		index:     NewIndex(),
		profiles:  make(map[int64]domain.Profile),
		favorites: make(map[int64]bool),
		snapshot:  []domain.Conversation{},
		marking:   make(map[string]bool),
	}
}

// Load полная перезагрузка тредов и профилей собеседников
func (in *Inbox) Load(ctx context.Context) error {
	in.logger.Info("Load: loading threads for user=%d", in.userID)

	in.mu.Lock()
	since := in.index.BeginLoad()
	in.mu.Unlock()

	records, err := in.threads.ListByParticipant(ctx, in.userID)
	if err != nil {
		in.logger.Error("Load: thread store error for user=%d: %v", in.userID, err)
		return fmt.Errorf("%w: Load - list threads: %v", ErrTransientNetwork, err)
	}

	profiles := in.fetchProfiles(ctx, Counterparts(records, in.userID))

	in.mu.Lock()
	defer in.mu.Unlock()

	in.index.Reset(records, since)
	for id, p := range profiles {
		in.profiles[id] = p
	}
	in.rebuildLocked()

	in.logger.Info("Load: user=%d has %d threads, %d conversations", in.userID, len(records), len(in.snapshot))
	return nil
}

// ApplyThread инкрементальное обновление по событию треда
func (in *Inbox) ApplyThread(ctx context.Context, rec domain.ChatThreadRecord) bool {
	if !rec.HasParticipant(in.userID) {
		in.logger.Warn("ApplyThread: thread id=%d does not belong to user=%d", rec.ID, in.userID)
		return false
	}

	in.ensureProfile(ctx, rec.Counterpart(in.userID))

	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.index.ApplyThread(rec) {
		return false
	}
	in.rebuildLocked()
	return true
}

// ApplyMessage инкрементальное обновление по событию сообщения
func (in *Inbox) ApplyMessage(msg domain.Message) (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	changed, err := in.index.ApplyMessage(msg)
	if err != nil {
		return false, err
	}
	if changed {
		in.rebuildLocked()
	}
	return changed, nil
}

// SetBookings обновляет бронирования для пометки "Active Job"
func (in *Inbox) SetBookings(bookings []domain.Booking) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.bookings = append(in.bookings[:0:0], bookings...)
	in.rebuildLocked()
}

// SetFavorites обновляет избранных собеседников
func (in *Inbox) SetFavorites(counterpartIDs []int64) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.favorites = make(map[int64]bool, len(counterpartIDs))
	for _, id := range counterpartIDs {
		in.favorites[id] = true
	}
	in.rebuildLocked()
}

// Conversations копия текущего списка разговоров
func (in *Inbox) Conversations() []domain.Conversation {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]domain.Conversation, len(in.snapshot))
	copy(out, in.snapshot)
	return out
}

// TotalUnread общее число непрочитанных
func (in *Inbox) TotalUnread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()

	return TotalUnread(in.snapshot)
}

// ThreadIDs ID всех тредов пользователя, включая неканонические:
// более свежая активность в любом из них может сменить канонический тред
func (in *Inbox) ThreadIDs() []int64 {
	in.mu.RLock()
	defer in.mu.RUnlock()

	records := in.index.Records()
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

// Open маршрут входа в чат разговора
func (in *Inbox) Open(key string) (domain.ChatRoute, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	conv, ok := in.findLocked(key)
	if !ok {
		return domain.ChatRoute{}, ErrConversationNotFound
	}
	return Route(conv), nil
}

// MarkRead помечает прочитанными все входящие сообщения канонического треда.
// Параллельный вызов для того же разговора схлопывается.
func (in *Inbox) MarkRead(ctx context.Context, key string) error {
	in.mu.Lock()
	conv, ok := in.findLocked(key)
	if !ok {
		in.mu.Unlock()
		in.logger.Warn("MarkRead: conversation=%s not present for user=%d", key, in.userID)
		return ErrStaleReference
	}
	if in.marking[key] {
		in.mu.Unlock()
		in.logger.Info("MarkRead: conversation=%s already being marked, coalescing", key)
		return nil
	}
	thread, ok := in.index.Thread(conv.CanonicalThreadID)
	if !ok {
		in.mu.Unlock()
		return ErrStaleReference
	}
	ids := UnreadMessageIDs(thread, in.userID)
	if len(ids) == 0 {
		in.mu.Unlock()
		return nil
	}
	in.marking[key] = true
	in.mu.Unlock()

	err := in.threads.MarkRead(ctx, thread.ID, ids)

	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.marking, key)

	if err != nil {
		if errors.Is(err, threadRepo.ErrThreadNotFound) {
			in.logger.Warn("MarkRead: thread id=%d vanished from store", thread.ID)
			return ErrStaleReference
		}
		in.logger.Error("MarkRead: thread store error for thread id=%d: %v", thread.ID, err)
		return fmt.Errorf("%w: MarkRead - thread store: %v", ErrTransientNetwork, err)
	}

	if !in.index.MarkRead(thread.ID, ids) {
		in.logger.Warn("MarkRead: thread id=%d dropped by concurrent rebuild", thread.ID)
		return ErrStaleReference
	}
	in.rebuildLocked()

	in.logger.Info("MarkRead: marked %d messages read in thread id=%d", len(ids), thread.ID)
	return nil
}

func (in *Inbox) findLocked(key string) (domain.Conversation, bool) {
	for _, c := range in.snapshot {
		if c.Key == key {
			return c, true
		}
	}
	return domain.Conversation{}, false
}

func (in *Inbox) rebuildLocked() {
	convs := Build(in.index.Records(), in.userID, in.profiles)
	convs = Link(convs, in.bookings)
	for i := range convs {
		convs[i].IsFavorite = in.favorites[convs[i].CounterpartID]
	}
	in.snapshot = convs
}

func (in *Inbox) ensureProfile(ctx context.Context, userID int64) {
	in.mu.RLock()
	_, ok := in.profiles[userID]
	in.mu.RUnlock()
	if ok {
		return
	}

	profiles := in.fetchProfiles(ctx, []int64{userID})

	in.mu.Lock()
	for id, p := range profiles {
		in.profiles[id] = p
	}
	in.mu.Unlock()
}

// fetchProfiles параллельно запрашивает профили. Ошибки справочника не
// прерывают загрузку: собеседник остаётся с заглушкой до следующей загрузки.
func (in *Inbox) fetchProfiles(ctx context.Context, userIDs []int64) map[int64]domain.Profile {
	var (
		mu  sync.Mutex
		out = make(map[int64]domain.Profile, len(userIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileFetchConcurrency)

	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			p, err := in.directory.GetProfile(gctx, id)
			if err != nil {
				in.logger.Warn("fetchProfiles: profile for user=%d unavailable: %v", id, err)
				return nil
			}
			mu.Lock()
			out[id] = p.ToDomain()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}
