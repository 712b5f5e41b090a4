package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/service/bookingviews"
	"github.com/m04kA/SMC-BookingSync/internal/service/conversations"
	"github.com/m04kA/SMC-BookingSync/internal/service/countdown"
)

// Session контекст одного пользователя: представления бронирований,
// список разговоров и realtime-каналы. Живёт от входа до выхода.
type Session struct {
	userID int64

	views    *bookingviews.Store
	inbox    *conversations.Inbox
	channels *realtime.Manager

	bookings  BookingStore
	favorites FavoritesStore
	clock     countdown.Clock
	logger    Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool

	// resync сериализует приведение набора каналов к текущим данным
	resync sync.Mutex
}

// UserID владелец сессии
func (s *Session) UserID() int64 {
	return s.userID
}

// Views представления бронирований сессии
func (s *Session) Views() []domain.BookingView {
	return s.views.Snapshot()
}

// View представление одного бронирования
func (s *Session) View(bookingID int64) (domain.BookingView, bool) {
	return s.views.Get(bookingID)
}

// Inbox список разговоров сессии
func (s *Session) Inbox() *conversations.Inbox {
	return s.inbox
}

// ApplyCancelled отражает подтверждённую отмену в представлениях и разговорах
func (s *Session) ApplyCancelled(bookingID int64, reason string, role domain.ActorRole, refund decimal.Decimal, at time.Time) (domain.BookingView, bool) {
	v, ok := s.views.ApplyCancelled(bookingID, reason, role, refund, at)
	if ok {
		s.inbox.SetBookings(s.views.Bookings())
	}
	return v, ok
}

// ApplyBooking применяет свежую версию бронирования. Устаревшая версия
// отбрасывается; для нового бронирования открывается канал.
func (s *Session) ApplyBooking(b *domain.Booking) bool {
	_, known := s.views.Get(b.ID)
	if !s.views.Apply(b, s.clock.Now()) {
		return false
	}
	s.inbox.SetBookings(s.views.Bookings())

	if !known {
		s.syncChannelsAsync()
	}
	return true
}

// load полная загрузка бронирований, тредов и избранного
func (s *Session) load(ctx context.Context) error {
	since := s.views.BeginLoad()
	bookings, err := s.bookings.ListByParticipant(ctx, s.userID)
	if err != nil {
		s.logger.Error("load: list bookings for user=%d: %v", s.userID, err)
		return fmt.Errorf("%w: list bookings: %v", ErrLoad, err)
	}
	s.views.Load(bookings, s.clock.Now(), since)

	if err := s.inbox.Load(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	s.inbox.SetBookings(s.views.Bookings())

	favs, err := s.favorites.Favorites(ctx, s.userID)
	if err != nil {
		// избранное не критично, список придёт со следующим изменением
		s.logger.Warn("load: favorites for user=%d unavailable: %v", s.userID, err)
	} else {
		s.inbox.SetFavorites(favs)
	}

	s.logger.Info("load: user=%d bookings=%d conversations=%d", s.userID, len(bookings), len(s.inbox.Conversations()))
	return nil
}

// targets цели, на которые должны быть открыты каналы
func (s *Session) targets() []realtime.Target {
	bookingIDs := s.views.IDs()
	threadIDs := s.inbox.ThreadIDs()

	out := make([]realtime.Target, 0, len(bookingIDs)+len(threadIDs)+1)
	out = append(out, realtime.UserTarget(s.userID))
	for _, id := range bookingIDs {
		out = append(out, realtime.BookingTarget(id))
	}
	for _, id := range threadIDs {
		out = append(out, realtime.ThreadTarget(id))
	}
	return out
}

// syncChannels приводит открытые каналы к текущему набору целей.
// Ошибки отдельных каналов не прерывают остальные.
func (s *Session) syncChannels(ctx context.Context) {
	s.resync.Lock()
	defer s.resync.Unlock()

	if err := s.channels.Sync(ctx, s.targets()); err != nil {
		s.logger.Warn("syncChannels: user=%d: %v", s.userID, err)
	}
}

// syncChannelsAsync пересинхронизация каналов из обработчика события.
// Закрытие канала из его же горутины доставки недопустимо, поэтому отдельно.
func (s *Session) syncChannelsAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.syncChannels(s.ctx)
	}()
}

func (s *Session) start(tickInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		countdown.Run(s.ctx, tickInterval, s.clock, s.views.Tick)
	}()
	go func() {
		defer s.wg.Done()
		err := s.favorites.Watch(s.ctx, s.userID, s.inbox.SetFavorites)
		if err != nil {
			s.logger.Warn("start: favorites watch for user=%d stopped: %v", s.userID, err)
		}
	}()
}

// stop останавливает тики, подписку на избранное и закрывает все каналы
func (s *Session) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.channels.CloseAll()
	s.wg.Wait()
}
