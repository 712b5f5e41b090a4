package bookingviews

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/service/countdown"
	"github.com/m04kA/SMC-BookingSync/internal/service/status"
)

// Store держит производные представления бронирований одного пользователя.
// Единственный писатель - сессия (загрузка, realtime-события, тики часов),
// читатели получают копии.
type Store struct {
	mu        sync.RWMutex
	views     map[int64]*domain.BookingView
	lookAhead time.Duration
	logger    Logger

	// touched поколение загрузки, в котором бронирование последний раз менялось событием
	touched map[int64]uint64
	gen     uint64
}

// NewStore создает пустое хранилище представлений
func NewStore(lookAhead time.Duration, logger Logger) *Store {
	if lookAhead <= 0 {
		lookAhead = domain.DefaultCountdownLookAhead
	}
	return &Store{
		views:     make(map[int64]*domain.BookingView),
		touched:   make(map[int64]uint64),
		lookAhead: lookAhead,
		logger:    logger,
	}
}

// BeginLoad отмечает начало выборки бронирований из БД.
// Возвращённое поколение передаётся в Load.
func (s *Store) BeginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	return s.gen
}

// Load полная перестройка по списку бронирований, выбранному в поколении since.
// Пройденные milestones сохраняются, устаревший статус из выборки не
// откатывает более новый, пришедший через realtime. Бронирование, которого
// нет в выборке, но которое изменилось событием после её начала, остаётся.
func (s *Store) Load(bookings []*domain.Booking, now time.Time, since uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[int64]*domain.BookingView, len(bookings))
	for _, b := range bookings {
		prev := s.views[b.ID]
		if prev != nil && isStale(prev.Booking, b) {
			kept := prev.Clone()
			next[b.ID] = &kept
			continue
		}
		v := s.build(b, prev, now)
		next[b.ID] = &v
	}
	for id, v := range s.views {
		if _, ok := next[id]; ok {
			continue
		}
		if s.touched[id] >= since {
			next[id] = v
			continue
		}
		delete(s.touched, id)
	}
	s.views = next
}

// Apply инкрементальное обновление одного бронирования.
// Возвращает false, если событие устарело и было отброшено.
func (s *Store) Apply(b *domain.Booking, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.views[b.ID]
	if prev != nil && isStale(prev.Booking, b) {
		s.logger.Warn("Apply: dropping stale update for booking id=%d (have=%s, got=%s)",
			b.ID, prev.RawStatus, b.Status)
		return false
	}

	v := s.build(b, prev, now)
	s.views[b.ID] = &v
	s.touched[b.ID] = s.gen
	return true
}

// ApplyCancelled переводит представление в cancelled после подтверждения отмены
func (s *Store) ApplyCancelled(bookingID int64, reason string, role domain.ActorRole, refund decimal.Decimal, at time.Time) (domain.BookingView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.views[bookingID]
	if !ok {
		return domain.BookingView{}, false
	}

	b := prev.Booking
	b.Status = domain.StatusCancelled
	b.CancellationReason = &reason
	b.CancelledBy = &role
	b.RefundAmount = &refund
	b.CancelledAt = &at
	b.UpdatedAt = at

	v := s.build(&b, prev, at)
	s.views[bookingID] = &v
	s.touched[bookingID] = s.gen
	return v.Clone(), true
}

// Tick пересчитывает ETA и отсчёт для всех представлений
func (s *Store) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.views {
		v.ETALabel, v.Countdown = countdown.ETA(&v.Booking, v.CoarseStatus, now, s.lookAhead)
	}
}

// Get возвращает копию представления
func (s *Store) Get(bookingID int64) (domain.BookingView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.views[bookingID]
	if !ok {
		return domain.BookingView{}, false
	}
	return v.Clone(), true
}

// Snapshot все представления, отсортированные по времени начала
func (s *Store) Snapshot() []domain.BookingView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BookingView, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Booking.ScheduledAt.Equal(out[j].Booking.ScheduledAt) {
			return out[i].BookingID < out[j].BookingID
		}
		return out[i].Booking.ScheduledAt.Before(out[j].Booking.ScheduledAt)
	})
	return out
}

// Bookings текущие бронирования (для связывания с чатами)
func (s *Store) Bookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v.Booking)
	}
	return out
}

// IDs идентификаторы бронирований в хранилище
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) build(b *domain.Booking, prev *domain.BookingView, now time.Time) domain.BookingView {
	c := status.Classify(b.Status)
	ms := status.Stamp(c.Milestones, b.Status, b.CreatedAt, b.UpdatedAt)
	if prev != nil {
		ms = status.Merge(prev.Milestones, ms)
	}
	if b.Status == domain.StatusCancelled && b.CancelledAt != nil && len(ms) > 0 {
		last := &ms[len(ms)-1]
		if last.At == nil {
			t := *b.CancelledAt
			last.At = &t
		}
	}

	eta, cd := countdown.ETA(b, c.Coarse, now, s.lookAhead)

	return domain.BookingView{
		BookingID:    b.ID,
		RawStatus:    b.Status,
		CoarseStatus: c.Coarse,
		Progress:     c.Progress,
		Milestones:   ms,
		ETALabel:     eta,
		Countdown:    cd,
		Booking:      *b,
	}
}

// isStale true, если next откатил бы статус назад.
// Неизвестный статус поверх известного тоже отбрасывается: его нельзя
// упорядочить относительно текущего.
func isStale(current domain.Booking, next *domain.Booking) bool {
	curRank, curOK := current.Status.Rank()
	nextRank, nextOK := next.Status.Rank()

	if !nextOK {
		return curOK
	}
	if !curOK {
		return false
	}
	if nextRank != curRank {
		return nextRank < curRank
	}
	return next.UpdatedAt.Before(current.UpdatedAt)
}
