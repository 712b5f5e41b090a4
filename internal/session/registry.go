package session

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/service/bookingviews"
	"github.com/m04kA/SMC-BookingSync/internal/service/conversations"
	"github.com/m04kA/SMC-BookingSync/internal/service/countdown"
	"github.com/m04kA/SMC-BookingSync/pkg/metrics"
)

// Options настройки сессий
type Options struct {
	CountdownLookAhead time.Duration
	TickInterval       time.Duration
}

// Registry активные сессии пользователей
type Registry struct {
	bookings  BookingStore
	threads   conversations.ThreadStore
	directory conversations.UserDirectory
	favorites FavoritesStore
	transport realtime.Transport
	metrics   *metrics.Metrics
	clock     countdown.Clock
	opts      Options
	logger    Logger

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry создает реестр сессий
func NewRegistry(
	bookings BookingStore,
	threads conversations.ThreadStore,
	directory conversations.UserDirectory,
	favorites FavoritesStore,
	transport realtime.Transport,
	m *metrics.Metrics,
	opts Options,
	logger Logger,
) *Registry {
	if opts.CountdownLookAhead <= 0 {
		opts.CountdownLookAhead = domain.DefaultCountdownLookAhead
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = domain.DefaultTickInterval
	}
	return &Registry{
		bookings:  bookings,
		threads:   threads,
		directory: directory,
		favorites: favorites,
		transport: transport,
		metrics:   m,
		clock:     countdown.RealClock{},
		opts:      opts,
		logger:    logger,
		sessions:  make(map[int64]*Session),
	}
}

// SignIn создаёт сессию пользователя: загружает данные, открывает каналы и
// запускает тики. Повторный вход возвращает уже существующую сессию.
func (r *Registry) SignIn(ctx context.Context, userID int64) (*Session, error) {
	if s, ok := r.Get(userID); ok {
		return s, nil
	}

	r.logger.Info("SignIn: user=%d", userID)
	s := r.newSession(userID)

	if err := s.load(ctx); err != nil {
		s.stop()
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[userID]; ok {
		// параллельный вход успел раньше
		r.mu.Unlock()
		s.stop()
		return existing, nil
	}
	r.sessions[userID] = s
	r.mu.Unlock()

	s.syncChannels(ctx)
	s.start(r.opts.TickInterval)

	r.logger.Info("SignIn: user=%d session started, channels=%d", userID, len(s.channels.Targets()))
	return s, nil
}

// SignOut останавливает сессию и закрывает все её каналы
func (r *Registry) SignOut(userID int64) error {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.stop()
	r.logger.Info("SignOut: user=%d session closed", userID)
	return nil
}

// Refresh полная перезагрузка по запросу пользователя
func (r *Registry) Refresh(ctx context.Context, userID int64) (*Session, error) {
	s, ok := r.Get(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.syncChannels(ctx)
	return s, nil
}

// Get активная сессия пользователя
func (r *Registry) Get(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// CloseAll завершает все сессии (остановка сервиса)
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	r.logger.Info("CloseAll: %d sessions closed", len(sessions))
}

func (r *Registry) newSession(userID int64) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		userID:    userID,
		views:     bookingviews.NewStore(r.opts.CountdownLookAhead, r.logger),
		inbox:     conversations.NewInbox(userID, r.threads, r.directory, r.logger),
		bookings:  r.bookings,
		favorites: r.favorites,
		clock:     r.clock,
		logger:    r.logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.channels = realtime.NewManager(ctx, r.transport, s, r.logger, r.metrics)
	return s
}
