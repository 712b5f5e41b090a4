package cancel_booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	bookingRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/service/status"
	"github.com/m04kA/SMC-BookingSync/pkg/metrics"
)

const defaultReason = "cancelled by user"

// UseCase use case отмены бронирования с политикой возврата
type UseCase struct {
	bookingRepo  BookingRepository
	sessions     SessionRegistry
	publisher    EventPublisher
	metrics      *metrics.Metrics
	refundWindow time.Duration
	timeProvider TimeProvider
	logger       Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	sessions SessionRegistry,
	publisher EventPublisher,
	m *metrics.Metrics,
	refundWindow time.Duration,
	logger Logger,
) *UseCase {
	if refundWindow <= 0 {
		refundWindow = domain.DefaultRefundWindow
	}
	return &UseCase{
		bookingRepo:  bookingRepo,
		sessions:     sessions,
		publisher:    publisher,
		metrics:      m,
		refundWindow: refundWindow,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		inflight:     make(map[int64]struct{}),
	}
}

// Quote условия отмены без изменения данных.
// Пользователь видит ту же сумму, что будет записана при отмене.
func (uc *UseCase) Quote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	booking, _, err := uc.load(ctx, req.UserID, req.BookingID)
	if err != nil {
		return nil, err
	}

	q := ComputeQuote(booking, uc.timeProvider.Now(), uc.refundWindow)
	return &q, nil
}

// Execute выполняет отмену. Локальное представление меняется только
// после успешной записи в хранилище.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CancelBooking: user=%d, booking=%d", req.UserID, req.BookingID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CancelBooking: validation failed: %v", err)
		return nil, err
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultReason
	}

	// 2. Бронирование и роль пользователя
	booking, role, err := uc.load(ctx, req.UserID, req.BookingID)
	if err != nil {
		return nil, err
	}

	// 3. Отменить можно только upcoming
	if coarse := status.Classify(booking.Status).Coarse; coarse != domain.CoarseUpcoming {
		uc.logger.Warn("CancelBooking: booking id=%d is %s (status=%s)", booking.ID, coarse, booking.Status)
		return nil, ErrInvalidStateTransition
	}

	// 4. Вторая параллельная отмена того же бронирования отклоняется
	if !uc.acquire(booking.ID) {
		uc.logger.Warn("CancelBooking: booking id=%d already being cancelled", booking.ID)
		return nil, ErrCancellationInProgress
	}
	defer uc.release(booking.ID)

	// 5. Политика возврата считается до записи
	now := uc.timeProvider.Now()
	quote := ComputeQuote(booking, now, uc.refundWindow)

	// 6. Запись в хранилище
	result, err := uc.bookingRepo.Cancel(ctx, booking.ID, reason, role, quote.RefundAmount)
	if err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			uc.logger.Warn("CancelBooking: booking id=%d disappeared", booking.ID)
			return nil, ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidState):
			uc.logger.Warn("CancelBooking: booking id=%d moved past upcoming in store", booking.ID)
			return nil, ErrInvalidStateTransition
		default:
			uc.logger.Error("CancelBooking: repository error for booking id=%d: %v", booking.ID, err)
			return nil, fmt.Errorf("%w: CancelBooking - repository error: %v", ErrTransientNetwork, err)
		}
	}
	if result != nil && result.RefundAmount != nil && !result.RefundAmount.Equal(quote.RefundAmount) {
		uc.logger.Warn("CancelBooking: store returned refund %s for booking id=%d, keeping quoted %s",
			result.RefundAmount, booking.ID, quote.RefundAmount)
	}

	resp := &Response{
		BookingID:      booking.ID,
		Status:         domain.StatusCancelled,
		CancelledBy:    role,
		RefundEligible: quote.Eligible,
		RefundAmount:   quote.RefundAmount,
		CancelledAt:    now,
	}

	// 7. Локальное представление
	if s, ok := uc.sessions.Get(req.UserID); ok {
		if v, ok := s.ApplyCancelled(booking.ID, reason, role, quote.RefundAmount, now); ok {
			resp.View = &v
		}
	}

	uc.metrics.Cancellation(quote.Eligible)
	uc.publish(ctx, booking, reason, role, quote, now)

	uc.logger.Info("CancelBooking: booking id=%d cancelled by %s, refund=%s (eligible=%t)",
		booking.ID, role, quote.RefundAmount, quote.Eligible)
	return resp, nil
}

// load берёт бронирование из сессии пользователя, а если его там нет - из хранилища
func (uc *UseCase) load(ctx context.Context, userID, bookingID int64) (*domain.Booking, domain.ActorRole, error) {
	var booking *domain.Booking
	if s, ok := uc.sessions.Get(userID); ok {
		if v, ok := s.View(bookingID); ok {
			b := v.Booking
			booking = &b
		}
	}

	if booking == nil {
		b, err := uc.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				uc.logger.Warn("CancelBooking: booking id=%d not found", bookingID)
				return nil, "", ErrBookingNotFound
			}
			uc.logger.Error("CancelBooking: repository error for booking id=%d: %v", bookingID, err)
			return nil, "", fmt.Errorf("%w: load - repository error: %v", ErrTransientNetwork, err)
		}
		booking = b
	}

	role, ok := roleOf(booking, userID)
	if !ok {
		uc.logger.Warn("CancelBooking: user=%d is not a participant of booking id=%d", userID, bookingID)
		return nil, "", ErrAccessDenied
	}
	return booking, role, nil
}

// publish уведомляет сессии участников. Отмена уже записана, поэтому
// ошибка публикации только логируется: сессии догонят при перезагрузке.
func (uc *UseCase) publish(ctx context.Context, b *domain.Booking, reason string, role domain.ActorRole, q Quote, at time.Time) {
	cancelled := *b
	cancelled.Status = domain.StatusCancelled
	cancelled.CancellationReason = &reason
	cancelled.CancelledBy = &role
	cancelled.RefundAmount = &q.RefundAmount
	cancelled.CancelledAt = &at
	cancelled.UpdatedAt = at

	payload, err := realtime.EncodeBooking(&cancelled)
	if err != nil {
		uc.logger.Error("CancelBooking: encode event for booking id=%d: %v", b.ID, err)
		return
	}
	ev := realtime.Event{
		Target:  realtime.BookingTarget(b.ID),
		Entity:  realtime.EntityBooking,
		Op:      realtime.OpUpdate,
		Payload: payload,
	}
	if err := uc.publisher.PublishEvent(ctx, ev); err != nil {
		uc.logger.Warn("CancelBooking: publish %s failed: %v", ev.RoutingKey(), err)
	}
}

func (uc *UseCase) acquire(bookingID int64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, busy := uc.inflight[bookingID]; busy {
		return false
	}
	uc.inflight[bookingID] = struct{}{}
	return true
}

func (uc *UseCase) release(bookingID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	delete(uc.inflight, bookingID)
}
