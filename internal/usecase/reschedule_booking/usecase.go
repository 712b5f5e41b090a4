package reschedule_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	bookingRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

// UseCase перенос бронирования как отмена и повторное создание
type UseCase struct {
	bookingRepo  BookingRepository
	canceller    CancelUseCase
	sessions     SessionRegistry
	publisher    EventPublisher
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	canceller CancelUseCase,
	sessions SessionRegistry,
	publisher EventPublisher,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		canceller:    canceller,
		sessions:     sessions,
		publisher:    publisher,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute отменяет бронирование с причиной "rescheduled" по общей политике
// возврата и создаёт копию на новое время в статусе pending.
// Ошибки отмены возвращаются как есть (cancel_booking.Err*).
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RescheduleBooking: user=%d, booking=%d, new time=%s",
		req.UserID, req.BookingID, req.NewScheduledAt.Format("2006-01-02T15:04"))

	// 1. Валидация входных данных
	if req.UserID <= 0 || req.BookingID <= 0 {
		return nil, fmt.Errorf("%w: userId and bookingId must be positive", ErrInvalidInput)
	}
	if !req.NewScheduledAt.After(uc.timeProvider.Now()) {
		uc.logger.Warn("RescheduleBooking: new time %s is not in the future", req.NewScheduledAt)
		return nil, fmt.Errorf("%w: new time must be in the future", ErrInvalidInput)
	}

	// 2. Исходное бронирование - шаблон для нового
	original, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("RescheduleBooking: booking id=%d not found", req.BookingID)
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("RescheduleBooking: repository error for booking id=%d: %v", req.BookingID, err)
		return nil, fmt.Errorf("%w: RescheduleBooking - get booking: %v", ErrTransientNetwork, err)
	}
	if original.CustomerID != req.UserID && original.ProviderID != req.UserID {
		uc.logger.Warn("RescheduleBooking: user=%d is not a participant of booking id=%d", req.UserID, req.BookingID)
		return nil, ErrAccessDenied
	}
	if original.ScheduledAt.Equal(req.NewScheduledAt) {
		return nil, fmt.Errorf("%w: new time equals the current one", ErrInvalidInput)
	}

	// 3. Отмена по общей политике
	cancelled, err := uc.canceller.Execute(ctx, &cancel_booking.Request{
		UserID:    req.UserID,
		BookingID: req.BookingID,
		Reason:    domain.RescheduleReason,
	})
	if err != nil {
		uc.logger.Warn("RescheduleBooking: cancel of booking id=%d failed: %v", req.BookingID, err)
		return nil, err
	}

	// 4. Новое бронирование на новое время
	next := &domain.Booking{
		CustomerID:      original.CustomerID,
		ProviderID:      original.ProviderID,
		AddressID:       original.AddressID,
		Status:          domain.StatusPending,
		ScheduledAt:     req.NewScheduledAt,
		DurationMinutes: original.DurationMinutes,
		Total:           original.Total,
		ServiceName:     original.ServiceName,
	}
	created, err := uc.bookingRepo.Create(ctx, next)
	if err != nil {
		uc.logger.Error("RescheduleBooking: booking id=%d cancelled, recreate failed: %v", req.BookingID, err)
		return &Response{Cancelled: cancelled}, fmt.Errorf("%w: %v", ErrRecreateFailed, err)
	}

	// 5. Сессия пользователя и сессии участников
	if s, ok := uc.sessions.Get(req.UserID); ok {
		s.ApplyBooking(created)
	}
	uc.announce(ctx, created)

	uc.logger.Info("RescheduleBooking: booking id=%d replaced by id=%d at %s",
		req.BookingID, created.ID, created.ScheduledAt.Format("2006-01-02T15:04"))
	return &Response{Cancelled: cancelled, Booking: created}, nil
}

// announce сообщает обоим участникам о новом бронировании через их
// пользовательские каналы
func (uc *UseCase) announce(ctx context.Context, b *domain.Booking) {
	payload, err := realtime.EncodeBooking(b)
	if err != nil {
		uc.logger.Error("RescheduleBooking: encode event for booking id=%d: %v", b.ID, err)
		return
	}
	for _, userID := range []int64{b.CustomerID, b.ProviderID} {
		ev := realtime.Event{
			Target:  realtime.UserTarget(userID),
			Entity:  realtime.EntityBooking,
			Op:      realtime.OpInsert,
			Payload: payload,
		}
		if err := uc.publisher.PublishEvent(ctx, ev); err != nil {
			uc.logger.Warn("RescheduleBooking: publish %s failed: %v", ev.RoutingKey(), err)
		}
	}
}
