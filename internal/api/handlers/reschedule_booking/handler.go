package reschedule_booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
	rescheduleUC "github.com/m04kA/SMC-BookingSync/internal/usecase/reschedule_booking"
)

const (
	msgMissingUserID      = "отсутствует ID пользователя"
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidTime        = "некорректное время, ожидается RFC3339"
	msgNotFound           = "бронирование не найдено"
	msgForbidden          = "доступ запрещен"
	msgCannotReschedule   = "бронирование не может быть перенесено"
	msgInProgress         = "отмена уже выполняется"
	msgRecreateFailed     = "бронирование отменено, но новое не создано"
	msgUnavailable        = "сервис временно недоступен, повторите попытку"
)

type Handler struct {
	useCase RescheduleUseCase
	logger  Logger
}

func NewHandler(useCase RescheduleUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings/{id}/reschedule - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	vars := mux.Vars(r)
	bookingID, err := strconv.ParseInt(vars["bookingId"], 10, 64)
	if err != nil || bookingID <= 0 {
		h.logger.Warn("POST /bookings/{id}/reschedule - Invalid booking ID: %q", vars["bookingId"])
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	var req RescheduleBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings/{id}/reschedule - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	newTime, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/reschedule - Invalid time %q: %v", req.ScheduledAt, err)
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}

	resp, err := h.useCase.Execute(r.Context(), &rescheduleUC.Request{
		UserID:         userID,
		BookingID:      bookingID,
		NewScheduledAt: newTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, rescheduleUC.ErrInvalidInput), errors.Is(err, cancel_booking.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, rescheduleUC.ErrBookingNotFound), errors.Is(err, cancel_booking.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/reschedule - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, rescheduleUC.ErrAccessDenied), errors.Is(err, cancel_booking.ErrAccessDenied):
			h.logger.Warn("POST /bookings/{id}/reschedule - Access denied: booking_id=%d, user_id=%d",
				bookingID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, cancel_booking.ErrInvalidStateTransition):
			handlers.RespondConflict(w, msgCannotReschedule)

		case errors.Is(err, cancel_booking.ErrCancellationInProgress):
			handlers.RespondConflict(w, msgInProgress)

		case errors.Is(err, rescheduleUC.ErrRecreateFailed):
			// отмена уже записана, клиент должен узнать о ней
			h.logger.Error("POST /bookings/{id}/reschedule - Recreate failed: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondError(w, http.StatusBadGateway, msgRecreateFailed)

		case errors.Is(err, rescheduleUC.ErrTransientNetwork), errors.Is(err, cancel_booking.ErrTransientNetwork):
			handlers.RespondServiceUnavailable(w, msgUnavailable)

		default:
			h.logger.Error("POST /bookings/{id}/reschedule - Failed to reschedule: booking_id=%d, error=%v",
				bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/reschedule - Booking rescheduled: booking_id=%d, user_id=%d",
		bookingID, userID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(resp))
}
