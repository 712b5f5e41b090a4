package reschedule_booking

import (
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

// Request намерение перенести бронирование на новое время
type Request struct {
	UserID         int64
	BookingID      int64
	NewScheduledAt time.Time
}

// Response результат переноса
type Response struct {
	Cancelled *cancel_booking.Response
	Booking   *domain.Booking // новое бронирование в статусе pending
}
