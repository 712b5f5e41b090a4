package reschedule_booking

import (
	"time"

	"github.com/shopspring/decimal"

	rescheduleUC "github.com/m04kA/SMC-BookingSync/internal/usecase/reschedule_booking"
	"github.com/m04kA/SMC-BookingSync/pkg/ptr"
)

// RescheduleBookingRequest HTTP request model
type RescheduleBookingRequest struct {
	ScheduledAt string `json:"scheduledAt"` // RFC3339
}

// RescheduleBookingResponse HTTP response model
type RescheduleBookingResponse struct {
	CancelledBookingID int64           `json:"cancelledBookingId"`
	RefundEligible     bool            `json:"refundEligible"`
	RefundAmount       decimal.Decimal `json:"refundAmount"`
	NewBookingID       *int64          `json:"newBookingId,omitempty"`
	NewScheduledAt     *string         `json:"newScheduledAt,omitempty"`
	NewStatus          *string         `json:"newStatus,omitempty"`
}

// FromUseCaseResponse конвертирует результат usecase в HTTP response
func FromUseCaseResponse(resp *rescheduleUC.Response) RescheduleBookingResponse {
	var out RescheduleBookingResponse
	if resp.Cancelled != nil {
		out.CancelledBookingID = resp.Cancelled.BookingID
		out.RefundEligible = resp.Cancelled.RefundEligible
		out.RefundAmount = resp.Cancelled.RefundAmount
	}
	if resp.Booking != nil {
		out.NewBookingID = ptr.Ptr(resp.Booking.ID)
		out.NewScheduledAt = ptr.Ptr(resp.Booking.ScheduledAt.Format(time.RFC3339))
		out.NewStatus = ptr.Ptr(string(resp.Booking.Status))
	}
	return out
}
