package cancel_booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	cancelUC "github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

// CancelBookingRequest HTTP request model
type CancelBookingRequest struct {
	CancellationReason *string `json:"cancellationReason,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP request в модель usecase
func (r *CancelBookingRequest) ToUseCaseRequest(userID, bookingID int64) *cancelUC.Request {
	reason := ""
	if r.CancellationReason != nil {
		reason = *r.CancellationReason
	}

	return &cancelUC.Request{
		UserID:    userID,
		BookingID: bookingID,
		Reason:    reason,
	}
}

// CancelBookingResponse HTTP response model
type CancelBookingResponse struct {
	BookingID      int64                         `json:"bookingId"`
	Status         string                        `json:"status"`
	CancelledBy    string                        `json:"cancelledBy"`
	RefundEligible bool                          `json:"refundEligible"`
	RefundAmount   decimal.Decimal               `json:"refundAmount"`
	CancelledAt    string                        `json:"cancelledAt"`
	View           *handlers.BookingViewResponse `json:"view,omitempty"`
}

// FromUseCaseResponse конвертирует результат usecase в HTTP response
func FromUseCaseResponse(resp *cancelUC.Response) CancelBookingResponse {
	out := CancelBookingResponse{
		BookingID:      resp.BookingID,
		Status:         string(resp.Status),
		CancelledBy:    string(resp.CancelledBy),
		RefundEligible: resp.RefundEligible,
		RefundAmount:   resp.RefundAmount,
		CancelledAt:    resp.CancelledAt.Format(time.RFC3339),
	}
	if resp.View != nil {
		v := handlers.FromBookingView(*resp.View)
		out.View = &v
	}
	return out
}
