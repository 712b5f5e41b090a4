package get_cancellation_quote

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

// QuoteResponse условия отмены, показываемые до подтверждения
type QuoteResponse struct {
	BookingID         int64           `json:"bookingId"`
	Cancellable       bool            `json:"cancellable"`
	RefundEligible    bool            `json:"refundEligible"`
	RefundAmount      decimal.Decimal `json:"refundAmount"`
	Total             decimal.Decimal `json:"total"`
	MinutesUntilStart int64           `json:"minutesUntilStart"`
}

func FromQuote(q *cancel_booking.Quote) QuoteResponse {
	return QuoteResponse{
		BookingID:         q.BookingID,
		Cancellable:       q.Cancellable,
		RefundEligible:    q.Eligible,
		RefundAmount:      q.RefundAmount,
		Total:             q.Total,
		MinutesUntilStart: int64(q.TimeUntilStart.Minutes()),
	}
}
