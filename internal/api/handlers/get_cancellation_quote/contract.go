package get_cancellation_quote

import (
	"context"

	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

type QuoteUseCase interface {
	Quote(ctx context.Context, req *cancel_booking.QuoteRequest) (*cancel_booking.Quote, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
