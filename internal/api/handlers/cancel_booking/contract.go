package cancel_booking

import (
	"context"

	cancelUC "github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
)

type CancelUseCase interface {
	Execute(ctx context.Context, req *cancelUC.Request) (*cancelUC.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
