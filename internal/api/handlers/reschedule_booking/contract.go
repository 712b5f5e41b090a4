package reschedule_booking

import (
	"context"

	rescheduleUC "github.com/m04kA/SMC-BookingSync/internal/usecase/reschedule_booking"
)

type RescheduleUseCase interface {
	Execute(ctx context.Context, req *rescheduleUC.Request) (*rescheduleUC.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
