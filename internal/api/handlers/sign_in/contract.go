package sign_in

import (
	"context"

	"github.com/m04kA/SMC-BookingSync/internal/session"
)

type SessionRegistry interface {
	SignIn(ctx context.Context, userID int64) (*session.Session, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
