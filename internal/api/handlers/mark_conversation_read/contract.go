package mark_conversation_read

import (
	"context"

	"github.com/m04kA/SMC-BookingSync/internal/session"
)

// SessionRegistry вход открывает сессию, если её ещё нет
type SessionRegistry interface {
	SignIn(ctx context.Context, userID int64) (*session.Session, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
