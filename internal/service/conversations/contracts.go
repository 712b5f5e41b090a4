package conversations

import (
	"context"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/integrations/userservice"
)

// ThreadStore интерфейс хранилища тредов
type ThreadStore interface {
	ListByParticipant(ctx context.Context, participantID int64) ([]domain.ChatThreadRecord, error)
	MarkRead(ctx context.Context, threadID int64, messageIDs []int64) error
}

// UserDirectory интерфейс справочника пользователей
type UserDirectory interface {
	GetProfile(ctx context.Context, userID int64) (*userservice.Profile, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
