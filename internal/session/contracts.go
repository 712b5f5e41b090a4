package session

import (
	"context"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// BookingStore интерфейс хранилища бронирований
type BookingStore interface {
	ListByParticipant(ctx context.Context, userID int64) ([]*domain.Booking, error)
}

// FavoritesStore интерфейс хранилища избранных собеседников
type FavoritesStore interface {
	Favorites(ctx context.Context, userID int64) ([]int64, error)
	Watch(ctx context.Context, userID int64, onChange func([]int64)) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
