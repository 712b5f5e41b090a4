package cancel_booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	bookingRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/session"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64, reason string, role domain.ActorRole, refund decimal.Decimal) (*bookingRepo.CancelResult, error)
}

// SessionRegistry интерфейс реестра сессий
type SessionRegistry interface {
	Get(userID int64) (*session.Session, bool)
}

// EventPublisher интерфейс публикации realtime-событий
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev realtime.Event) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
