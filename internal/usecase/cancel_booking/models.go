package cancel_booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// Request запрос на отмену бронирования
type Request struct {
	UserID    int64
	BookingID int64
	Reason    string
}

// Response результат отмены
type Response struct {
	BookingID      int64
	Status         domain.BookingStatus
	CancelledBy    domain.ActorRole
	RefundEligible bool
	RefundAmount   decimal.Decimal
	CancelledAt    time.Time
	View           *domain.BookingView // nil, если у пользователя нет активной сессии
}

// QuoteRequest запрос условий отмены
type QuoteRequest struct {
	UserID    int64
	BookingID int64
}

// Quote условия отмены на текущий момент
type Quote struct {
	BookingID      int64
	Cancellable    bool
	Eligible       bool
	RefundAmount   decimal.Decimal
	Total          decimal.Decimal
	TimeUntilStart time.Duration
}
