package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"customer_id",
	"provider_id",
	"address_id",
	"status",
	"scheduled_at",
	"duration_minutes",
	"total",
	"service_name",
	"cancellation_reason",
	"cancelled_by",
	"refund_amount",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// cancellableStatuses статусы, из которых бронирование можно отменить
var cancellableStatuses = []string{
	string(domain.StatusPending),
	string(domain.StatusConfirmed),
}

// CancelResult результат отмены на стороне хранилища
type CancelResult struct {
	RefundAmount *decimal.Decimal
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование (используется при переносе: cancel-and-recreate)
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"customer_id",
			"provider_id",
			"address_id",
			"status",
			"scheduled_at",
			"duration_minutes",
			"total",
			"service_name",
		).
		Values(
			booking.CustomerID,
			booking.ProviderID,
			booking.AddressID,
			booking.Status,
			booking.ScheduledAt,
			booking.DurationMinutes,
			booking.Total,
			booking.ServiceName,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// ListByParticipant бронирования, где пользователь заказчик или исполнитель
func (r *Repository) ListByParticipant(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Or{
			squirrel.Eq{"customer_id": userID},
			squirrel.Eq{"provider_id": userID},
		}).
		OrderBy("scheduled_at DESC", "id DESC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByParticipant - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}

// Cancel отменяет бронирование, если оно ещё в статусе pending/confirmed.
// Сумма возврата приходит от политики отмены и только сохраняется.
func (r *Repository) Cancel(ctx context.Context, id int64, reason string, role domain.ActorRole, refund decimal.Decimal) (*CancelResult, error) {
	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusCancelled).
		Set("cancellation_reason", reason).
		Set("cancelled_by", role).
		Set("refund_amount", refund).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": cancellableStatuses}).
		Suffix("RETURNING refund_amount").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Cancel - build update query: %v", ErrBuildQuery, err)
	}

	var stored decimal.NullDecimal
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		// Либо бронирования нет, либо статус уже не позволяет отмену
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Cancel - execute update: %v", ErrExecQuery, err)
	}

	result := &CancelResult{}
	if stored.Valid {
		result.RefundAmount = &stored.Decimal
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b                    domain.Booking
		cancelledBy          sql.NullString
		refund               decimal.NullDecimal
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ProviderID,
		&b.AddressID,
		&b.Status,
		&b.ScheduledAt,
		&b.DurationMinutes,
		&b.Total,
		&b.ServiceName,
		&b.CancellationReason,
		&cancelledBy,
		&refund,
		&b.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelledBy.Valid {
		role := domain.ActorRole(cancelledBy.String)
		b.CancelledBy = &role
	}
	if refund.Valid {
		b.RefundAmount = &refund.Decimal
	}
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	return &b, nil
}
