package cancel_booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("cancel_booking: booking not found")

	// ErrAccessDenied пользователь не участник бронирования
	ErrAccessDenied = errors.New("cancel_booking: access denied")

	// ErrInvalidStateTransition бронирование уже не в статусе upcoming
	ErrInvalidStateTransition = errors.New("cancel_booking: booking can no longer be cancelled")

	// ErrCancellationInProgress отмена этого бронирования уже выполняется
	ErrCancellationInProgress = errors.New("cancel_booking: cancellation already in progress")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("cancel_booking: invalid input data")

	// ErrTransientNetwork временная ошибка хранилища, запрос можно повторить
	ErrTransientNetwork = errors.New("cancel_booking: transient network failure")
)
