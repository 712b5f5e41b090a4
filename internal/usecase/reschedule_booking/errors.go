package reschedule_booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("reschedule_booking: booking not found")

	// ErrAccessDenied пользователь не участник бронирования
	ErrAccessDenied = errors.New("reschedule_booking: access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("reschedule_booking: invalid input data")

	// ErrRecreateFailed отмена прошла, но новое бронирование не создано
	ErrRecreateFailed = errors.New("reschedule_booking: booking cancelled but not recreated")

	// ErrTransientNetwork временная ошибка хранилища, запрос можно повторить
	ErrTransientNetwork = errors.New("reschedule_booking: transient network failure")
)
