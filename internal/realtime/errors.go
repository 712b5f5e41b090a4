package realtime

import "errors"

var (
	// ErrMalformedEvent событие не удалось разобрать
	ErrMalformedEvent = errors.New("realtime: malformed event")

	// ErrManagerClosed менеджер уже закрыт (сессия завершена)
	ErrManagerClosed = errors.New("realtime: manager closed")

	// ErrSubscribe транспорт не смог открыть канал
	ErrSubscribe = errors.New("realtime: subscribe failed")
)
