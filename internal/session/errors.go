package session

import "errors"

var (
	// ErrSessionNotFound у пользователя нет активной сессии
	ErrSessionNotFound = errors.New("session: not found")

	// ErrLoad не удалось загрузить данные сессии, можно повторить
	ErrLoad = errors.New("session: load failed")
)
