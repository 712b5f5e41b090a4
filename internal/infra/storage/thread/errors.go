package thread

import "errors"

var (
	// ErrThreadNotFound возвращается, когда тред не найден
	ErrThreadNotFound = errors.New("thread.repository: thread not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("thread.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("thread.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("thread.repository: failed to scan row")
)
