package rabbitmq

import "errors"

var (
	// ErrConnect возвращается, если не удалось подключиться к брокеру
	ErrConnect = errors.New("rabbitmq: connect failed")

	// ErrSetup возвращается при ошибке объявления exchange, очереди или привязки
	ErrSetup = errors.New("rabbitmq: setup failed")

	// ErrUnknownHandle подписка с таким handle не найдена
	ErrUnknownHandle = errors.New("rabbitmq: unknown subscription handle")

	// ErrStreamLost поток доставки подписки оборвался без Unsubscribe
	ErrStreamLost = errors.New("rabbitmq: delivery stream lost")

	// ErrPublish возвращается при ошибке публикации события
	ErrPublish = errors.New("rabbitmq: publish failed")
)
