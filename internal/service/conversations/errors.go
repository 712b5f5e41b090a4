package conversations

import "errors"

var (
	// ErrConversationNotFound возвращается, когда разговора с таким ключом нет
	ErrConversationNotFound = errors.New("conversations: conversation not found")

	// ErrStaleReference тред исчез после параллельной перестройки списка.
	// Логируется и не показывается пользователю.
	ErrStaleReference = errors.New("conversations: stale thread reference")

	// ErrUnknownThread событие пришло для треда, которого нет в индексе
	ErrUnknownThread = errors.New("conversations: unknown thread")

	// ErrTransientNetwork временная ошибка хранилища, можно повторить
	ErrTransientNetwork = errors.New("conversations: transient network failure")
)
