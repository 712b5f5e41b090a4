package mark_conversation_read

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/service/conversations"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgLoadFailed    = "не удалось загрузить разговоры, повторите попытку"
	msgUnavailable   = "сервис временно недоступен, повторите попытку"
)

type Handler struct {
	registry SessionRegistry
	logger   Logger
}

func NewHandler(registry SessionRegistry, logger Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// Handle POST /api/v1/conversations/{conversationId}/read
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /conversations/{id}/read - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	key := mux.Vars(r)["conversationId"]

	s, err := h.registry.SignIn(r.Context(), userID)
	if err != nil {
		h.logger.Warn("POST /conversations/{id}/read - Session unavailable: user_id=%d, error=%v", userID, err)
		handlers.RespondServiceUnavailable(w, msgLoadFailed)
		return
	}

	if err := s.Inbox().MarkRead(r.Context(), key); err != nil {
		switch {
		case errors.Is(err, conversations.ErrStaleReference):
			// разговор пропал из списка, пользователю не показываем
			h.logger.Warn("POST /conversations/{id}/read - Stale reference: conversation=%s, user_id=%d", key, userID)

		case errors.Is(err, conversations.ErrTransientNetwork):
			h.logger.Warn("POST /conversations/{id}/read - Transient failure: conversation=%s, error=%v", key, err)
			handlers.RespondServiceUnavailable(w, msgUnavailable)
			return

		default:
			h.logger.Error("POST /conversations/{id}/read - Failed to mark read: conversation=%s, error=%v", key, err)
			handlers.RespondInternalError(w)
			return
		}
	}

	handlers.RespondNoContent(w)
}
