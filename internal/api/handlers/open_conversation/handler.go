package open_conversation

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
	msgNotFound      = "разговор не найден"
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

// Handle GET /api/v1/conversations/{conversationId}/open
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /conversations/{id}/open - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	key := mux.Vars(r)["conversationId"]

	s, err := h.registry.SignIn(r.Context(), userID)
	if err != nil {
		h.logger.Warn("GET /conversations/{id}/open - Session unavailable: user_id=%d, error=%v", userID, err)
		handlers.RespondServiceUnavailable(w, msgLoadFailed)
		return
	}

	route, err := s.Inbox().Open(key)
	if err != nil {
		if errors.Is(err, conversations.ErrConversationNotFound) {
			h.logger.Warn("GET /conversations/{id}/open - Not found: conversation=%s, user_id=%d", key, userID)
			handlers.RespondNotFound(w, msgNotFound)
			return
		}
		h.logger.Error("GET /conversations/{id}/open - Failed to open: conversation=%s, error=%v", key, err)
		handlers.RespondInternalError(w)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, fromRoute(route))
}
