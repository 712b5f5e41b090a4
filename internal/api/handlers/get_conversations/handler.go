package get_conversations

import (
	"net/http"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgLoadFailed    = "не удалось загрузить разговоры, повторите попытку"
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

// Handle GET /api/v1/conversations[?favorites=true]
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /conversations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	onlyFavorites := r.URL.Query().Get("favorites") == "true"

	s, err := h.registry.SignIn(r.Context(), userID)
	if err != nil {
		h.logger.Warn("GET /conversations - Session unavailable: user_id=%d, error=%v", userID, err)
		handlers.RespondServiceUnavailable(w, msgLoadFailed)
		return
	}

	inbox := s.Inbox()
	convs := inbox.Conversations()
	out := ConversationsResponse{
		Conversations: make([]ConversationResponse, 0, len(convs)),
		TotalUnread:   inbox.TotalUnread(),
	}
	for _, c := range convs {
		if onlyFavorites && !c.IsFavorite {
			continue
		}
		out.Conversations = append(out.Conversations, fromConversation(c))
	}

	h.logger.Info("GET /conversations - Returned %d conversations: user_id=%d, unread=%d",
		len(out.Conversations), userID, out.TotalUnread)
	handlers.RespondJSON(w, http.StatusOK, out)
}
