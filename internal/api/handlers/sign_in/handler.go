package sign_in

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/session"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgLoadFailed    = "не удалось загрузить данные, повторите попытку"
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

// Handle POST /api/v1/sessions
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /sessions - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	s, err := h.registry.SignIn(r.Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrLoad) {
			h.logger.Warn("POST /sessions - Load failed: user_id=%d, error=%v", userID, err)
			handlers.RespondServiceUnavailable(w, msgLoadFailed)
			return
		}
		h.logger.Error("POST /sessions - Failed to sign in: user_id=%d, error=%v", userID, err)
		handlers.RespondInternalError(w)
		return
	}

	inbox := s.Inbox()
	h.logger.Info("POST /sessions - Session opened: user_id=%d", userID)
	handlers.RespondJSON(w, http.StatusCreated, SessionResponse{
		UserID:        userID,
		Bookings:      len(s.Views()),
		Conversations: len(inbox.Conversations()),
		TotalUnread:   inbox.TotalUnread(),
	})
}
