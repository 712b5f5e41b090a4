package sign_out

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/session"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgNoSession     = "активная сессия не найдена"
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

// Handle DELETE /api/v1/sessions
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("DELETE /sessions - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	if err := h.registry.SignOut(userID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			h.logger.Warn("DELETE /sessions - No session: user_id=%d", userID)
			handlers.RespondNotFound(w, msgNoSession)
			return
		}
		h.logger.Error("DELETE /sessions - Failed to sign out: user_id=%d, error=%v", userID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("DELETE /sessions - Session closed: user_id=%d", userID)
	handlers.RespondNoContent(w)
}
