package refresh_session

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
	msgLoadFailed    = "не удалось обновить данные, повторите попытку"
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

// Handle POST /api/v1/sessions/refresh
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /sessions/refresh - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	s, err := h.registry.Refresh(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			h.logger.Warn("POST /sessions/refresh - No session: user_id=%d", userID)
			handlers.RespondNotFound(w, msgNoSession)

		case errors.Is(err, session.ErrLoad):
			h.logger.Warn("POST /sessions/refresh - Load failed: user_id=%d, error=%v", userID, err)
			handlers.RespondServiceUnavailable(w, msgLoadFailed)

		default:
			h.logger.Error("POST /sessions/refresh - Failed to refresh: user_id=%d, error=%v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /sessions/refresh - Session reloaded: user_id=%d", userID)
	views := s.Views()
	out := make([]handlers.BookingViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, handlers.FromBookingView(v))
	}
	handlers.RespondJSON(w, http.StatusOK, out)
}
