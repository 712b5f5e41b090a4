package get_booking_views

import (
	"net/http"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgLoadFailed    = "не удалось загрузить бронирования, повторите попытку"
	msgInvalidStatus = "некорректный фильтр статуса"
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

// Handle GET /api/v1/bookings[?status=upcoming|active|completed]
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	filter := domain.CoarseStatus(r.URL.Query().Get("status"))
	switch filter {
	case "", domain.CoarseUpcoming, domain.CoarseActive, domain.CoarseCompleted:
	default:
		h.logger.Warn("GET /bookings - Invalid status filter: %q", filter)
		handlers.RespondBadRequest(w, msgInvalidStatus)
		return
	}

	s, err := h.registry.SignIn(r.Context(), userID)
	if err != nil {
		h.logger.Warn("GET /bookings - Session unavailable: user_id=%d, error=%v", userID, err)
		handlers.RespondServiceUnavailable(w, msgLoadFailed)
		return
	}

	views := s.Views()
	out := make([]handlers.BookingViewResponse, 0, len(views))
	for _, v := range views {
		if filter != "" && v.CoarseStatus != filter {
			continue
		}
		out = append(out, handlers.FromBookingView(v))
	}

	h.logger.Info("GET /bookings - Returned %d bookings: user_id=%d", len(out), userID)
	handlers.RespondJSON(w, http.StatusOK, out)
}
