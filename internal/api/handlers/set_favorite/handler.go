package set_favorite

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
)

const (
	msgMissingUserID        = "отсутствует ID пользователя"
	msgInvalidCounterpartID = "некорректный ID собеседника"
	msgUnavailable          = "сервис временно недоступен, повторите попытку"
)

// Handler PUT добавляет собеседника в избранное, DELETE убирает.
// Сессии пользователя узнают об изменении через подписку хранилища.
type Handler struct {
	store  FavoritesStore
	logger Logger
}

func NewHandler(store FavoritesStore, logger Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Handle PUT|DELETE /api/v1/favorites/{counterpartId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("%s /favorites/{id} - Missing user ID", r.Method)
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	raw := mux.Vars(r)["counterpartId"]
	counterpartID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || counterpartID <= 0 || counterpartID == userID {
		h.logger.Warn("%s /favorites/{id} - Invalid counterpart ID: %q", r.Method, raw)
		handlers.RespondBadRequest(w, msgInvalidCounterpartID)
		return
	}

	favorite := r.Method == http.MethodPut
	if err := h.store.SetFavorite(r.Context(), userID, counterpartID, favorite); err != nil {
		h.logger.Error("%s /favorites/{id} - Failed to update: user_id=%d, counterpart_id=%d, error=%v",
			r.Method, userID, counterpartID, err)
		handlers.RespondServiceUnavailable(w, msgUnavailable)
		return
	}

	h.logger.Info("%s /favorites/{id} - Updated: user_id=%d, counterpart_id=%d, favorite=%t",
		r.Method, userID, counterpartID, favorite)
	handlers.RespondNoContent(w)
}
