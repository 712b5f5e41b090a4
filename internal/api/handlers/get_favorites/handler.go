package get_favorites

import (
	"net/http"
	"sort"

	"github.com/m04kA/SMC-BookingSync/internal/api/handlers"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgUnavailable   = "сервис временно недоступен, повторите попытку"
)

// FavoritesResponse избранные собеседники
type FavoritesResponse struct {
	CounterpartIDs []int64 `json:"counterpartIds"`
}

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

// Handle GET /api/v1/favorites
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /favorites - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	ids, err := h.store.Favorites(r.Context(), userID)
	if err != nil {
		h.logger.Error("GET /favorites - Failed to load favorites: user_id=%d, error=%v", userID, err)
		handlers.RespondServiceUnavailable(w, msgUnavailable)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	handlers.RespondJSON(w, http.StatusOK, FavoritesResponse{CounterpartIDs: ids})
}
