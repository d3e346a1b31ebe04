package usage

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
)

const defaultListLimit = 50

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the caller's recent usage log entries, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		slog.Error("listing usage", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if entries == nil {
		entries = []*Entry{}
	}
	api.JSON(w, http.StatusOK, entries)
}
