package feedback

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
)

type Handler struct {
	repo     Repository
	validate *validator.Validate
}

func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	fb := &Feedback{
		ID:        uuid.New(),
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	}
	if req.MessageID != "" {
		msgID, err := uuid.Parse(req.MessageID)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid message id"))
			return
		}
		fb.MessageID = &msgID
	}

	if err := h.repo.Create(r.Context(), fb); err != nil {
		slog.Error("creating feedback", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, fb)
}

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

	items, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("listing feedback", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if items == nil {
		items = []*Feedback{}
	}
	api.JSON(w, http.StatusOK, items)
}
