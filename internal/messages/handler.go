package messages

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/chats"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Create persists a message in a chat. The chat ownership check has already
// run in the chats middleware.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	chat := chats.GetChatFromContext(r.Context())
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	msg, err := h.svc.Create(r.Context(), chat.ID, req.Role, req.Content, req.Model)
	if err != nil {
		slog.Error("creating message", "error", err, "chat_id", chat.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, msg)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	chat := chats.GetChatFromContext(r.Context())
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	msgs, err := h.svc.ListByChat(r.Context(), chat.ID)
	if err != nil {
		slog.Error("listing messages", "error", err, "chat_id", chat.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if msgs == nil {
		msgs = []*Message{}
	}
	api.JSON(w, http.StatusOK, msgs)
}
