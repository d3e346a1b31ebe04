package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
	"github.com/sparkchat-app/sparkchat/internal/catalog"
	"github.com/sparkchat-app/sparkchat/internal/chats"
	"github.com/sparkchat-app/sparkchat/internal/messages"
	"github.com/sparkchat-app/sparkchat/internal/middleware"
	"github.com/sparkchat-app/sparkchat/internal/ratelimit"
)

type CompletionRequest struct {
	ChatID  string `json:"chat_id" validate:"required,uuid"`
	Model   string `json:"model" validate:"required"`
	Content string `json:"content" validate:"required,min=1"`
}

type Handler struct {
	svc      *Service
	limiter  *ratelimit.Service
	chatSvc  *chats.Service
	msgSvc   *messages.Service
	validate *validator.Validate
}

func NewHandler(svc *Service, limiter *ratelimit.Service, chatSvc *chats.Service, msgSvc *messages.Service) *Handler {
	return &Handler{
		svc:      svc,
		limiter:  limiter,
		chatSvc:  chatSvc,
		msgSvc:   msgSvc,
		validate: validator.New(),
	}
}

// Completion handles POST /ai/chat. Admission (credit deduction) happens
// before anything is sent upstream; a denied or failed deduction never
// reaches the provider. The response is a text/event-stream of deltas.
func (h *Handler) Completion(w http.ResponseWriter, r *http.Request) {
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

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	chat, err := h.chatSvc.GetByID(r.Context(), chatID)
	if err != nil {
		slog.Error("loading chat", "error", err, "chat_id", chatID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	if chat.UserID != userID {
		api.HandleError(w, api.ErrOwnershipViolation)
		return
	}

	model, ok := catalog.Lookup(req.Model)
	if !ok {
		api.HandleError(w, api.NewBadRequestError(fmt.Sprintf("Invalid model: %s", req.Model)))
		return
	}

	decision, err := h.limiter.Admit(r.Context(), userID, model.ID)
	if err != nil {
		var quotaErr *ratelimit.QuotaExceededError
		var modelErr *ratelimit.UnknownModelError
		switch {
		case errors.As(err, &quotaErr):
			api.HandleError(w, api.NewTooManyRequestsError(quotaErr.Error()))
		case errors.As(err, &modelErr):
			api.HandleError(w, api.NewBadRequestError(modelErr.Error()))
		default:
			slog.Error("admitting completion", "error", err, "user_id", userID)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	if _, err := h.msgSvc.Create(r.Context(), chatID, messages.RoleUser, req.Content, ""); err != nil {
		slog.Error("persisting user message", "error", err, "chat_id", chatID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	history, err := h.loadHistory(r, chatID)
	if err != nil {
		slog.Error("loading chat history", "error", err, "chat_id", chatID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	params := StreamParams{
		RequestID:    middleware.GetRequestID(r.Context()),
		UserID:       userID,
		ChatID:       chatID,
		Model:        model,
		History:      history,
		CreditsSpent: decision.Cost,
	}

	msg, err := h.svc.Stream(r.Context(), params, func(delta string) error {
		if werr := writeSSE(w, map[string]string{"delta": delta}); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Status is already committed; report the failure in-stream.
		slog.Error("streaming completion", "error", err, "chat_id", chatID, "model", model.ID)
		_ = writeSSE(w, map[string]string{"error": "upstream provider error"})
		flusher.Flush()
		return
	}

	_ = writeSSE(w, map[string]any{
		"done":       true,
		"message_id": msg.ID,
		"remaining":  decision.Remaining,
		"reset_at":   decision.ResetAt,
	})
	flusher.Flush()
}

// ListModels handles GET /ai/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, catalog.All())
}

func (h *Handler) loadHistory(r *http.Request, chatID uuid.UUID) ([]PromptMessage, error) {
	msgs, err := h.msgSvc.ListByChat(r.Context(), chatID)
	if err != nil {
		return nil, err
	}
	history := make([]PromptMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, PromptMessage{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

func writeSSE(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
