package chats

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	chat, err := h.svc.Create(r.Context(), userID, req.Title)
	if err != nil {
		slog.Error("creating chat", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, chat)
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

	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	chats, totalCount, err := h.svc.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing chats", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, chats, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	chat := GetChatFromContext(r.Context())
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, chat)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	chat := GetChatFromContext(r.Context())
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if err := h.svc.Rename(r.Context(), chat.ID, req.Title); err != nil {
		slog.Error("renaming chat", "error", err, "chat_id", chat.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "chat renamed")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	chat := GetChatFromContext(r.Context())
	if chat == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), chat.ID); err != nil {
		slog.Error("deleting chat", "error", err, "chat_id", chat.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "chat deleted")
}

// OwnershipMiddleware loads the chat from the chatID URL parameter, rejects
// callers who do not own it, and stores it in the request context.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

		chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid chat id"))
			return
		}

		chat, err := h.svc.GetByID(r.Context(), chatID)
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

		next.ServeHTTP(w, r.WithContext(SetChatInContext(r.Context(), chat)))
	})
}
