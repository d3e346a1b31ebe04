package uploads

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles multipart POST /uploads with a single "file" part.
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

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.HandleError(w, api.NewBadRequestError("file too large or malformed multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("missing file part"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	up, err := h.svc.Create(r.Context(), userID, header.Filename, contentType, header.Size, file)
	if err != nil {
		slog.Error("storing upload", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, up)
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

	items, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("listing uploads", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if items == nil {
		items = []*Upload{}
	}
	api.JSON(w, http.StatusOK, items)
}

// GetURL handles GET /uploads/{uploadID}/url, returning a presigned download
// link for the caller's own upload.
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
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

	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid upload id"))
		return
	}

	up, err := h.svc.GetByID(r.Context(), uploadID)
	if err != nil {
		slog.Error("loading upload", "error", err, "upload_id", uploadID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if up == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	if up.UserID != userID {
		api.HandleError(w, api.ErrOwnershipViolation)
		return
	}

	url, expiresAt, err := h.svc.DownloadURL(r.Context(), up)
	if err != nil {
		slog.Error("presigning upload", "error", err, "upload_id", uploadID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_at": expiresAt,
	})
}
