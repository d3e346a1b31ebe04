package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sparkchat-app/sparkchat/internal/database"
	"github.com/sparkchat-app/sparkchat/internal/events"
	mw "github.com/sparkchat-app/sparkchat/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc

	// Chat handlers
	CreateChat          http.HandlerFunc
	ListChats           http.HandlerFunc
	GetChat             http.HandlerFunc
	RenameChat          http.HandlerFunc
	DeleteChat          http.HandlerFunc
	OwnershipMiddleware func(http.Handler) http.Handler

	// Message handlers
	ListMessages  http.HandlerFunc
	CreateMessage http.HandlerFunc

	// AI handlers
	Completion http.HandlerFunc
	GetQuota   http.HandlerFunc
	ListModels http.HandlerFunc

	// Preference handlers
	GetPreferences    http.HandlerFunc
	UpdatePreferences http.HandlerFunc

	// Feedback handlers
	CreateFeedback http.HandlerFunc
	ListFeedback   http.HandlerFunc

	// Upload handlers
	CreateUpload http.HandlerFunc
	ListUploads  http.HandlerFunc
	GetUploadURL http.HandlerFunc

	// Usage handlers
	ListUsage http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public), optionally rate-limited
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			// Chat routes
			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.CreateChat)
				r.Get("/", h.ListChats)

				r.Route("/{chatID}", func(r chi.Router) {
					r.Use(h.OwnershipMiddleware)
					r.Get("/", h.GetChat)
					r.Patch("/", h.RenameChat)
					r.Delete("/", h.DeleteChat)

					r.Route("/messages", func(r chi.Router) {
						r.Get("/", h.ListMessages)
						r.Post("/", h.CreateMessage)
					})
				})
			})

			// AI completion and quota routes
			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", h.Completion)
				r.Get("/quota", h.GetQuota)
				r.Get("/models", h.ListModels)
			})

			// Preference routes
			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", h.GetPreferences)
				r.Put("/", h.UpdatePreferences)
			})

			// Feedback routes
			r.Route("/feedback", func(r chi.Router) {
				r.Post("/", h.CreateFeedback)
				r.Get("/", h.ListFeedback)
			})

			// Upload routes
			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", h.CreateUpload)
				r.Get("/", h.ListUploads)
				r.Get("/{uploadID}/url", h.GetUploadURL)
			})

			// Usage log
			r.Get("/usage", h.ListUsage)
		})
	})

	return r
}
