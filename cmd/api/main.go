package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sparkchat-app/sparkchat/internal/ai"
	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
	"github.com/sparkchat-app/sparkchat/internal/catalog"
	"github.com/sparkchat-app/sparkchat/internal/chats"
	"github.com/sparkchat-app/sparkchat/internal/config"
	"github.com/sparkchat-app/sparkchat/internal/database"
	"github.com/sparkchat-app/sparkchat/internal/events"
	"github.com/sparkchat-app/sparkchat/internal/feedback"
	"github.com/sparkchat-app/sparkchat/internal/messages"
	"github.com/sparkchat-app/sparkchat/internal/middleware"
	"github.com/sparkchat-app/sparkchat/internal/preferences"
	"github.com/sparkchat-app/sparkchat/internal/ratelimit"
	iredis "github.com/sparkchat-app/sparkchat/internal/redis"
	"github.com/sparkchat-app/sparkchat/internal/server"
	"github.com/sparkchat-app/sparkchat/internal/uploads"
	"github.com/sparkchat-app/sparkchat/internal/usage"
	"github.com/sparkchat-app/sparkchat/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional; usage events are skipped without it)
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
	} else {
		slog.Warn("NATS not configured, usage events disabled")
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Chats and messages
	chatRepo := chats.NewRepository(pool)
	chatSvc := chats.NewService(chatRepo)
	chatHandler := chats.NewHandler(chatSvc)

	msgRepo := messages.NewRepository(pool)
	msgSvc := messages.NewService(msgRepo, chatSvc)
	msgHandler := messages.NewHandler(msgSvc)

	// Credit budget
	limitRepo := ratelimit.NewRepository(pool)
	limiter := ratelimit.NewService(limitRepo, cfg.Credits.DailyLimit)
	quotaHandler := ratelimit.NewHandler(limiter)

	// AI completions
	providers := map[catalog.Provider]ai.Provider{}
	if cfg.Providers.GeminiAPIKey != "" {
		providers[catalog.ProviderGemini] = ai.NewGeminiClient(
			cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiBaseURL, cfg.Providers.Timeout)
	}
	if cfg.Providers.GroqAPIKey != "" {
		providers[catalog.ProviderGroq] = ai.NewGroqClient(
			cfg.Providers.GroqAPIKey, cfg.Providers.GroqBaseURL, cfg.Providers.Timeout)
	}
	aiSvc := ai.NewService(providers, msgSvc, publisher)
	aiHandler := ai.NewHandler(aiSvc, limiter, chatSvc, msgSvc)

	// Preferences
	prefRepo := preferences.NewRepository(pool)
	prefSvc := preferences.NewService(prefRepo, preferences.NewCache(redisClient))
	prefHandler := preferences.NewHandler(prefSvc)

	// Feedback
	fbHandler := feedback.NewHandler(feedback.NewRepository(pool))

	// Uploads
	var uploadHandler *uploads.Handler
	if cfg.Storage.Endpoint != "" {
		storage, err := uploads.NewStorage(ctx, cfg.Storage)
		if err != nil {
			slog.Error("connecting to object storage", "error", err)
			os.Exit(1)
		}
		uploadSvc := uploads.NewService(uploads.NewRepository(pool), storage)
		uploadHandler = uploads.NewHandler(uploadSvc)
	} else {
		slog.Warn("object storage not configured, uploads disabled")
	}

	// Usage log
	usageRepo := usage.NewRepository(pool)
	usageHandler := usage.NewHandler(usageRepo)
	if natsClient != nil {
		consumer := usage.NewConsumer(events.NewConsumerManager(natsClient.JetStream()), usageRepo)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("usage consumer stopped", "error", err)
			}
		}()
	}

	// Per-IP rate limit on the auth endpoints
	authLimiter := middleware.NewRateLimiter(redisClient, 20, 60)

	handlers := api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		CreateChat:          chatHandler.Create,
		ListChats:           chatHandler.List,
		GetChat:             chatHandler.Get,
		RenameChat:          chatHandler.Rename,
		DeleteChat:          chatHandler.Delete,
		OwnershipMiddleware: chatHandler.OwnershipMiddleware,

		ListMessages:  msgHandler.List,
		CreateMessage: msgHandler.Create,

		Completion: aiHandler.Completion,
		GetQuota:   quotaHandler.GetQuota,
		ListModels: aiHandler.ListModels,

		GetPreferences:    prefHandler.Get,
		UpdatePreferences: prefHandler.Update,

		CreateFeedback: fbHandler.Create,
		ListFeedback:   fbHandler.List,

		ListUsage: usageHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
	}
	if uploadHandler != nil {
		handlers.CreateUpload = uploadHandler.Create
		handlers.ListUploads = uploadHandler.List
		handlers.GetUploadURL = uploadHandler.GetURL
	} else {
		disabled := func(w http.ResponseWriter, r *http.Request) {
			api.JSONErrorMessage(w, http.StatusServiceUnavailable, "uploads are not available")
		}
		handlers.CreateUpload = disabled
		handlers.ListUploads = disabled
		handlers.GetUploadURL = disabled
	}

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, handlers)

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
