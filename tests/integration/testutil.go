//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sparkchat-app/sparkchat/internal/ai"
	"github.com/sparkchat-app/sparkchat/internal/api"
	"github.com/sparkchat-app/sparkchat/internal/auth"
	"github.com/sparkchat-app/sparkchat/internal/catalog"
	"github.com/sparkchat-app/sparkchat/internal/chats"
	"github.com/sparkchat-app/sparkchat/internal/feedback"
	"github.com/sparkchat-app/sparkchat/internal/messages"
	"github.com/sparkchat-app/sparkchat/internal/preferences"
	"github.com/sparkchat-app/sparkchat/internal/ratelimit"
	"github.com/sparkchat-app/sparkchat/internal/usage"
	"github.com/sparkchat-app/sparkchat/internal/users"
)

const testDailyLimit = 10

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	AuthSvc     *auth.Service
	UserSvc     *users.Service
	Provider    *httptest.Server
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "sparkchat_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/sparkchat_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Stub upstream provider: every model answers with a short SSE stream in
	// the OpenAI-compatible shape.
	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"stub reply\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(providerSrv.Close)

	// Setup services
	jwtManager := auth.NewJWTManager("test-access-secret-32-chars-long!!", "test-refresh-secret-32-chars-long!!", 15*time.Minute, 7*24*time.Hour)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	chatRepo := chats.NewRepository(pool)
	chatSvc := chats.NewService(chatRepo)
	chatHandler := chats.NewHandler(chatSvc)

	msgRepo := messages.NewRepository(pool)
	msgSvc := messages.NewService(msgRepo, chatSvc)
	msgHandler := messages.NewHandler(msgSvc)

	limiter := ratelimit.NewService(ratelimit.NewRepository(pool), testDailyLimit)
	quotaHandler := ratelimit.NewHandler(limiter)

	stub := ai.NewGroqClient("test-key", providerSrv.URL, 10*time.Second)
	providers := map[catalog.Provider]ai.Provider{
		catalog.ProviderGemini: stub,
		catalog.ProviderGroq:   stub,
	}
	aiSvc := ai.NewService(providers, msgSvc, nil)
	aiHandler := ai.NewHandler(aiSvc, limiter, chatSvc, msgSvc)

	prefRepo := preferences.NewRepository(pool)
	prefSvc := preferences.NewService(prefRepo, preferences.NewCache(redisClient))
	prefHandler := preferences.NewHandler(prefSvc)

	fbHandler := feedback.NewHandler(feedback.NewRepository(pool))
	usageHandler := usage.NewHandler(usage.NewRepository(pool))

	notAvailable := func(w http.ResponseWriter, r *http.Request) {
		api.JSONErrorMessage(w, http.StatusServiceUnavailable, "uploads are not available")
	}

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
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

		CreateUpload: notAvailable,
		ListUploads:  notAvailable,
		GetUploadURL: notAvailable,

		ListUsage: usageHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		AuthSvc:     authSvc,
		UserSvc:     userSvc,
		Provider:    providerSrv,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func RegisterUser(t *testing.T, env *TestEnv, email, password string) map[string]any {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: status %d", resp.StatusCode)
	}
	return ParseResponse(t, resp)
}

func LoginUser(t *testing.T, env *TestEnv, email, password string) string {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func CreateChat(t *testing.T, env *TestEnv, token, title string) string {
	t.Helper()
	resp := DoRequest(t, env, "POST", "/api/v1/chats", map[string]string{"title": title}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chat failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["id"].(string)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
