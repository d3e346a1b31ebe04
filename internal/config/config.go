package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Providers ProvidersConfig
	Credits   CreditsConfig
	Storage   StorageConfig
	NATS      NATSConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// ProvidersConfig holds upstream LLM provider credentials and endpoints.
type ProvidersConfig struct {
	GeminiAPIKey  string
	GeminiBaseURL string
	GroqAPIKey    string
	GroqBaseURL   string
	Timeout       time.Duration
}

// CreditsConfig controls the per-user daily credit budget.
type CreditsConfig struct {
	DailyLimit int
}

// StorageConfig holds MinIO object storage settings for file uploads.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type NATSConfig struct {
	URL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Providers: ProvidersConfig{
			GeminiAPIKey:  k.String("gemini.api.key"),
			GeminiBaseURL: k.String("gemini.base.url"),
			GroqAPIKey:    k.String("groq.api.key"),
			GroqBaseURL:   k.String("groq.base.url"),
		},
		Credits: CreditsConfig{
			DailyLimit: k.Int("credits.daily.limit"),
		},
		Storage: StorageConfig{
			Endpoint:  k.String("storage.endpoint"),
			AccessKey: k.String("storage.access.key"),
			SecretKey: k.String("storage.secret.key"),
			Bucket:    k.String("storage.bucket"),
			UseSSL:    k.Bool("storage.use.ssl"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "sparkchat"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "sparkchat"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Providers.GeminiBaseURL == "" {
		cfg.Providers.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Providers.GroqBaseURL == "" {
		cfg.Providers.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Credits.DailyLimit == 0 {
		cfg.Credits.DailyLimit = 10
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "sparkchat-uploads"
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	providerTimeoutStr := k.String("providers.timeout")
	if providerTimeoutStr == "" {
		providerTimeoutStr = "120s"
	}
	cfg.Providers.Timeout, err = time.ParseDuration(providerTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing providers timeout: %w", err)
	}

	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	return cfg, nil
}
