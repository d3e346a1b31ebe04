package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Provider keys: at least one provider must be usable
	if c.Providers.GeminiAPIKey == "" && c.Providers.GroqAPIKey == "" {
		errs = append(errs, "at least one of GEMINI_API_KEY or GROQ_API_KEY is required")
	} else {
		if c.Providers.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY is empty, Gemini models will be unavailable")
		}
		if c.Providers.GroqAPIKey == "" {
			slog.Warn("GROQ_API_KEY is empty, Groq models will be unavailable")
		}
	}

	if c.Credits.DailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("CREDITS_DAILY_LIMIT must be positive, got %d", c.Credits.DailyLimit))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Object storage: warn only, uploads are an optional surface
	if c.Storage.Endpoint == "" {
		slog.Warn("STORAGE_ENDPOINT is empty, file uploads are disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
