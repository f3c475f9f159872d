// ABOUTME: Backend configuration loaded from KPI2KVI_* and OPENROUTER_* environment variables.
// ABOUTME: Enforces security constraint: non-loopback binds require explicit remote opt-in.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey = errors.New(
		"OPENROUTER_API_KEY is not set; the backend cannot reach the LLM provider without it",
	)
	ErrNonLoopbackBind = errors.New(
		"KPI2KVI_BIND is a non-loopback address but KPI2KVI_ALLOW_REMOTE is not true; set KPI2KVI_ALLOW_REMOTE=true to allow remote access",
	)
)

// Config holds backend configuration loaded from environment variables.
type Config struct {
	Bind              string        // Socket address (KPI2KVI_BIND, default: 127.0.0.1:8000)
	AllowRemote       bool          // Allow non-loopback connections (KPI2KVI_ALLOW_REMOTE, default: false)
	OpenRouterAPIKey  string        // API key for OpenRouter (OPENROUTER_API_KEY, required)
	OpenRouterBaseURL string        // OpenAI-compatible base URL (OPENROUTER_BASE_URL)
	DefaultModel      string        // Fallback model for agents without one (OPENROUTER_MODEL)
	SessionTTL        time.Duration // Idle session lifetime (SESSION_TTL_SECONDS, default: 3600)
	AllowOrigins      []string      // CORS origins (ALLOW_ORIGINS, comma-separated, default: *)
}

// ConfigFromEnv loads configuration from the environment with the same
// defaults the original service shipped with.
func ConfigFromEnv() (*Config, error) {
	bind := envOrDefault("KPI2KVI_BIND", "127.0.0.1:8000")

	allowRemote := false
	if v := os.Getenv("KPI2KVI_ALLOW_REMOTE"); v == "true" || v == "1" || v == "yes" {
		allowRemote = true
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	ttlSeconds := 3600
	if v := os.Getenv("SESSION_TTL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL_SECONDS %q", v)
		}
		ttlSeconds = n
	}

	origins := []string{"*"}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		origins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	// Refuse non-loopback binds unless explicitly opting into remote access.
	if !allowRemote {
		if host, _, err := net.SplitHostPort(bind); err == nil && host != "" {
			ip := net.ParseIP(host)
			switch {
			case ip != nil && ip.IsLoopback():
			case host == "localhost":
			default:
				return nil, fmt.Errorf("%w: KPI2KVI_BIND=%s", ErrNonLoopbackBind, bind)
			}
		}
	}

	return &Config{
		Bind:              bind,
		AllowRemote:       allowRemote,
		OpenRouterAPIKey:  apiKey,
		OpenRouterBaseURL: envOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:      envOrDefault("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
		SessionTTL:        time.Duration(ttlSeconds) * time.Second,
		AllowOrigins:      origins,
	}, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
