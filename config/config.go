package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Render   RenderConfig
	Sanitize SanitizeConfig
	AI       AIConfig
	Extract  ExtractConfig
	Cache    CacheConfig
	Log      LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// RenderConfig controls per-request rendering behavior.
type RenderConfig struct {
	// ReadyTimeout bounds the wait for the page's ready signal.
	ReadyTimeout time.Duration // default: 10s

	// SettleDelay is the fixed wait after the ready signal for
	// lazy-loaded content to appear.
	SettleDelay time.Duration // default: 3s

	// MaxSettleDelay caps the client-supplied settle override.
	MaxSettleDelay time.Duration // default: 10s
}

// SanitizeConfig controls the HTML sanitizer feeding the AI extractor.
type SanitizeConfig struct {
	// MaxChars bounds the sanitized HTML snapshot. Keeps the downstream
	// AI request within prompt-size and cost limits.
	MaxChars int // default: 50000
}

// Prompt content formats accepted by AIConfig.PromptFormat.
const (
	PromptFormatHTML     = "html"
	PromptFormatMarkdown = "markdown"
)

// AIConfig controls the AI inference collaborator.
type AIConfig struct {
	// APIKey is the inference provider credential. When empty, the AI
	// path fails (and falls back) instead of crashing.
	APIKey string

	// Model is the model used for extraction. Default: "gpt-4o-mini".
	Model string

	// BaseURL is the base URL for the inference API.
	// Default: "https://api.openai.com/v1". Supports any
	// OpenAI-compatible API.
	BaseURL string

	// PromptFormat selects the content format sent to the model:
	// "html" (default) or "markdown" (smaller prompts).
	PromptFormat string

	// RequestsPerSecond throttles calls to the provider.
	RequestsPerSecond float64 // default: 2

	// Burst is the limiter burst size.
	Burst int // default: 4
}

// ExtractConfig controls extraction post-processing.
type ExtractConfig struct {
	// HTTPSOnlyImages drops non-https image URLs from results.
	HTTPSOnlyImages bool // default: true
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// TTL is the single fixed lifetime of every cache entry.
	TTL time.Duration // default: 5m

	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("GLIMPSE_HOST", "0.0.0.0"),
			Port: envIntOr("GLIMPSE_PORT", 8080),
			Mode: envOr("GLIMPSE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("GLIMPSE_HEADLESS", true),
			MaxPages:   envIntOr("GLIMPSE_MAX_PAGES", 10),
			NoSandbox:  envBoolOr("GLIMPSE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("GLIMPSE_BROWSER_BIN"),
		},
		Render: RenderConfig{
			ReadyTimeout:   envDurationOr("GLIMPSE_READY_TIMEOUT", 10*time.Second),
			SettleDelay:    envDurationOr("GLIMPSE_SETTLE_DELAY", 3*time.Second),
			MaxSettleDelay: envDurationOr("GLIMPSE_MAX_SETTLE_DELAY", 10*time.Second),
		},
		Sanitize: SanitizeConfig{
			MaxChars: envIntOr("GLIMPSE_SANITIZE_MAX_CHARS", 50000),
		},
		AI: AIConfig{
			APIKey:            envOr("GLIMPSE_AI_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:             envOr("GLIMPSE_AI_MODEL", "gpt-4o-mini"),
			BaseURL:           envOr("GLIMPSE_AI_BASE_URL", "https://api.openai.com/v1"),
			PromptFormat:      envOr("GLIMPSE_AI_PROMPT_FORMAT", PromptFormatHTML),
			RequestsPerSecond: envFloatOr("GLIMPSE_AI_RATE_RPS", 2.0),
			Burst:             envIntOr("GLIMPSE_AI_RATE_BURST", 4),
		},
		Extract: ExtractConfig{
			HTTPSOnlyImages: envBoolOr("GLIMPSE_HTTPS_ONLY_IMAGES", true),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("GLIMPSE_CACHE_TTL", 5*time.Minute),
			MaxEntries: envIntOr("GLIMPSE_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("GLIMPSE_LOG_LEVEL", "info"),
			Format: envOr("GLIMPSE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
