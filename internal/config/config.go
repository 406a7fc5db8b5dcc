// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, the completion API,
// AI-reply coordination windows, OAuth providers, rate limiting, and
// observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "factcheck-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// OpenAIConfig defines settings for the chat-completion API client.
type OpenAIConfig struct {
	APIKey  string        // OPENAI_API_KEY
	BaseURL string        // OPENAI_BASE_URL
	Model   string        // OPENAI_MODEL
	Timeout time.Duration // OPENAI_TIMEOUT
}

// AIReplyConfig defines the coordination windows for the AI-reply workflow.
//
// LoadingWindow is how long an unfinished LOADING record blocks new creation
// attempts for the same document. PollInterval is the backoff between
// convergence-loop iterations while another caller's record is in flight.
// MaxWait caps how long a caller waits on other in-flight records before the
// request is abandoned with a timeout; zero waits as long as the request
// context allows.
type AIReplyConfig struct {
	LoadingWindow time.Duration // AI_LOADING_WINDOW
	PollInterval  time.Duration // AI_POLL_INTERVAL
	MaxWait       time.Duration // AI_MAX_WAIT (0 = unbounded)
	PromptLocale  string        // AI_PROMPT_LOCALE (BCP 47 tag for prompt dates)
}

// OAuthProviderConfig holds credentials for a single OAuth provider.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// AuthConfig groups OAuth provider credentials and token settings.
type AuthConfig struct {
	Facebook    OAuthProviderConfig
	Github      OAuthProviderConfig
	Google      OAuthProviderConfig
	CallbackURL string        // AUTH_CALLBACK_URL base, e.g. https://api.example.org/callback
	JWTSecret   string        // AUTH_JWT_SECRET
	TokenTTL    time.Duration // AUTH_TOKEN_TTL
	DefaultApp  string        // AUTH_DEFAULT_APP_ID
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // generous: AI-reply requests can block on the upstream call
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath       string // SQLite path
	RedisURL     string // optional; empty disables the reply cache
	MaxTextRunes int    // article text cap

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Domain
	OpenAI  OpenAIConfig
	AIReply AIReplyConfig
	Auth    AuthConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 2*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:       getenv("DB_PATH", "app.db"),
		RedisURL:     getenv("REDIS_URL", ""),
		MaxTextRunes: getint("MAX_TEXT_RUNES", 20000),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Completion API
		OpenAI: OpenAIConfig{
			APIKey:  getenv("OPENAI_API_KEY", ""),
			BaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com"),
			Model:   getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Timeout: getdur("OPENAI_TIMEOUT", 90*time.Second),
		},

		// AI-reply coordination
		AIReply: AIReplyConfig{
			LoadingWindow: getdur("AI_LOADING_WINDOW", time.Minute),
			PollInterval:  getdur("AI_POLL_INTERVAL", time.Second),
			MaxWait:       getdur("AI_MAX_WAIT", 0),
			PromptLocale:  getenv("AI_PROMPT_LOCALE", "zh-TW"),
		},

		// OAuth / tokens
		Auth: AuthConfig{
			Facebook: OAuthProviderConfig{
				ClientID:     getenv("FACEBOOK_APP_ID", ""),
				ClientSecret: getenv("FACEBOOK_SECRET", ""),
			},
			Github: OAuthProviderConfig{
				ClientID:     getenv("GITHUB_CLIENT_ID", ""),
				ClientSecret: getenv("GITHUB_SECRET", ""),
			},
			Google: OAuthProviderConfig{
				ClientID:     getenv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getenv("GOOGLE_SECRET", ""),
			},
			CallbackURL: getenv("AUTH_CALLBACK_URL", "http://localhost:8080/callback"),
			JWTSecret:   getenv("AUTH_JWT_SECRET", ""),
			TokenTTL:    getdur("AUTH_TOKEN_TTL", 30*24*time.Hour),
			DefaultApp:  getenv("AUTH_DEFAULT_APP_ID", "FACTCHECK_SITE"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "factcheck-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.OpenAI.BaseURL = strings.TrimRight(cfg.OpenAI.BaseURL, "/")
	cfg.Auth.CallbackURL = strings.TrimRight(cfg.Auth.CallbackURL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.MaxTextRunes <= 0 {
		return cfg, errors.New("MAX_TEXT_RUNES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if strings.TrimSpace(cfg.OpenAI.Model) == "" {
		return cfg, errors.New("OPENAI_MODEL must not be empty")
	}
	if cfg.OpenAI.Timeout <= 0 {
		return cfg, errors.New("OPENAI_TIMEOUT must be > 0")
	}
	if cfg.AIReply.LoadingWindow <= 0 {
		return cfg, errors.New("AI_LOADING_WINDOW must be > 0")
	}
	if cfg.AIReply.PollInterval <= 0 {
		return cfg, errors.New("AI_POLL_INTERVAL must be > 0")
	}
	if cfg.AIReply.MaxWait < 0 {
		return cfg, errors.New("AI_MAX_WAIT must be >= 0")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("AUTH_TOKEN_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
