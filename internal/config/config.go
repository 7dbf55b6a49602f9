// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, collaborator endpoints,
// rate limiting, and observability.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "salesbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// NLUConfig points at the language-model service.
type NLUConfig struct {
	BaseURL    string        // NLU_BASE_URL
	Timeout    time.Duration // NLU_TIMEOUT per attempt
	MaxRetries int           // NLU_MAX_RETRIES after the first attempt
}

// WAHAConfig points at the WhatsApp gateway.
type WAHAConfig struct {
	BaseURL string        // WAHA_BASE_URL
	Session string        // WAHA_SESSION
	APIKey  string        // WAHA_API_KEY (empty disables the auth header)
	Timeout time.Duration // WAHA_TIMEOUT
}

// SessionConfig tunes the in-memory conversation store.
type SessionConfig struct {
	TTL        time.Duration // SESSION_TTL inactivity window
	SweepEvery time.Duration // SESSION_SWEEP_EVERY eviction cadence
	MaxTurns   int           // SESSION_MAX_TURNS history cap
}

// PipelineConfig bounds background message processing.
type PipelineConfig struct {
	MaxInflight int           // PIPELINE_MAX_INFLIGHT concurrent messages
	Timeout     time.Duration // PIPELINE_TIMEOUT per message end to end
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route

	// App
	DBPath   string        // SQLite path
	DedupTTL time.Duration // how long processed message ids are remembered

	// Collaborators
	NLU  NLUConfig
	WAHA WAHAConfig

	// Pipeline / sessions
	Session  SessionConfig
	Pipeline PipelineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),

		// App
		DBPath:   getenv("DB_PATH", "salesbot.db"),
		DedupTTL: getdur("DEDUP_TTL", 24*time.Hour),

		// Collaborators
		NLU: NLUConfig{
			BaseURL:    getenv("NLU_BASE_URL", "http://localhost:8090"),
			Timeout:    getdur("NLU_TIMEOUT", 20*time.Second),
			MaxRetries: getint("NLU_MAX_RETRIES", 2),
		},
		WAHA: WAHAConfig{
			BaseURL: getenv("WAHA_BASE_URL", "http://localhost:3000"),
			Session: getenv("WAHA_SESSION", "default"),
			APIKey:  getenv("WAHA_API_KEY", ""),
			Timeout: getdur("WAHA_TIMEOUT", 10*time.Second),
		},

		// Pipeline / sessions
		Session: SessionConfig{
			TTL:        getdur("SESSION_TTL", 30*time.Minute),
			SweepEvery: getdur("SESSION_SWEEP_EVERY", 5*time.Minute),
			MaxTurns:   getint("SESSION_MAX_TURNS", 10),
		},
		Pipeline: PipelineConfig{
			MaxInflight: getint("PIPELINE_MAX_INFLIGHT", 32),
			Timeout:     getdur("PIPELINE_TIMEOUT", 60*time.Second),
		},

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

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "salesbot"),
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
	if cfg.DedupTTL <= 0 {
		return cfg, errors.New("DEDUP_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.NLU.BaseURL) == "" {
		return cfg, errors.New("NLU_BASE_URL must not be empty")
	}
	if cfg.NLU.Timeout <= 0 || cfg.WAHA.Timeout <= 0 {
		return cfg, errors.New("collaborator timeouts must be positive durations")
	}
	if cfg.NLU.MaxRetries < 0 {
		return cfg, errors.New("NLU_MAX_RETRIES must be >= 0")
	}
	if strings.TrimSpace(cfg.WAHA.BaseURL) == "" {
		return cfg, errors.New("WAHA_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.WAHA.Session) == "" {
		return cfg, errors.New("WAHA_SESSION must not be empty")
	}
	if cfg.Session.TTL <= 0 || cfg.Session.SweepEvery <= 0 {
		return cfg, errors.New("session TTL and sweep interval must be positive durations")
	}
	if cfg.Session.MaxTurns < 1 {
		return cfg, errors.New("SESSION_MAX_TURNS must be >= 1")
	}
	if cfg.Pipeline.MaxInflight < 1 {
		return cfg, errors.New("PIPELINE_MAX_INFLIGHT must be >= 1")
	}
	if cfg.Pipeline.Timeout <= 0 {
		return cfg, errors.New("PIPELINE_TIMEOUT must be > 0")
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
