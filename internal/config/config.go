// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, LINE and Gemini credentials, the log store backend selection and
// observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via STORE_DRIVER.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-calorie-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LineConfig holds the Messaging API channel credentials.
type LineConfig struct {
	ChannelAccessToken string // LINE_CHANNEL_ACCESS_TOKEN
	ChannelSecret      string // LINE_CHANNEL_SECRET
	LoadingSeconds     int    // LOADING_SECONDS, 0 disables the indicator
}

// GeminiConfig holds the generative model settings.
type GeminiConfig struct {
	APIKey string // GEMINI_API_KEY
	Model  string // GEMINI_MODEL
	RPM    int    // GEMINI_RPM, 0 means unlimited
}

// StoreConfig selects and configures the log store backend.
type StoreConfig struct {
	Driver      string // supabase|postgres|sqlite
	URL         string // SUPABASE_URL
	APIKey      string // SUPABASE_KEY
	DatabaseURL string // DATABASE_URL (postgres driver)
	DBPath      string // DB_PATH (sqlite driver)
	Timeout     time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s, model calls are slow
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	WebhookPath       string        // route receiving LINE deliveries
	EventTimeout      time.Duration // per-event handling deadline

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	Line   LineConfig
	Gemini GeminiConfig
	Store  StoreConfig

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
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		WebhookPath:       normalizePath(getenv("WEBHOOK_PATH", "/callback")),
		EventTimeout:      getdur("EVENT_TIMEOUT", 45*time.Second),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		Line: LineConfig{
			ChannelAccessToken: getenv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret:      getenv("LINE_CHANNEL_SECRET", ""),
			LoadingSeconds:     getint("LOADING_SECONDS", 20),
		},
		Gemini: GeminiConfig{
			APIKey: getenv("GEMINI_API_KEY", ""),
			Model:  getenv("GEMINI_MODEL", "gemini-2.5-flash"),
			RPM:    getint("GEMINI_RPM", 10),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getenv("STORE_DRIVER", StoreSupabase)),
			URL:         strings.TrimRight(getenv("SUPABASE_URL", ""), "/"),
			APIKey:      getenv("SUPABASE_KEY", ""),
			DatabaseURL: getenv("DATABASE_URL", ""),
			DBPath:      getenv("DB_PATH", "calorie.db"),
			Timeout:     getdur("STORE_TIMEOUT", 10*time.Second),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-calorie-bot"),
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
	if cfg.Store.Driver == "supabase-rest" || cfg.Store.Driver == "rest" {
		cfg.Store.Driver = StoreSupabase
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
	if cfg.EventTimeout <= 0 {
		return cfg, errors.New("EVENT_TIMEOUT must be a positive duration")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	// LINE accepts 5..60 seconds in steps of 5.
	if ls := cfg.Line.LoadingSeconds; ls != 0 && (ls < 5 || ls > 60 || ls%5 != 0) {
		return cfg, errors.New("LOADING_SECONDS must be 0 or a multiple of 5 between 5 and 60")
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return cfg, errors.New("GEMINI_MODEL must not be empty")
	}
	if cfg.Gemini.RPM < 0 {
		return cfg, errors.New("GEMINI_RPM must be >= 0")
	}
	switch cfg.Store.Driver {
	case StoreSupabase:
	case StorePostgres:
		if strings.TrimSpace(cfg.Store.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: supabase, postgres, sqlite")
	}
	if cfg.Store.Timeout <= 0 {
		return cfg, errors.New("STORE_TIMEOUT must be a positive duration")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// MissingSecrets lists the names of required secrets that are unset. The
// Supabase credentials only count when the supabase backend is selected.
// Callers warn about the result; a missing secret never stops startup.
func (c Config) MissingSecrets() []string {
	var out []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	check("LINE_CHANNEL_ACCESS_TOKEN", c.Line.ChannelAccessToken)
	check("LINE_CHANNEL_SECRET", c.Line.ChannelSecret)
	check("GEMINI_API_KEY", c.Gemini.APIKey)
	if c.Store.Driver == StoreSupabase {
		check("SUPABASE_URL", c.Store.URL)
		check("SUPABASE_KEY", c.Store.APIKey)
	}
	return out
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
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
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

// normalizePath ensures a leading '/' and strips trailing '/' (except root).
func normalizePath(p string) string {
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
