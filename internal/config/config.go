// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, marketplace accounts,
// generation credentials, pipeline cadence, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "feedback-responder")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AccountSpec is one configured marketplace account: a display name and the
// seller-API credential. Accounts from the environment are provisioned into
// the store at startup.
type AccountSpec struct {
	Name  string
	Token string
}

// OpenAIConfig defines the generation API client settings.
type OpenAIConfig struct {
	APIKey  string        // OPENAI_API_KEY
	BaseURL string        // OPENAI_BASE_URL (empty = public OpenAI API)
	Model   string        // OPENAI_MODEL
	Timeout time.Duration // OPENAI_TIMEOUT per-request deadline
}

// PipelineConfig defines the background loop cadence and retry policy.
type PipelineConfig struct {
	PollInterval   time.Duration // POLL_INTERVAL between cycles
	MaxAttempts    int           // MAX_ATTEMPTS per gateway step
	InitialBackoff time.Duration // INITIAL_BACKOFF before the first retry
	StepBatch      int           // STEP_BATCH drafted/dispatched per cycle
	ProductTTL     time.Duration // PRODUCT_TTL before a product card is stale
}

// PromptConfig defines prompt assembly defaults. The template and the
// examples limit can be overridden at runtime through the settings table.
type PromptConfig struct {
	Template      string // PROMPT_TEMPLATE (empty = built-in Russian template)
	System        string // PROMPT_SYSTEM (empty = built-in system message)
	TokenBudget   int    // PROMPT_TOKEN_BUDGET
	MaxExamples   int    // MAX_EXAMPLES reference examples per prompt
	MaxDraftRunes int    // MAX_DRAFT_RUNES accepted from generation / editing
	NameLocale    string // NAME_LOCALE BCP 47 tag for greeting title-casing
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
	APIBasePath    string // base path for API routes

	// App
	DBPath     string        // SQLite path
	WBAccounts []AccountSpec // Wildberries accounts (WB_ACCOUNTS / WB_API_TOKEN)
	YMAccounts []AccountSpec // Yandex Market accounts (YM_ACCOUNTS)

	// Generation / pipeline / prompt
	OpenAI   OpenAIConfig
	Pipeline PipelineConfig
	Prompt   PromptConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

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
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:     getenv("DB_PATH", "app.db"),
		WBAccounts: parseAccounts(getenv("WB_ACCOUNTS", ""), getenv("WB_API_TOKEN", "")),
		YMAccounts: parseAccounts(getenv("YM_ACCOUNTS", ""), ""),

		// Generation
		OpenAI: OpenAIConfig{
			APIKey:  getenv("OPENAI_API_KEY", ""),
			BaseURL: getenv("OPENAI_BASE_URL", ""),
			Model:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getdur("OPENAI_TIMEOUT", 60*time.Second),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			PollInterval:   getdur("POLL_INTERVAL", time.Minute),
			MaxAttempts:    getint("MAX_ATTEMPTS", 3),
			InitialBackoff: getdur("INITIAL_BACKOFF", 500*time.Millisecond),
			StepBatch:      getint("STEP_BATCH", 50),
			ProductTTL:     getdur("PRODUCT_TTL", 24*time.Hour),
		},

		// Prompt
		Prompt: PromptConfig{
			Template:      getenv("PROMPT_TEMPLATE", ""),
			System:        getenv("PROMPT_SYSTEM", ""),
			TokenBudget:   getint("PROMPT_TOKEN_BUDGET", 2000),
			MaxExamples:   getint("MAX_EXAMPLES", 3),
			MaxDraftRunes: getint("MAX_DRAFT_RUNES", 5000),
			NameLocale:    getenv("NAME_LOCALE", "ru"),
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

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "feedback-responder"),
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
	if err := validateAccounts(cfg.WBAccounts, cfg.YMAccounts); err != nil {
		return cfg, err
	}
	if cfg.OpenAI.Timeout <= 0 {
		return cfg, errors.New("OPENAI_TIMEOUT must be > 0")
	}
	if cfg.Pipeline.PollInterval <= 0 {
		return cfg, errors.New("POLL_INTERVAL must be > 0")
	}
	if cfg.Pipeline.MaxAttempts < 1 {
		return cfg, errors.New("MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Pipeline.InitialBackoff <= 0 {
		return cfg, errors.New("INITIAL_BACKOFF must be > 0")
	}
	if cfg.Pipeline.StepBatch < 1 {
		return cfg, errors.New("STEP_BATCH must be >= 1")
	}
	if cfg.Pipeline.ProductTTL <= 0 {
		return cfg, errors.New("PRODUCT_TTL must be > 0")
	}
	if cfg.Prompt.TokenBudget < 1 {
		return cfg, errors.New("PROMPT_TOKEN_BUDGET must be >= 1")
	}
	if cfg.Prompt.MaxExamples < 0 {
		return cfg, errors.New("MAX_EXAMPLES must be >= 0")
	}
	if cfg.Prompt.MaxDraftRunes < 1 {
		return cfg, errors.New("MAX_DRAFT_RUNES must be >= 1")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// parseAccounts reads a comma-separated account list. Each entry is either
// "name:token" or a bare token, which gets a positional "account_N" name.
// When the list is empty and a fallback token is set, a single "default"
// account is synthesized, mirroring the single-token setup of early deploys.
func parseAccounts(raw, fallback string) []AccountSpec {
	var out []AccountSpec
	for idx, part := range splitCSV(raw) {
		name, token := part, ""
		if i := strings.Index(part, ":"); i >= 0 {
			name = strings.TrimSpace(part[:i])
			token = strings.TrimSpace(part[i+1:])
		} else {
			name = fmt.Sprintf("account_%d", idx+1)
			token = part
		}
		if token == "" {
			continue
		}
		out = append(out, AccountSpec{Name: name, Token: token})
	}
	if len(out) == 0 && strings.TrimSpace(fallback) != "" {
		out = append(out, AccountSpec{Name: "default", Token: strings.TrimSpace(fallback)})
	}
	return out
}

// validateAccounts rejects blank and duplicate names. Names are unique
// across both marketplaces because provisioning upserts by name.
func validateAccounts(lists ...[]AccountSpec) error {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, a := range list {
			if strings.TrimSpace(a.Name) == "" {
				return errors.New("account entries must carry a name")
			}
			if _, dup := seen[a.Name]; dup {
				return fmt.Errorf("duplicate account name %q", a.Name)
			}
			seen[a.Name] = struct{}{}
		}
	}
	return nil
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
