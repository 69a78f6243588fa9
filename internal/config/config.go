// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, persistence, blob storage, provider access, ledger pricing,
// processing limits, rate limiting, and observability settings.
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the relational store backing users, artifacts and pages.
type DBConfig struct {
	Driver          string // sqlite|postgres
	DSN             string // file path for sqlite, URL/DSN for postgres
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// BlobConfig selects where source pages and results are stored.
type BlobConfig struct {
	Backend   string // fs|minio|gcs|s3
	Root      string // fs only
	Bucket    string
	Prefix    string
	Endpoint  string // minio host:port, s3-compatible base URL
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ProviderConfig configures the Vertex AI model used for enhancement and OCR.
type ProviderConfig struct {
	Project     string
	Region      string
	Model       string
	OCRModel    string
	Temperature float64

	// Prompt overrides; empty values keep the built-in prompts.
	SystemInstruction string
	AutonomousPrompt  string
	OverridePrompt    string
}

// LedgerConfig holds the free allowance and the price list.
type LedgerConfig struct {
	FreePages    int
	PricePerPage string // decimal string, e.g. "0.50"
	// DiscountTiers is "minPages:percent" pairs, e.g. "10:10,50:20,200:30".
	DiscountTiers []string
}

// ProcessingConfig bounds the per-page worker pool and its retries.
type ProcessingConfig struct {
	Workers         int
	MaxBatchPages   int
	MaxAttempts     int
	RetryInitial    time.Duration
	RetryMax        time.Duration
	ProviderTimeout time.Duration
	BatchTimeout    time.Duration
	CommitTimeout   time.Duration
	MaxUploadBytes  int64
	MaxUploadPages  int
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
	DevLogin  bool // expose POST /auth/dev-token
	// HeaderIdentity accepts X-User-ID when no JWT secret is configured.
	HeaderIdentity bool
}

// PaymentsConfig configures the Lemon Squeezy webhook.
type PaymentsConfig struct {
	WebhookSecret string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s, downloads can be large
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // drain window for in-flight batches
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // JSON endpoints
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB         DBConfig
	Blob       BlobConfig
	Provider   ProviderConfig
	Ledger     LedgerConfig
	Processing ProcessingConfig
	Auth       AuthConfig
	Payments   PaymentsConfig

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
		ReadTimeout:       getdur("READ_TIMEOUT", 30*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      getint64("MAX_BODY_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver:          strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:             getenv("DB_DSN", "app.db"),
			MaxOpenConns:    getint("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getint("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getdur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		Blob: BlobConfig{
			Backend:   strings.ToLower(getenv("BLOB_BACKEND", "fs")),
			Root:      getenv("BLOB_ROOT", "data/blobs"),
			Bucket:    getenv("BLOB_BUCKET", ""),
			Prefix:    strings.Trim(getenv("BLOB_PREFIX", ""), "/"),
			Endpoint:  getenv("BLOB_ENDPOINT", ""),
			Region:    getenv("BLOB_REGION", "us-east-1"),
			AccessKey: getenv("BLOB_ACCESS_KEY", ""),
			SecretKey: getenv("BLOB_SECRET_KEY", ""),
			UseSSL:    getbool("BLOB_USE_SSL", true),
		},

		Provider: ProviderConfig{
			Project:           getenv("GCP_PROJECT", ""),
			Region:            getenv("GCP_REGION", "us-central1"),
			Model:             getenv("GEMINI_MODEL", "gemini-2.5-flash-image"),
			OCRModel:          getenv("GEMINI_OCR_MODEL", "gemini-2.5-flash"),
			Temperature:       getfloat("GEMINI_TEMPERATURE", 0.2),
			SystemInstruction: getenv("PROMPT_SYSTEM", ""),
			AutonomousPrompt:  getenv("PROMPT_AUTONOMOUS", ""),
			OverridePrompt:    getenv("PROMPT_OVERRIDE", ""),
		},

		Ledger: LedgerConfig{
			FreePages:     getint("FREE_PAGES", 1),
			PricePerPage:  getenv("PRICE_PER_PAGE", "0.50"),
			DiscountTiers: splitCSV(getenv("DISCOUNT_TIERS", "10:10,50:20,200:30")),
		},

		Processing: ProcessingConfig{
			Workers:         getint("WORKERS", 4),
			MaxBatchPages:   getint("MAX_BATCH_PAGES", 200),
			MaxAttempts:     getint("MAX_ATTEMPTS", 3),
			RetryInitial:    getdur("RETRY_INITIAL_INTERVAL", 2*time.Second),
			RetryMax:        getdur("RETRY_MAX_INTERVAL", 20*time.Second),
			ProviderTimeout: getdur("PROVIDER_TIMEOUT", 90*time.Second),
			BatchTimeout:    getdur("BATCH_TIMEOUT", 30*time.Minute),
			CommitTimeout:   getdur("COMMIT_TIMEOUT", 10*time.Second),
			MaxUploadBytes:  getint64("MAX_UPLOAD_BYTES", 50<<20),
			MaxUploadPages:  getint("MAX_UPLOAD_PAGES", 500),
		},

		Auth: AuthConfig{
			JWTSecret:      getenv("JWT_SECRET", ""),
			Issuer:         getenv("JWT_ISSUER", "page-restore"),
			TokenTTL:       getdur("JWT_TTL", 7*24*time.Hour),
			DevLogin:       getbool("AUTH_DEV_LOGIN", false),
			HeaderIdentity: getbool("AUTH_HEADER_IDENTITY", true),
		},

		Payments: PaymentsConfig{
			WebhookSecret: getenv("LEMONSQUEEZY_WEBHOOK_SECRET", ""),
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
			ServiceName: getenv("OTEL_SERVICE_NAME", "page-restore"),
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
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
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
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}

	switch cfg.Blob.Backend {
	case "fs":
		if strings.TrimSpace(cfg.Blob.Root) == "" {
			return cfg, errors.New("BLOB_ROOT must not be empty for the fs backend")
		}
	case "minio", "gcs", "s3":
		if strings.TrimSpace(cfg.Blob.Bucket) == "" {
			return cfg, errors.New("BLOB_BUCKET must not be empty for " + cfg.Blob.Backend)
		}
		if cfg.Blob.Backend == "minio" && strings.TrimSpace(cfg.Blob.Endpoint) == "" {
			return cfg, errors.New("BLOB_ENDPOINT must not be empty for minio")
		}
	default:
		return cfg, errors.New("BLOB_BACKEND must be one of: fs, minio, gcs, s3")
	}

	if cfg.Ledger.FreePages < 0 {
		return cfg, errors.New("FREE_PAGES must be >= 0")
	}
	if p, err := strconv.ParseFloat(cfg.Ledger.PricePerPage, 64); err != nil || p < 0 {
		return cfg, errors.New("PRICE_PER_PAGE must be a non-negative decimal")
	}

	p := cfg.Processing
	if p.Workers < 1 {
		return cfg, errors.New("WORKERS must be >= 1")
	}
	if p.MaxBatchPages < 1 {
		return cfg, errors.New("MAX_BATCH_PAGES must be >= 1")
	}
	if p.MaxAttempts < 1 {
		return cfg, errors.New("MAX_ATTEMPTS must be >= 1")
	}
	if p.RetryInitial <= 0 || p.RetryMax < p.RetryInitial {
		return cfg, errors.New("RETRY_INITIAL_INTERVAL must be > 0 and <= RETRY_MAX_INTERVAL")
	}
	if p.ProviderTimeout <= 0 || p.BatchTimeout <= 0 || p.CommitTimeout <= 0 {
		return cfg, errors.New("processing timeouts must be positive durations")
	}
	if p.ProviderTimeout >= p.BatchTimeout {
		return cfg, errors.New("PROVIDER_TIMEOUT must be shorter than BATCH_TIMEOUT")
	}
	if p.MaxUploadBytes <= 0 || p.MaxUploadPages < 1 {
		return cfg, errors.New("MAX_UPLOAD_BYTES and MAX_UPLOAD_PAGES must be positive")
	}

	if cfg.Auth.DevLogin && cfg.Auth.JWTSecret == "" {
		return cfg, errors.New("AUTH_DEV_LOGIN requires JWT_SECRET")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
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

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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
