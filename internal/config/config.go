package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	AdminAuthRequired  bool
	CORSAllowedOrigins []string

	CatalogSeed     bool
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration
	APIRateLimitMax     int
	APIRateLimitWindow  time.Duration

	ScannerMinInterval time.Duration
	ScannerMaxInterval time.Duration
	ScannerMinDelay    time.Duration
	ScannerMaxDelay    time.Duration
	DetectionLogSize   int

	PaymentDelay            time.Duration
	CircuitPaymentMinReq    int
	CircuitPaymentFailRatio float64
	CircuitPaymentOpenFor   time.Duration

	ReceiptsEnabled   bool
	ReceiptQueue      string
	ReceiptMaxRetry   int
	WorkerConcurrency int
	RetryBase         time.Duration
	RetryJitterPct    float64

	HTTPMaxBodyBytes  int64
	AnalyticsCacheTTL time.Duration
	AnalyticsRange    int

	AuditEnabled      bool
	AuditSamplingRate float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		JWTSecret:          k.String("JWT_SECRET"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		AdminAuthRequired:  parseBool(k.String("ADMIN_AUTH_REQUIRED"), true),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CatalogSeed:     parseBool(k.String("CATALOG_SEED"), true),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		AuthRateLimitMax:    parseInt(k.String("AUTH_RATE_LIMIT_MAX"), 10),
		AuthRateLimitWindow: parseDuration(k.String("AUTH_RATE_LIMIT_WINDOW"), "1m"),
		APIRateLimitMax:     parseInt(k.String("API_RATE_LIMIT_MAX"), 600),
		APIRateLimitWindow:  parseDuration(k.String("API_RATE_LIMIT_WINDOW"), "1m"),

		ScannerMinInterval: parseDuration(k.String("SCANNER_MIN_INTERVAL"), "5s"),
		ScannerMaxInterval: parseDuration(k.String("SCANNER_MAX_INTERVAL"), "8s"),
		ScannerMinDelay:    parseDuration(k.String("SCANNER_MIN_DELAY"), "2s"),
		ScannerMaxDelay:    parseDuration(k.String("SCANNER_MAX_DELAY"), "4s"),
		DetectionLogSize:   parseInt(k.String("DETECTION_LOG_SIZE"), 500),

		PaymentDelay:            parseDuration(k.String("PAYMENT_MOCK_DELAY"), "0s"),
		CircuitPaymentMinReq:    parseInt(k.String("CIRCUIT_PAYMENT_MIN_REQ"), 10),
		CircuitPaymentFailRatio: parseFloat(k.String("CIRCUIT_PAYMENT_FAILURE_RATE"), 0.5),
		CircuitPaymentOpenFor:   parseDuration(k.String("CIRCUIT_PAYMENT_OPEN_FOR"), "30s"),

		ReceiptsEnabled:   parseBool(k.String("RECEIPTS_ENABLED"), false),
		ReceiptQueue:      valueOrDefault(k.String("RECEIPT_QUEUE"), "receipts"),
		ReceiptMaxRetry:   parseInt(k.String("RECEIPT_MAX_RETRY"), 5),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),
		RetryBase:         parseDuration(k.String("RETRY_BASE"), "2s"),
		RetryJitterPct:    parseFloat(k.String("RETRY_JITTER_PCT"), 0.2),

		HTTPMaxBodyBytes:  int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "60s"),
		AnalyticsRange:    parseInt(k.String("ANALYTICS_DEFAULT_RANGE_DAYS"), 30),

		AuditEnabled:      parseBool(k.String("AUDIT_ENABLED"), true),
		AuditSamplingRate: parseFloat(k.String("AUDIT_SAMPLING_RATE"), 1),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.ScannerMinInterval > cfg.ScannerMaxInterval {
		return nil, errors.New("SCANNER_MIN_INTERVAL must not exceed SCANNER_MAX_INTERVAL")
	}
	if cfg.ScannerMinDelay > cfg.ScannerMaxDelay {
		return nil, errors.New("SCANNER_MIN_DELAY must not exceed SCANNER_MAX_DELAY")
	}
	if cfg.ReceiptsEnabled && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required when RECEIPTS_ENABLED is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UsesPostgres reports whether durable stores are configured.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// UsesRedis reports whether Redis-backed caching and limits are configured.
func (c *Config) UsesRedis() bool { return c.RedisURL != "" }

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
