package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string

	RemoteBaseURL          string
	RemoteTimeout          time.Duration
	RemoteMaxAttempts      int
	RemoteBackoff          time.Duration
	RemoteBreakerMinReq    int
	RemoteBreakerRatio     float64
	RemoteBreakerOpenFor   time.Duration
	RemotePreferLocalQuote bool

	Pricing Pricing

	StoreDriver string
	StoreTTL    time.Duration
	RedisURL    string
	PebbleDir   string
	DatabaseURL string

	SessionSecret  string
	SessionTTL     time.Duration
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	RateLimitAuth string
	AMQPURL       string
}

// Pricing groups the tunables of the delivery and order pricing rules.
type Pricing struct {
	TaxRate                    float64
	DefaultDistanceCoefficient float64
	DefaultWeightCoefficient   float64
	DefaultDistanceKM          float64
	UnitWeightKG               float64
	CurrencyCode               string
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
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		RemoteBaseURL:          strings.TrimRight(strings.TrimSpace(k.String("REMOTE_API_BASE_URL")), "/"),
		RemoteTimeout:          parseDuration(k.String("REMOTE_API_TIMEOUT"), "3s"),
		RemoteMaxAttempts:      parseInt(k.String("REMOTE_API_MAX_ATTEMPTS"), 2),
		RemoteBackoff:          parseDuration(k.String("REMOTE_API_BACKOFF"), "150ms"),
		RemoteBreakerMinReq:    parseInt(k.String("REMOTE_API_BREAKER_MIN_REQUESTS"), 5),
		RemoteBreakerRatio:     parseFloat(k.String("REMOTE_API_BREAKER_FAILURE_RATIO"), 0.5),
		RemoteBreakerOpenFor:   parseDuration(k.String("REMOTE_API_BREAKER_OPEN_FOR"), "30s"),
		RemotePreferLocalQuote: parseBool(k.String("PRICING_LOCAL_ONLY")),

		Pricing: Pricing{
			TaxRate:                    parseFloat(k.String("PRICING_TAX_RATE"), 0.13),
			DefaultDistanceCoefficient: parseFloat(k.String("PRICING_DEFAULT_DISTANCE_COEFFICIENT"), 0.5),
			DefaultWeightCoefficient:   parseFloat(k.String("PRICING_DEFAULT_WEIGHT_COEFFICIENT"), 2.0),
			DefaultDistanceKM:          parseFloat(k.String("PRICING_DEFAULT_DISTANCE_KM"), 25),
			UnitWeightKG:               parseFloat(k.String("PRICING_UNIT_WEIGHT_KG"), 0.5),
			CurrencyCode:               valueOrDefault(k.String("CURRENCY_CODE"), "CAD"),
		},

		StoreDriver: strings.ToLower(valueOrDefault(k.String("STORE_DRIVER"), StoreMemory)),
		StoreTTL:    parseDuration(k.String("STORE_TTL"), "720h"),
		RedisURL:    k.String("REDIS_URL"),
		PebbleDir:   valueOrDefault(k.String("PEBBLE_DIR"), "data/store"),
		DatabaseURL: k.String("DATABASE_URL"),

		SessionSecret:  k.String("SESSION_SECRET"),
		SessionTTL:     parseDuration(k.String("SESSION_TTL"), "720h"),
		CookieName:     valueOrDefault(k.String("SESSION_COOKIE_NAME"), "jwf_session"),
		CookieDomain:   strings.TrimSpace(k.String("SESSION_COOKIE_DOMAIN")),
		CookieSecure:   parseBool(k.String("SESSION_COOKIE_SECURE")),
		CookieSameSite: parseSameSite(k.String("SESSION_COOKIE_SAMESITE")),

		RateLimitAuth: valueOrDefault(k.String("RATE_LIMIT_AUTH"), "10-M"),
		AMQPURL:       strings.TrimSpace(k.String("AMQP_URL")),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.RemoteBaseURL == "" {
		return nil, errors.New("REMOTE_API_BASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}
	switch cfg.StoreDriver {
	case StoreMemory, StorePebble:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q is not supported", cfg.StoreDriver)
	}
	if cfg.Pricing.TaxRate < 0 {
		return nil, errors.New("PRICING_TAX_RATE must not be negative")
	}
	if cfg.Pricing.DefaultDistanceCoefficient <= 0 || cfg.Pricing.DefaultWeightCoefficient <= 0 {
		return nil, errors.New("PRICING_DEFAULT_*_COEFFICIENT must be positive")
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

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

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
		return value
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
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
