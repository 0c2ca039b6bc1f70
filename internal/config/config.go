package config

import (
	"errors"
	"fmt"
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
	RedisURL           string
	StoreAPIBaseURL    string
	CORSAllowedOrigins []string

	CartTTL          time.Duration
	UpstreamCacheTTL time.Duration

	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	ReconcileMaxFetches int

	// Pricing knobs. The fallback pair predates the shipping rate
	// service; the discount pair is the legacy storewide promotion.
	FallbackFreeOver  float64
	FallbackFlatFee   float64
	DiscountThreshold float64
	DiscountPercent   float64

	// RateLimit uses the limiter formatted syntax, e.g. "60-M".
	RateLimit string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:            k.String("REDIS_URL"),
		StoreAPIBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("STORE_API_BASE_URL")), "/"),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CartTTL:             parseDuration(k.String("CART_TTL"), "168h"),
		UpstreamCacheTTL:    parseDuration(k.String("UPSTREAM_CACHE_TTL"), "90s"),
		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "3s"),
		UpstreamMaxAttempts: parseInt(k.String("UPSTREAM_MAX_ATTEMPTS"), 3),
		ReconcileMaxFetches: parseInt(k.String("RECONCILE_MAX_FETCHES"), 8),
		FallbackFreeOver:    parseFloat(k.String("PRICING_FALLBACK_FREE_OVER"), 500),
		FallbackFlatFee:     parseFloat(k.String("PRICING_FALLBACK_FLAT_FEE"), 50),
		DiscountThreshold:   parseFloat(k.String("PRICING_DISCOUNT_THRESHOLD"), 1000),
		DiscountPercent:     parseFloat(k.String("PRICING_DISCOUNT_PERCENT"), 10),
		RateLimit:           valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.StoreAPIBaseURL == "" {
		return nil, errors.New("STORE_API_BASE_URL is required")
	}

	return cfg, nil
}

// MustLoad behaves like Load but panics on error. Useful for entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
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
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}
