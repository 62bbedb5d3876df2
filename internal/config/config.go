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
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string

	// Default fee policy applied when a request does not carry its own.
	PlatformPercent         string
	ReferralOverridePercent string
	ProcessorPercent        string
	ProcessorFixedCents     int64
	LowPriceSurchargeCents  int64
	LowPriceThresholdCents  int64

	// Supplier price normalizer bounds: bare integers inside the window
	// are read as minor units.
	SupplierMinorUnitLow  int64
	SupplierMinorUnitHigh int64

	IdempotencyTTL time.Duration
	RateLimitRPS   int
	RateLimitBurst int
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
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "USD"),

		PlatformPercent:         valueOrDefault(k.String("FEE_PLATFORM_PERCENT"), "0.15"),
		ReferralOverridePercent: valueOrDefault(k.String("FEE_REFERRAL_OVERRIDE_PERCENT"), "0.05"),
		ProcessorPercent:        valueOrDefault(k.String("FEE_PROCESSOR_PERCENT"), "0.029"),
		ProcessorFixedCents:     parseInt(k.String("FEE_PROCESSOR_FIXED_CENTS"), 30),
		LowPriceSurchargeCents:  parseInt(k.String("FEE_LOW_PRICE_SURCHARGE_CENTS"), 100),
		LowPriceThresholdCents:  parseInt(k.String("FEE_LOW_PRICE_THRESHOLD_CENTS"), 2000),

		SupplierMinorUnitLow:  parseInt(k.String("SUPPLIER_MINOR_UNIT_LOW"), 1000),
		SupplierMinorUnitHigh: parseInt(k.String("SUPPLIER_MINOR_UNIT_HIGH"), 1_000_000),

		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitRPS:   int(parseInt(k.String("RATE_LIMIT_RPS"), 20)),
		RateLimitBurst: int(parseInt(k.String("RATE_LIMIT_BURST"), 40)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if _, err := cfg.DefaultFeePolicy(); err != nil {
		return nil, fmt.Errorf("fee policy: %w", err)
	}

	return cfg, nil
}

// DefaultFeePolicy builds the validated fee policy from configuration.
// Affiliate and fundraiser cuts are per seller and per listing, so they
// have no environment defaults.
func (c *Config) DefaultFeePolicy() (pricing.FeePolicy, error) {
	platform, err := decimal.NewFromString(c.PlatformPercent)
	if err != nil {
		return pricing.FeePolicy{}, fmt.Errorf("FEE_PLATFORM_PERCENT: %w", err)
	}
	referral, err := decimal.NewFromString(c.ReferralOverridePercent)
	if err != nil {
		return pricing.FeePolicy{}, fmt.Errorf("FEE_REFERRAL_OVERRIDE_PERCENT: %w", err)
	}
	processor, err := decimal.NewFromString(c.ProcessorPercent)
	if err != nil {
		return pricing.FeePolicy{}, fmt.Errorf("FEE_PROCESSOR_PERCENT: %w", err)
	}
	p := pricing.FeePolicy{
		PlatformPercent:         platform,
		ReferralOverridePercent: referral,
		ProcessorPercent:        processor,
		ProcessorFixed:          money.Money(c.ProcessorFixedCents),
		LowPriceSurcharge:       money.Money(c.LowPriceSurchargeCents),
		LowPriceThreshold:       money.Money(c.LowPriceThresholdCents),
	}
	if err := p.Validate(); err != nil {
		return pricing.FeePolicy{}, err
	}
	return p, nil
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

func parseInt(value string, fallback int64) int64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	n, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return fallback
	}
	return n
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
