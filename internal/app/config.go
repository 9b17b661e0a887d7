package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (REWARDS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (REWARDS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	Loyalty     LoyaltyConfig
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// RedisURL shares counters between replicas; empty keeps them in memory.
	RedisURL string `usage:"Redis URL for rate limit counters (redis://host:6379/0)" flag:"rate-limit-redis-url"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoyaltyConfig sets how many points a paid order earns.
type LoyaltyConfig struct {
	BaseRate          float64 `default:"1" usage:"Points per currency unit paid" flag:"points-base-rate"`
	CashMultiplier    int64   `default:"1" usage:"Points multiplier for cash payments"`
	CardMultiplier    int64   `default:"1" usage:"Points multiplier for card payments"`
	EWalletMultiplier int64   `default:"2" usage:"Points multiplier for e-wallet payments"`
}

// PointsPolicy converts the loyalty section into a pricing policy.
func (c LoyaltyConfig) PointsPolicy() pricing.PointsPolicy {
	return pricing.PointsPolicy{
		BaseRate: decimal.NewFromFloat(c.BaseRate),
		Multipliers: map[pricing.PaymentMethod]int64{
			pricing.PaymentCash:    c.CashMultiplier,
			pricing.PaymentCard:    c.CardMultiplier,
			pricing.PaymentEWallet: c.EWalletMultiplier,
		},
	}
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "REWARDS",
		Files:     []string{"config.yaml", "/etc/rewards/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set REWARDS_DATABASE_URL or DATABASE_URL")
	case c.Loyalty.BaseRate < 0:
		return errors.Errorf("loyalty base rate %v must not be negative", c.Loyalty.BaseRate)
	case c.Loyalty.CashMultiplier < 0, c.Loyalty.CardMultiplier < 0, c.Loyalty.EWalletMultiplier < 0:
		return errors.New("loyalty multipliers must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's REWARDS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
