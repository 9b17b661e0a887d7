package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/outlet-rewards/internal/domain/pricing"
)

func TestLoyaltyConfig_PointsPolicy(t *testing.T) {
	policy := LoyaltyConfig{BaseRate: 1.5, CashMultiplier: 1, CardMultiplier: 1, EWalletMultiplier: 3}.PointsPolicy()

	assert.True(t, policy.BaseRate.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, int64(15), policy.Points(decimal.NewFromInt(10), pricing.PaymentCash))
	assert.Equal(t, int64(45), policy.Points(decimal.NewFromInt(10), pricing.PaymentEWallet))

	_, err := policy.ParsePaymentMethod("card")
	require.NoError(t, err)
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	explicit := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	explicit.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", explicit.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", explicit.Addr)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{DatabaseURL: "postgres://x", Loyalty: LoyaltyConfig{BaseRate: 1, EWalletMultiplier: 2}}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "negative rate", mutate: func(c *Config) { c.Loyalty.BaseRate = -1 }, wantErr: "base rate"},
		{name: "negative multiplier", mutate: func(c *Config) { c.Loyalty.CardMultiplier = -2 }, wantErr: "multipliers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
