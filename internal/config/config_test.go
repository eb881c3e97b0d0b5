package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:      DefaultPort,
		Env:       DefaultEnv,
		JWTSecret: "test-secret",
		TokenTTL:  DefaultTokenTTL,
		TrialDays: DefaultTrialDays,
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, DefaultTrialDays, cfg.TrialDays)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_ParsesTokenTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestValidate_ProductionNeedsStrongSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.StripeWebhookSecret = "whsec_test"
	assert.Error(t, cfg.Validate(), "short secret should fail in production")

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionNeedsWebhookSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.Error(t, cfg.Validate())
}

func TestValidate_NegativeTrialDays(t *testing.T) {
	cfg := validConfig()
	cfg.TrialDays = -1
	assert.Error(t, cfg.Validate())
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b"))
	assert.Empty(t, splitCSV(" ,,"))
}
