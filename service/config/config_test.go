package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/copywatch")
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.SignaturePageLimit)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("SIGNATURE_PAGE_LIMIT", "100")
	t.Setenv("CHART_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.SignaturePageLimit)
	assert.Equal(t, "secret", cfg.ChartAPIKey)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SOLANA_RPC_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidPageLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SIGNATURE_PAGE_LIMIT", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:        "postgres://localhost/db",
			SolanaRPCURL:       "https://api.mainnet-beta.solana.com",
			PollInterval:       5 * time.Second,
			SignaturePageLimit: 10,
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.PollInterval = 100 * time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SignaturePageLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SignaturePageLimit = 1001
	assert.Error(t, cfg.Validate())
}
