package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Market.Assets, 2)
	assert.Equal(t, 10, cfg.Market.Humans.Count)
	assert.Len(t, cfg.Market.Bots, 5)
	assert.Equal(t, 0.10, cfg.Market.CircuitBreakerPct)
}

func TestValidateRejectsBadBreaker(t *testing.T) {
	for _, pct := range []float64{0.0, 0.04, 0.51, 1.0} {
		cfg := Defaults()
		cfg.Market.CircuitBreakerPct = pct
		err := cfg.Validate()
		require.Error(t, err, "pct=%g", pct)
		assert.Contains(t, err.Error(), "circuit_breaker_pct")
	}
}

func TestValidateRejectsDuplicateSymbols(t *testing.T) {
	cfg := Defaults()
	cfg.Market.Assets = append(cfg.Market.Assets, AssetConfig{Symbol: "ABC", Price: 50})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.Market.Bots[0].Policy = "front_running"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front_running")
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "daemon"
	assert.Error(t, cfg.Validate())
}

func TestValidatePostgresOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	require.NoError(t, cfg.Validate(), "disabled postgres is not validated")

	cfg.Postgres.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "batch"

[market]
circuit_breaker_pct = 0.25

[batch]
rounds = 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "batch", cfg.Mode)
	assert.Equal(t, 0.25, cfg.Market.CircuitBreakerPct)
	assert.Equal(t, 3, cfg.Batch.Rounds)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETLAB_SERVER_PORT", "9100")
	t.Setenv("MARKETLAB_MARKET_SHORT_SELLING_BAN", "true")
	t.Setenv("MARKETLAB_NOTIFY_EVENTS", "news, reset")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Market.ShortSellingBan)
	assert.Equal(t, []string{"news", "reset"}, cfg.Notify.Events)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	assert.Error(t, err)
}
