package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "cache", cfg.Paths.CacheDir)
	assert.Equal(t, "results", cfg.Paths.ResultsDir)
	assert.Equal(t, "nasdaq100", cfg.Universe.Index)
	assert.True(t, cfg.Universe.UseCache)
	assert.Equal(t, 100, cfg.Provider.Limit)
	assert.Equal(t, "FMP_API_KEY", cfg.Provider.APIKeyEnv)
	assert.Equal(t, 90, cfg.Analysis.SurpriseWindowDays)
	assert.Equal(t, 10, cfg.Provider.BreakerFailures)
	assert.Equal(t, "30 1 * * *", cfg.Schedule.Cron)
	assert.Equal(t, DefaultWeights(), cfg.Weights)
	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-12)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
paths:
  results_dir: out
universe:
  index: sp500
  use_cache: false
  static: [" aapl", "msft "]
provider:
  data_source: MOCK
  requests_per_second: 5
weights:
  quarterly_percent_change: 0.5
  earnings_surprise_change: 0.5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Paths.ResultsDir)
	assert.Equal(t, "cache", cfg.Paths.CacheDir)
	assert.Equal(t, "sp500", cfg.Universe.Index)
	assert.False(t, cfg.Universe.UseCache)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Universe.Static)
	assert.Equal(t, "MOCK", cfg.Provider.DataSource)
	assert.Equal(t, 5.0, cfg.Provider.RequestsPerSecond)
	assert.Equal(t, 0.5, cfg.Weights.QuarterlyPercentChange)
	assert.Equal(t, 0.0, cfg.Weights.QuarterlyAgreementScore)
	assert.Equal(t, filepath.Join("out", "quarterly_eps_estimates.csv"), cfg.QuarterlyEstimatesPath())
}

func TestLoadConfigBreakerFailures(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "provider:\n  limit: 50\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Provider.BreakerFailures)

	cfg, err = LoadConfig(writeConfig(t, "provider:\n  breaker_failures: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Provider.BreakerFailures)
}

func TestLoadConfigRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
weights:
  quarterly_percent_change: 0.7
  earnings_surprise_change: 0.7
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum to 1.0")
}

func TestLoadConfigRejectsUnknownIndex(t *testing.T) {
	path := writeConfig(t, "universe:\n  index: dow30\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.APIKeyEnv = "ERM_TEST_API_KEY"

	t.Setenv("ERM_TEST_API_KEY", "")
	_, err := cfg.APIKey()
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	t.Setenv("ERM_TEST_API_KEY", "secret")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths.CacheDir = filepath.Join(root, "c")
	cfg.Paths.LogDir = filepath.Join(root, "l")
	cfg.Paths.ResultsDir = filepath.Join(root, "r")

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{"c", "l", "r"} {
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
