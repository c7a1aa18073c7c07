package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
marketplace:
  client_id: "12345"
  client_secret: "shhh"
  redirect_uri: "https://example.com/callback"
storage:
  database_path: "/tmp/test.db"
sync:
  lookback_days: 7
  concurrency: 2
  timezone: America/Bogota
taxes:
  - name: IVA
    rate: 0.19
observability:
  logging:
    level: debug
    format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Marketplace.ClientID)
	assert.Equal(t, "https://example.com/callback", cfg.Marketplace.RedirectURI)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7, cfg.Sync.LookbackDays)
	assert.Equal(t, 2, cfg.Sync.Concurrency)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	require.Len(t, cfg.Taxes, 1)
	assert.Equal(t, "IVA", cfg.Taxes[0].Name)

	// Defaults fill in what the file omitted
	assert.Equal(t, "https://api.mercadolibre.com", cfg.Marketplace.APIBaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_MELI_SECRET", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
marketplace:
  client_id: "12345"
  client_secret: "${TEST_MELI_SECRET}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Marketplace.ClientSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MELI_CLIENT_ID", "env-client")
	t.Setenv("SYNC_DB_PATH", "/tmp/env.db")
	t.Setenv("SYNC_LOOKBACK_DAYS", "10")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-client", cfg.Marketplace.ClientID)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 10, cfg.Sync.LookbackDays)

	// Defaults
	assert.Equal(t, 5, cfg.Sync.Concurrency)
	assert.Equal(t, "America/Bogota", cfg.Sync.Timezone)
	assert.Equal(t, DefaultTaxRules(), cfg.Taxes)
}

func TestLoadOrEnvWithPath_FallsBackToEnv(t *testing.T) {
	t.Setenv("MELI_CLIENT_ID", "fallback-client")

	cfg, err := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fallback-client", cfg.Marketplace.ClientID)
}
