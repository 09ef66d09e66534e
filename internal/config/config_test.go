package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":3001", cfg.Server.Addr)
	require.Equal(t, "focusflow.db", cfg.Server.DBPath)
	require.Equal(t, 30*time.Second, cfg.Server.CacheTTL)
	require.Equal(t, "http://localhost:3001/api", cfg.Client.APIURL)
	require.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Auth.Enabled())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	content := []byte(`
server:
  addr: ":9000"
  cache_ttl: 5s
client:
  api_url: "http://tasks.local/api/"
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("FOCUSFLOW_LOG_LEVEL", "warn")
	t.Setenv("FOCUSFLOW_AUTH_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Server.CacheTTL)
	require.Equal(t, "http://tasks.local/api", cfg.Client.APIURL)
	require.Equal(t, "warn", cfg.Log.Level)
	require.True(t, cfg.Auth.Enabled())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FOCUSFLOW_GEMINI_API_KEY=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("FOCUSFLOW_GEMINI_API_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.Gemini.APIKey)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}
