package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MINDTREE_CONFIG", "MINDTREE_BASE_URL", "MINDTREE_DB_FILE", "MINDTREE_MASTER_KEY",
		"MINDTREE_MASTER_KEY_PATH", "ENV", "LOG_LEVEL", "LOG_FORMAT", "MINDTREE_REFRESH_PATH",
		"MINDTREE_REQUEST_TIMEOUT", "MINDTREE_RENEW_TIMEOUT", "MINDTREE_RENEW_BEFORE",
		"MINDTREE_PUSH_BACKOFF_FLOOR", "MINDTREE_PUSH_BACKOFF_CAP", "MINDTREE_RATE_LIMIT",
		"MINDTREE_MOCK_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mindtree.yaml")
	clearEnv(t)
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://api.example.test
database_file: /tmp/from-file.db
log_level: debug
renew_before: 1m
push_backoff_cap: 10s
rate_limit: 2.5
`), 0o600))

	t.Setenv("MINDTREE_CONFIG", path)
	t.Setenv("MINDTREE_DB_FILE", "/tmp/from-env.db")
	t.Setenv("MINDTREE_REQUEST_TIMEOUT", "3")
	t.Setenv("MINDTREE_RENEW_TIMEOUT", "750ms")
	t.Setenv("MINDTREE_MASTER_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://api.example.test", cfg.BaseURL)
	require.Equal(t, "/tmp/from-env.db", cfg.DatabaseFile)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, time.Minute, cfg.RenewBefore)
	require.Equal(t, 10*time.Second, cfg.PushBackoffCap)
	require.InDelta(t, 2.5, cfg.RateLimit, 0.0001)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, 750*time.Millisecond, cfg.RenewTimeout)
	require.Equal(t, "secret", cfg.MasterKey)
}

func TestLoadConfigIgnoresBadEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINDTREE_RENEW_BEFORE", "soon")
	t.Setenv("MINDTREE_RATE_LIMIT", "fast")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, defaultConfig().RenewBefore, cfg.RenewBefore)
	require.Zero(t, cfg.RateLimit)
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINDTREE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("renew_before: [1, 2"), 0o600))
	t.Setenv("MINDTREE_CONFIG", bad)
	_, err = LoadConfig()
	require.Error(t, err)
}
