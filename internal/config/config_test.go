package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every PRSESSION_ env var that Load() reads.
var allConfigKeys = []string{
	"PRSESSION_DB_PATH",
	"PRSESSION_GITHUB_TOKEN",
	"PRSESSION_GITHUB_HOST",
	"PRSESSION_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all PRSESSION_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "prsession.db", cfg.DBPath)
	assert.Equal(t, "github.com", cfg.GitHubHost)
	assert.Empty(t, cfg.GitHubToken)
	assert.False(t, cfg.HasGitHubToken())
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRSESSION_DB_PATH", "/tmp/sessions.db")
	t.Setenv("PRSESSION_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("PRSESSION_GITHUB_HOST", "github.example.com")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/sessions.db", cfg.DBPath)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "github.example.com", cfg.GitHubHost)
	assert.True(t, cfg.HasGitHubToken())
}

func TestLoad_SecretKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRSESSION_SECRET_KEY", strings.Repeat("ab", 32))

	cfg, err := Load()

	require.NoError(t, err)
	require.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKeyInvalid(t *testing.T) {
	isolateConfigEnv(t)

	t.Setenv("PRSESSION_SECRET_KEY", "not-hex")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("PRSESSION_SECRET_KEY", "abcd") // valid hex, wrong length
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}
