// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath      string
	GitHubToken string
	GitHubHost  string
	SecretKey   []byte // 32-byte AES key for credential storage; nil when unset.
}

// HasGitHubToken returns true when a token is available, either from the
// environment or (resolved later) from the credential store.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. The GitHub token (PRSESSION_GITHUB_TOKEN) is optional; without it
// sessions can still be inspected and mutated, but not refreshed from the
// forge. Optional variables with defaults: PRSESSION_DB_PATH (prsession.db),
// PRSESSION_GITHUB_HOST (github.com). PRSESSION_SECRET_KEY, when set, must be
// 64 hex characters (a 32-byte AES-256 key) and enables encrypted credential
// storage.
func Load() (*Config, error) {
	dbPath := "prsession.db"
	if v, ok := os.LookupEnv("PRSESSION_DB_PATH"); ok {
		dbPath = v
	}

	host := "github.com"
	if v, ok := os.LookupEnv("PRSESSION_GITHUB_HOST"); ok {
		host = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("PRSESSION_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("PRSESSION_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("PRSESSION_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	return &Config{
		DBPath:      dbPath,
		GitHubToken: os.Getenv("PRSESSION_GITHUB_TOKEN"),
		GitHubHost:  host,
		SecretKey:   secretKey,
	}, nil
}
