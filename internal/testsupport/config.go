package testsupport

import (
	"path/filepath"
	"testing"

	"margsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.BaseURL = "http://127.0.0.1:0/api/v1"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBaseURL points the config at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.API.BaseURL = url
	}
}

// WithCredentialTimeout overrides the credential handshake timeout.
func WithCredentialTimeout(millis int) ConfigOption {
	return func(c *config.Config) {
		c.Sync.CredentialTimeoutMillis = millis
	}
}
