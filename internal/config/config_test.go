package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"margsync/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Sync.CredentialTimeoutMillis != 1000 {
		t.Fatalf("expected 1000ms credential timeout default, got %d", cfg.Sync.CredentialTimeoutMillis)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to be reported as absent")
	}
	if path != missing {
		t.Fatalf("expected resolved path %s, got %s", missing, path)
	}
	if cfg.API.BaseURL == "" || cfg.Sync.PollIntervalSeconds <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := strings.Join([]string{
		`log_level = "debug"`,
		``,
		`[paths]`,
		`data_dir = "` + filepath.Join(base, "data") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		``,
		`[api]`,
		`base_url = "https://marg.example.org/api/v1/"`,
		``,
		`[sync]`,
		`credential_timeout_ms = 250`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level override lost: %q", cfg.LogLevel)
	}
	if cfg.Sync.CredentialTimeoutMillis != 250 {
		t.Fatalf("credential timeout override lost: %d", cfg.Sync.CredentialTimeoutMillis)
	}
	if strings.HasSuffix(cfg.API.BaseURL, "/") {
		t.Fatalf("base url should be normalized without trailing slash: %q", cfg.API.BaseURL)
	}
	if cfg.Sync.PollIntervalSeconds != 300 {
		t.Fatalf("unset fields must keep defaults, got %d", cfg.Sync.PollIntervalSeconds)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nbase_url = \"not a url\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected invalid base url to be rejected")
	}
}

func TestDerivedPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if got := cfg.QueueDBPath(); !strings.HasPrefix(got, cfg.Paths.DataDir) {
		t.Fatalf("queue db should live in data dir, got %s", got)
	}
	if cfg.SocketPath() == cfg.BusSocketPath() {
		t.Fatal("control and bus sockets must differ")
	}
	if got := cfg.LockPath(); !strings.HasPrefix(got, cfg.Paths.DataDir) {
		t.Fatalf("lock should live in data dir, got %s", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "nested", "data")
	cfg.Paths.LogDir = filepath.Join(base, "nested", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: err=%v", dir, err)
		}
	}
}
