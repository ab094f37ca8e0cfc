package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url must be set")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", base)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.PollIntervalSeconds <= 0 {
		return errors.New("sync.poll_interval_seconds must be positive")
	}
	if c.Sync.ProbeIntervalSeconds <= 0 {
		return errors.New("sync.probe_interval_seconds must be positive")
	}
	if c.Sync.CredentialTimeoutMillis <= 0 {
		return errors.New("sync.credential_timeout_ms must be positive")
	}
	if c.Sync.ClaimTTLSeconds <= 0 {
		return errors.New("sync.claim_ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("log_format %q must be console or json", c.LogFormat)
	}
}
