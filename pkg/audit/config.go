package audit

import (
	"os"
	"strconv"
)

// Config controls audit behavior.
type Config struct {
	RetentionDays int  // Default 365
	Enabled       bool // Whether audit recording is active
}

// DefaultConfig returns the default configuration. SDS regulations expect a
// long paper trail, so retention defaults to a full year.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		Enabled:       true,
	}
}

// ConfigFromEnv loads config from environment variables.
// SDS_AUDIT_RETENTION_DAYS, SDS_AUDIT_ENABLED
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SDS_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("SDS_AUDIT_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
