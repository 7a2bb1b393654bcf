package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// serverConfig is the full server configuration, loaded from defaults, an
// optional YAML file, and SDS_-prefixed environment variables, in that
// order of precedence (lowest first).
type serverConfig struct {
	Listen   string         `mapstructure:"listen"`
	Database databaseConfig `mapstructure:"database"`
	Tenancy  tenancyConfig  `mapstructure:"tenancy"`
	Auth     authConfig     `mapstructure:"auth"`
	Audit    auditConfig    `mapstructure:"audit"`
	CORS     corsConfig     `mapstructure:"cors"`
}

type databaseConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

type tenancyConfig struct {
	Mode string `mapstructure:"mode"`
}

type authConfig struct {
	Mode          string `mapstructure:"mode"`
	SubjectClaim  string `mapstructure:"subjectClaim"`
	PublicKeyPath string `mapstructure:"publicKeyPath"`
	Issuer        string `mapstructure:"issuer"`
}

type auditConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retentionDays"`
}

type corsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// loadConfig reads the server configuration. configPath may be empty, in
// which case only defaults and environment variables apply.
func loadConfig(configPath string) (*serverConfig, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "file:sds.db")
	v.SetDefault("tenancy.mode", "single")
	v.SetDefault("auth.mode", "header")
	v.SetDefault("auth.subjectClaim", "sub")
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.retentionDays", 365)
	v.SetDefault("cors.allowedOrigins", []string{"*"})

	v.SetEnvPrefix("SDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
