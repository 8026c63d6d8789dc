// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration. The retention window and key file
// location are explicit here and injected into constructors; nothing reads
// them from globals.
type Config struct {
	Addr          string        `mapstructure:"ADDR"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	KeyFile       string        `mapstructure:"KEY_FILE"`
	JWTKey        string        `mapstructure:"JWT_KEY"`
	AccessTTL     time.Duration `mapstructure:"ACCESS_TTL"`
	RetentionDays int           `mapstructure:"RETENTION_DAYS"`
	LoginMaxFails int           `mapstructure:"LOGIN_MAX_FAILS"`
	LoginWindow   time.Duration `mapstructure:"LOGIN_WINDOW"`
	LoginBlockFor time.Duration `mapstructure:"LOGIN_BLOCK_FOR"`
}

// Retention returns the configured retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8080")
	v.SetDefault("KEY_FILE", "encryption.key")
	v.SetDefault("ACCESS_TTL", "15m")
	v.SetDefault("RETENTION_DAYS", 30)
	v.SetDefault("LOGIN_MAX_FAILS", 5)
	v.SetDefault("LOGIN_WINDOW", "15m")
	v.SetDefault("LOGIN_BLOCK_FOR", "15m")

	for _, key := range []string{
		"ADDR", "DATABASE_URL", "KEY_FILE", "JWT_KEY", "ACCESS_TTL",
		"RETENTION_DAYS", "LOGIN_MAX_FAILS", "LOGIN_WINDOW", "LOGIN_BLOCK_FOR",
	} {
		_ = v.BindEnv(key)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTKey == "" {
		return nil, fmt.Errorf("JWT_KEY is required")
	}
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", cfg.RetentionDays)
	}
	return cfg, nil
}
