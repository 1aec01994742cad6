package config

import (
	"fmt"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
)

type Config struct {
	ServerAddr         string
	StoreBackend       string
	DatabaseDSN        string
	RedisAddr          string
	RedisPassword      string
	SQLitePath         string
	StorageKey         string
	NotifySpacing      time.Duration
	MessageNotifyDelay time.Duration
	SeedDemoMessages   bool
	AllowedOrigins     []string
}

// Validate checks that the selected store backend has what it needs.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage key cannot be empty")
	}
	if c.NotifySpacing <= 0 {
		return fmt.Errorf("notification spacing must be positive")
	}
	if c.MessageNotifyDelay <= 0 {
		return fmt.Errorf("message notification delay must be positive")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database DSN cannot be empty")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	return nil
}

func NewConfig(cfg Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
