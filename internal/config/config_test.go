package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		ServerAddr:         "localhost:8000",
		StoreBackend:       StoreMemory,
		StorageKey:         "schoolAppState",
		NotifySpacing:      2 * time.Second,
		MessageNotifyDelay: 3 * time.Second,
		AllowedOrigins:     []string{"http://localhost:3000"},
	}
}

func TestNewConfig(t *testing.T) {
	tcases := []struct {
		name   string
		modify func(c *Config)
		err    bool
	}{
		{
			name:   "valid memory config",
			modify: func(c *Config) {},
			err:    false,
		},
		{
			name:   "empty address",
			modify: func(c *Config) { c.ServerAddr = "" },
			err:    true,
		},
		{
			name:   "empty storage key",
			modify: func(c *Config) { c.StorageKey = "" },
			err:    true,
		},
		{
			name:   "zero spacing",
			modify: func(c *Config) { c.NotifySpacing = 0 },
			err:    true,
		},
		{
			name:   "negative message delay",
			modify: func(c *Config) { c.MessageNotifyDelay = -time.Second },
			err:    true,
		},
		{
			name:   "zero message delay",
			modify: func(c *Config) { c.MessageNotifyDelay = 0 },
			err:    true,
		},
		{
			name:   "postgres without DSN",
			modify: func(c *Config) { c.StoreBackend = StorePostgres },
			err:    true,
		},
		{
			name: "postgres with DSN",
			modify: func(c *Config) {
				c.StoreBackend = StorePostgres
				c.DatabaseDSN = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
			},
			err: false,
		},
		{
			name:   "redis without address",
			modify: func(c *Config) { c.StoreBackend = StoreRedis },
			err:    true,
		},
		{
			name: "sqlite with path",
			modify: func(c *Config) {
				c.StoreBackend = StoreSQLite
				c.SQLitePath = "classroom.db"
			},
			err: false,
		},
		{
			name:   "sqlite without path",
			modify: func(c *Config) { c.StoreBackend = StoreSQLite },
			err:    true,
		},
		{
			name:   "unknown backend",
			modify: func(c *Config) { c.StoreBackend = "floppy" },
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			in := validConfig()
			tc.modify(&in)

			config, err := NewConfig(in)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, in.ServerAddr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, in.StoreBackend, config.StoreBackend, "expected store backend to match")
			assert.Equal(t, in.AllowedOrigins, config.AllowedOrigins, "expected allowed origins to match")
		})
	}
}
