package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
apis:
  booking:
    base_url: http://bookings.local
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "booking-flow", cfg.App.Name)
	assert.Equal(t, 30000, cfg.Booking.AutosaveDelay)
	assert.Equal(t, 10, cfg.Booking.MaxReferences)
	assert.Equal(t, "http", cfg.Booking.SubmitBackend)
	assert.Equal(t, 5, cfg.Suggestions.Limit)
	assert.Equal(t, 300000, cfg.Suggestions.SlotCacheTTL)
	assert.Equal(t, 1000, cfg.Recovery.Delay)
	assert.Equal(t, "inkbook:", cfg.Storage.KeyPrefix)
	assert.Equal(t, "booking-session:", cfg.Storage.SessionPrefix)
	assert.Equal(t, "artists", cfg.Database.Elasticsearch.ArtistIndex)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BOOKING_URL", "http://from-env.local")
	path := writeConfig(t, `
storage:
  backend: memory
apis:
  booking:
    base_url: ${TEST_BOOKING_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env.local", cfg.APIs.Booking.BaseURL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.APIs.Booking.BaseURL = "http://bookings.local"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "floppy" }, "storage.backend"},
		{"redis without address", func(c *Config) { c.Storage.Backend = "redis" }, "database.redis.address"},
		{"redis with address", func(c *Config) {
			c.Storage.Backend = "redis"
			c.Database.Redis.Address = "localhost:6379"
		}, ""},
		{"http submit without url", func(c *Config) { c.APIs.Booking.BaseURL = "" }, "apis.booking.base_url"},
		{"postgres submit without host", func(c *Config) { c.Booking.SubmitBackend = "postgres" }, "database.postgres.host"},
		{"unknown submit backend", func(c *Config) { c.Booking.SubmitBackend = "fax" }, "booking.submit_backend"},
		{"negative limit", func(c *Config) { c.Suggestions.Limit = -1 }, "suggestions.limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "ink", Password: "pw", Database: "bookings", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=ink password=pw dbname=bookings sslmode=disable", p.GetDSN())
}
