// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Booking     BookingConfig     `mapstructure:"booking"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Suggestions SuggestionsConfig `mapstructure:"suggestions"`
	Recovery    RecoveryConfig    `mapstructure:"recovery"`
	APIs        APIsConfig        `mapstructure:"apis"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string  `mapstructure:"address"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"` // milliseconds
	RatePerSecond   float64 `mapstructure:"rate_per_second"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ArtistIndex  string   `mapstructure:"artist_index"`
	StudioIndex  string   `mapstructure:"studio_index"`
	QueryTimeout int      `mapstructure:"query_timeout"` // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// --- Booking flow ---

// StorageConfig selects the form store backend. Backend is one of
// "memory", "redis" or "sqlite".
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	SessionPrefix string `mapstructure:"session_prefix"`
	OpTimeout     int    `mapstructure:"op_timeout"` // milliseconds
}

type BookingConfig struct {
	AutosaveDelay  int    `mapstructure:"autosave_delay"` // milliseconds
	MaxReferences  int    `mapstructure:"max_references"`
	SubmitTimeout  int    `mapstructure:"submit_timeout"` // milliseconds
	SubmitBackend  string `mapstructure:"submit_backend"` // http | postgres
	MinDescription int    `mapstructure:"min_description"`
}

type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
	DefaultTTL int `mapstructure:"default_ttl"` // milliseconds
}

type SuggestionsConfig struct {
	Limit         int     `mapstructure:"limit"`
	TTL           int     `mapstructure:"ttl"`            // milliseconds
	SlotCacheTTL  int     `mapstructure:"slot_cache_ttl"` // milliseconds
	ProfileTTL    int     `mapstructure:"profile_ttl"`    // milliseconds
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type RecoveryConfig struct {
	Delay int `mapstructure:"delay"` // milliseconds
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	Booking struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"booking"`

	Directory struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"directory"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
