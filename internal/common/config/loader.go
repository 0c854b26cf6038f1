// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<env>.yaml on top and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly supplied only via env.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Booking.APIKey == "" {
		if val := os.Getenv("BOOKING_API_KEY"); val != "" {
			cfg.APIs.Booking.APIKey = val
		}
	}
	if cfg.APIs.Directory.APIKey == "" {
		if val := os.Getenv("DIRECTORY_API_KEY"); val != "" {
			cfg.APIs.Directory.APIKey = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "booking-flow"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.RatePerSecond == 0 {
		cfg.Server.RatePerSecond = 20
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 40
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.ArtistIndex == "" {
		cfg.Database.Elasticsearch.ArtistIndex = "artists"
	}
	if cfg.Database.Elasticsearch.StudioIndex == "" {
		cfg.Database.Elasticsearch.StudioIndex = "studios"
	}
	if cfg.Database.Elasticsearch.QueryTimeout == 0 {
		cfg.Database.Elasticsearch.QueryTimeout = 3000
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/booking-state.db"
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "inkbook:"
	}
	if cfg.Storage.SessionPrefix == "" {
		cfg.Storage.SessionPrefix = "booking-session:"
	}
	if cfg.Storage.OpTimeout == 0 {
		cfg.Storage.OpTimeout = 2000
	}

	// Booking defaults
	if cfg.Booking.AutosaveDelay == 0 {
		cfg.Booking.AutosaveDelay = 30000
	}
	if cfg.Booking.MaxReferences == 0 {
		cfg.Booking.MaxReferences = 10
	}
	if cfg.Booking.SubmitTimeout == 0 {
		cfg.Booking.SubmitTimeout = 15000
	}
	if cfg.Booking.SubmitBackend == "" {
		cfg.Booking.SubmitBackend = "http"
	}
	if cfg.Booking.MinDescription == 0 {
		cfg.Booking.MinDescription = 10
	}

	// Cache defaults
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 500
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = 300000
	}

	// Suggestion defaults
	if cfg.Suggestions.Limit == 0 {
		cfg.Suggestions.Limit = 5
	}
	if cfg.Suggestions.TTL == 0 {
		cfg.Suggestions.TTL = 60000
	}
	if cfg.Suggestions.SlotCacheTTL == 0 {
		cfg.Suggestions.SlotCacheTTL = 300000
	}
	if cfg.Suggestions.ProfileTTL == 0 {
		cfg.Suggestions.ProfileTTL = 600000
	}
	if cfg.Suggestions.RatePerSecond == 0 {
		cfg.Suggestions.RatePerSecond = 10
	}
	if cfg.Suggestions.Burst == 0 {
		cfg.Suggestions.Burst = 20
	}

	if cfg.Recovery.Delay == 0 {
		cfg.Recovery.Delay = 1000
	}

	// API timeout defaults
	if cfg.APIs.Booking.Timeout == 0 {
		cfg.APIs.Booking.Timeout = 10000
	}
	if cfg.APIs.Directory.Timeout == 0 {
		cfg.APIs.Directory.Timeout = 5000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for storage.backend=redis")
		}
	case "sqlite":
		if cfg.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for storage.backend=sqlite")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, redis or sqlite, got %q", cfg.Storage.Backend)
	}

	switch cfg.Booking.SubmitBackend {
	case "http":
		if cfg.APIs.Booking.BaseURL == "" {
			return fmt.Errorf("apis.booking.base_url is required for booking.submit_backend=http")
		}
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for booking.submit_backend=postgres")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("booking.submit_backend must be http or postgres, got %q", cfg.Booking.SubmitBackend)
	}

	if cfg.Suggestions.Limit < 1 {
		return fmt.Errorf("suggestions.limit must be positive")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
