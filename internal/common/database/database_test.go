package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"inkbook/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.FileExists(t, path)
}

func TestNewSQLite_Errors(t *testing.T) {
	_, err := NewSQLite(config.SQLiteConfig{})
	assert.Error(t, err)

	orig := openSQLite
	t.Cleanup(func() { openSQLite = orig })
	openSQLite = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("disk gone")
	}

	_, err = NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	c, err := NewRedis(config.RedisConfig{Address: "localhost:6379"})
	require.NoError(t, err)
	assert.NotNil(t, c.GetClient())
	assert.NoError(t, c.Close())
}

func TestNewElasticsearch_RequiresAddresses(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)

	c, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{"http://localhost:9200"}})
	require.NoError(t, err)
	assert.NotNil(t, c.Client)
}

func TestPostgresConfigDSN(t *testing.T) {
	c, err := NewPostgres(config.PostgresConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "bookings", SSLMode: "disable",
		MaxConnections: 4, MaxIdle: 1,
	})
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, c.GetDB())
}
