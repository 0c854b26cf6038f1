package formstore

import (
	"context"
	"path/filepath"
	"testing"

	"inkbook/internal/common/config"
	"inkbook/internal/common/database"
	"inkbook/internal/common/logger"
	"inkbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteBackend(t *testing.T) (*SQLiteBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := database.NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := NewSQLiteBackend(context.Background(), db)
	require.NoError(t, err)
	return b, path
}

func TestSQLiteBackend_CRUD(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	ctx := context.Background()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "inkbook:booking:f1:draft", []byte(`{"a":1}`)))
	require.NoError(t, b.Set(ctx, "inkbook:booking:f1:draft", []byte(`{"a":2}`)))
	require.NoError(t, b.Set(ctx, "inkbook:booking:f2:step", []byte(`2`)))
	require.NoError(t, b.Set(ctx, "inkbook:booking-session:f1", []byte(`{}`)))

	v, err := b.Get(ctx, "inkbook:booking:f1:draft")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(v))

	keys, err := b.Keys(ctx, "inkbook:booking:")
	require.NoError(t, err)
	assert.Equal(t, []string{"inkbook:booking:f1:draft", "inkbook:booking:f2:step"}, keys)

	require.NoError(t, b.Delete(ctx, keys...))
	keys, err = b.Keys(ctx, "inkbook:")
	require.NoError(t, err)
	assert.Equal(t, []string{"inkbook:booking-session:f1"}, keys)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := database.NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	b, err := NewSQLiteBackend(ctx, db)
	require.NoError(t, err)

	s := New(b, Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))
	s.Set("booking:f1:draft", sampleDraft())
	s.Set("booking:f1:step", models.StepReferences)
	require.NoError(t, db.Close())

	db2, err := database.NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer db2.Close()
	b2, err := NewSQLiteBackend(ctx, db2)
	require.NoError(t, err)

	reopened := New(b2, Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))
	var d models.BookingDraft
	var step models.Step
	require.True(t, reopened.Get("booking:f1:draft", &d))
	require.True(t, reopened.Get("booking:f1:step", &step))
	assert.Equal(t, sampleDraft(), d)
	assert.Equal(t, models.StepReferences, step)
}

func TestSQLiteBackend_ClosedDatabaseDegrades(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	require.NoError(t, b.db.Close())

	s := New(b, Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))
	s.Set("booking:f1:step", models.StepReview)

	var step models.Step
	require.True(t, s.Get("booking:f1:step", &step))
	assert.Equal(t, models.StepReview, step)
}
