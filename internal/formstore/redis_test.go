package formstore

import (
	"context"
	"errors"
	"testing"

	"inkbook/internal/common/logger"
	"inkbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisBackend_StoreRoundTrip(t *testing.T) {
	mr, client := setupRedis(t)
	s := New(NewRedisBackend(client), Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))

	s.Set("booking:f1:draft", sampleDraft())
	s.Set("booking:f1:step", models.StepTattooDetails)

	assert.True(t, mr.Exists("inkbook:booking:f1:draft"))
	assert.Equal(t, "3", mustGet(t, mr, "inkbook:booking:f1:step"))

	reloaded := New(NewRedisBackend(client), Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))
	var d models.BookingDraft
	require.True(t, reloaded.Get("booking:f1:draft", &d))
	assert.Equal(t, sampleDraft(), d)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestRedisBackend_KeysScansAllPages(t *testing.T) {
	mr, client := setupRedis(t)
	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set("inkbook:booking:f1:"+string(rune('a'+i%26))+string(rune('a'+i/26)), "1"))
	}
	require.NoError(t, mr.Set("inkbook:other", "1"))

	keys, err := NewRedisBackend(client).Keys(context.Background(), "inkbook:booking:")
	require.NoError(t, err)
	assert.Len(t, keys, 250)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `weird\[1\]\*:`, escapeGlob("weird[1]*:"))
	assert.Equal(t, "booking:f1:", escapeGlob("booking:f1:"))
}

func TestRedisBackend_DeleteAllMatching(t *testing.T) {
	mr, client := setupRedis(t)
	s := New(NewRedisBackend(client), Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))

	s.Set("booking:f1:draft", sampleDraft())
	s.Set("booking-session:f1", map[string]string{"flowId": "f1"})
	s.DeleteAllMatching("booking:")

	assert.False(t, mr.Exists("inkbook:booking:f1:draft"))
	assert.True(t, mr.Exists("inkbook:booking-session:f1"))
}

func TestRedisBackend_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	b := NewRedisBackend(client)
	ctx := context.Background()

	mock.ExpectGet("inkbook:missing").RedisNil()
	_, err := b.Get(ctx, "inkbook:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectGet("inkbook:draft").SetErr(errors.New("connection refused"))
	_, err = b.Get(ctx, "inkbook:draft")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	mock.ExpectScan(0, "inkbook:*", scanBatch).SetErr(errors.New("connection refused"))
	_, err = b.Keys(ctx, "inkbook:")
	assert.Error(t, err)

	mock.ExpectDel("a", "b").SetErr(errors.New("readonly"))
	assert.Error(t, b.Delete(ctx, "a", "b"))

	assert.NoError(t, b.Delete(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBackend_StoreDegradesWhenRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	s := New(NewRedisBackend(client), Config{KeyPrefix: "inkbook:"}, logger.NewTestLogger(t))
	mr.Close()

	s.Set("booking:f1:draft", sampleDraft())

	var d models.BookingDraft
	require.True(t, s.Get("booking:f1:draft", &d))
	assert.Equal(t, "artist-7", d.ArtistID)
}
