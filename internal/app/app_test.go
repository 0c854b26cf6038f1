package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkbook/internal/common/config"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		}, 5, time.Millisecond, zap.NewNop(), "probe")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			return errors.New("down")
		}, 3, time.Millisecond, zap.NewNop(), "probe")

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "probe failed after 3 attempts")
	})
}

func TestBuildFailsWhenSearchIsDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	cfg := &config.Config{}
	cfg.Storage.Backend = "memory"
	cfg.Booking.SubmitBackend = "http"
	cfg.APIs.Booking.BaseURL = "http://bookings.invalid"
	cfg.Database.Elasticsearch.Addresses = []string{dead.URL}

	a, err := Build(context.Background(), cfg, zap.NewNop(), nil, Retry{Attempts: 2, InitialDelay: time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "Elasticsearch connection failed after 2 attempts")
}

func TestBuildFailsWhenRedisIsDown(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "redis"
	cfg.Database.Redis.Address = "127.0.0.1:1"

	a, err := Build(context.Background(), cfg, zap.NewNop(), nil, Retry{Attempts: 1, InitialDelay: time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "Redis connection failed")
}
