package formstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkbook/internal/common/logger"
	"inkbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ==========================
// Test doubles
// ==========================

// flakyBackend wraps a MemoryBackend and fails selected operations.
type flakyBackend struct {
	*MemoryBackend

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	failDel  bool
	failKeys bool
}

var errBackendDown = errors.New("backend down")

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend()}
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) fail(flag *bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *flag
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.fail(&f.failGet) {
		return nil, errBackendDown
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	if f.fail(&f.failSet) {
		return errBackendDown
	}
	return f.MemoryBackend.Set(ctx, key, value)
}

func (f *flakyBackend) Delete(ctx context.Context, keys ...string) error {
	if f.fail(&f.failDel) {
		return errBackendDown
	}
	return f.MemoryBackend.Delete(ctx, keys...)
}

func (f *flakyBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	if f.fail(&f.failKeys) {
		return nil, errBackendDown
	}
	return f.MemoryBackend.Keys(ctx, prefix)
}

func newTestStore(t *testing.T, b Backend) *Store {
	t.Helper()
	return New(b, Config{KeyPrefix: "test:"}, logger.NewTestLogger(t))
}

func sampleDraft() models.BookingDraft {
	d := models.NewBookingDraft()
	d.ServiceType = "custom"
	d.ArtistID = "artist-7"
	d.Email = "ink@example.com"
	d.Duration = 120
	d.References = []string{"ref-a", "ref-b"}
	d.AgreedToTerms = true
	return d
}

// ==========================
// Round trip
// ==========================

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
		dst   func() any
	}{
		{"draft", sampleDraft(), func() any { return &models.BookingDraft{} }},
		{"empty draft", models.NewBookingDraft(), func() any { return &models.BookingDraft{} }},
		{"step", models.StepReferences, func() any { var s models.Step; return &s }},
		{"map", map[string]interface{}{"a": "b", "n": float64(3)}, func() any { m := map[string]interface{}{}; return &m }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, NewMemoryBackend())
			s.Set("ns", tt.value)

			dst := tt.dst()
			require.True(t, s.Get("ns", dst))
			assert.Equal(t, tt.value, derefAny(dst))
		})
	}
}

func derefAny(v any) any {
	switch p := v.(type) {
	case *models.BookingDraft:
		return *p
	case *models.Step:
		return *p
	case *map[string]interface{}:
		return *p
	}
	return nil
}

func TestStore_ReloadFromBackend(t *testing.T) {
	backend := NewMemoryBackend()
	first := newTestStore(t, backend)
	first.Set("booking:f1:draft", sampleDraft())

	second := newTestStore(t, backend)
	var got models.BookingDraft
	require.True(t, second.Get("booking:f1:draft", &got))
	assert.Equal(t, sampleDraft(), got)
}

func TestStore_AbsentAndCorrupt(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)

	var d models.BookingDraft
	assert.False(t, s.Get("missing", &d))

	require.NoError(t, backend.Set(context.Background(), "test:corrupt", []byte("{not json")))
	assert.False(t, s.Get("corrupt", &d))
}

func TestStore_UnencodableValueIsDropped(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend())
	s.Set("bad", make(chan int))

	var v any
	assert.False(t, s.Get("bad", &v))
}

// ==========================
// Degraded backend
// ==========================

func TestStore_BackendWriteFailureKeepsMirror(t *testing.T) {
	backend := newFlakyBackend()
	backend.failSet = true
	backend.failGet = true
	s := newTestStore(t, backend)

	s.Set("draft", sampleDraft())

	var got models.BookingDraft
	require.True(t, s.Get("draft", &got))
	assert.Equal(t, sampleDraft(), got)

	keys, _ := backend.MemoryBackend.Keys(context.Background(), "")
	assert.Empty(t, keys)
}

func TestStore_BackendReadFailureIsAbsent(t *testing.T) {
	backend := newFlakyBackend()
	require.NoError(t, backend.MemoryBackend.Set(context.Background(), "test:draft", []byte(`{"email":"x@y.z"}`)))
	backend.failGet = true
	s := newTestStore(t, backend)

	var got models.BookingDraft
	assert.False(t, s.Get("draft", &got))
}

func TestStore_DeleteSurvivesBackendFailure(t *testing.T) {
	backend := newFlakyBackend()
	s := newTestStore(t, backend)
	s.Set("draft", sampleDraft())

	backend.failDel = true
	s.Delete("draft")

	var got models.BookingDraft
	assert.False(t, s.Get("draft", &got), "mirror tombstone must hide the stale backend value")

	s.mu.RLock()
	entry, ok := s.mirror["test:draft"]
	s.mu.RUnlock()
	require.True(t, ok)
	assert.True(t, entry.deleted)
}

func TestStore_DeleteDropsTombstoneOnceBackendIsClean(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)
	for _, ns := range []string{"booking:a:draft", "booking:b:draft", "booking:c:draft"} {
		s.Set(ns, sampleDraft())
		s.Delete(ns)
	}

	s.mu.RLock()
	assert.Empty(t, s.mirror)
	s.mu.RUnlock()

	var got models.BookingDraft
	assert.False(t, s.Get("booking:a:draft", &got))
	keys, err := backend.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_BackendFailureIsReportedAsPersistenceError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	backend := newFlakyBackend()
	backend.failSet = true
	s := New(backend, Config{KeyPrefix: "test:"}, logger.NewZapAdapter(zap.New(core)))

	s.Set("booking:f1:draft", sampleDraft())

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "PERSISTENCE_FAILED", fields["errorCode"])
	assert.Equal(t, "PERSISTENCE", fields["errorCategory"])
	assert.Equal(t, "formstore_set", fields["op"])
	assert.Equal(t, true, fields["retryable"])
	assert.Contains(t, fields["details"], "key: test:booking:f1:draft")
}

// ==========================
// Prefix purge
// ==========================

func TestStore_DeleteAllMatching(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)

	s.Set("booking:f1:draft", sampleDraft())
	s.Set("booking:f1:step", models.StepPersonalDetails)
	s.Set("booking:f2:step", models.StepReview)

	s.DeleteAllMatching("booking:f1:")

	var d models.BookingDraft
	var step models.Step
	assert.False(t, s.Get("booking:f1:draft", &d))
	assert.False(t, s.Get("booking:f1:step", &step))
	require.True(t, s.Get("booking:f2:step", &step))
	assert.Equal(t, models.StepReview, step)

	keys, err := backend.Keys(context.Background(), "test:")
	require.NoError(t, err)
	assert.Equal(t, []string{"test:booking:f2:step"}, keys)

	// a fresh store over the same backend sees the purge too
	fresh := newTestStore(t, backend)
	assert.False(t, fresh.Get("booking:f1:draft", &d))
}

func TestStore_DeleteAllMatchingWithBackendDown(t *testing.T) {
	backend := newFlakyBackend()
	require.NoError(t, backend.MemoryBackend.Set(context.Background(), "test:booking:f1:draft", []byte(`{}`)))
	backend.failKeys = true
	s := newTestStore(t, backend)

	s.DeleteAllMatching("booking:")

	var d models.BookingDraft
	assert.False(t, s.Get("booking:f1:draft", &d))

	s.Set("booking:f1:draft", sampleDraft())
	require.True(t, s.Get("booking:f1:draft", &d))
	assert.Equal(t, "artist-7", d.ArtistID)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Set("step", models.Step(j%5+1))
				var step models.Step
				s.Get("step", &step)
				if j%10 == 0 {
					s.DeleteAllMatching("st")
				}
			}
		}()
	}
	wg.Wait()
}
