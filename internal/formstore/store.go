// Package formstore persists booking form state under namespaced keys.
//
// Every write lands in an in-process mirror before it reaches the backend,
// and the mirror answers reads for the life of the process. Backend failures
// are logged and counted, never returned: a store whose backend is down
// behaves as a memory-only store.
package formstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"
)

// ErrNotFound is returned by backends for absent keys.
var ErrNotFound = errors.New("formstore: key not found")

// Backend is durable key/value storage addressed by full keys.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type Config struct {
	KeyPrefix string
	OpTimeout time.Duration
}

type mirrorEntry struct {
	data    []byte
	deleted bool
}

type Store struct {
	backend Backend
	cfg     Config
	log     logger.Logger
	errs    *apperrors.ErrorHandler

	mu     sync.RWMutex
	mirror map[string]mirrorEntry
	// purged holds full-key prefixes whose backend purge is pending or
	// failed. Keys under them are absent unless the mirror has seen them since.
	purged []string
}

func New(backend Backend, cfg Config, log logger.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	log = logger.ForComponent(log, "formstore").WithFields(map[string]interface{}{"backend": backend.Name()})
	return &Store{
		backend: backend,
		cfg:     cfg,
		log:     log,
		errs:    apperrors.NewErrorHandler(log),
		mirror:  make(map[string]mirrorEntry),
	}
}

func (s *Store) key(ns string) string {
	return s.cfg.KeyPrefix + ns
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.OpTimeout)
}

// Get decodes the value stored under ns into dst. It returns false when the
// value is absent or cannot be decoded.
func (s *Store) Get(ns string, dst any) bool {
	key := s.key(ns)

	s.mu.RLock()
	entry, inMirror := s.mirror[key]
	purged := s.isPurgedLocked(key)
	s.mu.RUnlock()

	if inMirror {
		if entry.deleted {
			return false
		}
		return s.decode(key, entry.data, dst)
	}
	if purged {
		return false
	}

	ctx, cancel := s.opContext()
	defer cancel()

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.failure("get", key, err)
		}
		return false
	}
	if !s.decode(key, data, dst) {
		return false
	}

	s.mu.Lock()
	if _, ok := s.mirror[key]; !ok {
		s.mirror[key] = mirrorEntry{data: data}
	}
	s.mu.Unlock()
	return true
}

func (s *Store) decode(key string, data []byte, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		s.log.Warn("discarding corrupt form state", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Set encodes v and writes it under ns, replacing any previous value.
func (s *Store) Set(ns string, v any) {
	key := s.key(ns)

	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to encode form state", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.mirror[key] = mirrorEntry{data: data}
	s.mu.Unlock()

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.failure("set", key, err)
	}
}

// Delete removes the value stored under ns.
func (s *Store) Delete(ns string) {
	key := s.key(ns)

	s.mu.Lock()
	s.mirror[key] = mirrorEntry{deleted: true}
	s.mu.Unlock()

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.backend.Delete(ctx, key); err != nil {
		s.failure("delete", key, err)
		return
	}

	s.mu.Lock()
	if e, ok := s.mirror[key]; ok && e.deleted {
		delete(s.mirror, key)
	}
	s.mu.Unlock()
}

// DeleteAllMatching removes every namespace starting with prefix.
func (s *Store) DeleteAllMatching(prefix string) {
	full := s.key(prefix)

	s.mu.Lock()
	for k := range s.mirror {
		if strings.HasPrefix(k, full) {
			delete(s.mirror, k)
		}
	}
	s.purged = append(s.purged, full)
	s.mu.Unlock()

	ctx, cancel := s.opContext()
	defer cancel()

	keys, err := s.backend.Keys(ctx, full)
	if err != nil {
		s.failure("keys", full, err)
		return
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.failure("delete", full, err)
		return
	}

	// The backend is clean, so the tombstone is no longer needed.
	s.mu.Lock()
	for i, p := range s.purged {
		if p == full {
			s.purged = append(s.purged[:i], s.purged[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.log.Debug("purged form state", map[string]interface{}{"prefix": full, "count": len(keys)})
}

func (s *Store) isPurgedLocked(key string) bool {
	for _, p := range s.purged {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (s *Store) failure(op, key string, err error) {
	metrics.FormStoreFailures.WithLabelValues(s.backend.Name(), op).Inc()
	s.errs.Report("formstore_"+op, apperrors.NewPersistenceFailedError(op, key, err), nil)
}
