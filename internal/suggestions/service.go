// Package suggestions resolves partial artist/studio queries, looks up
// artist availability and warms the cache for entities a booking refers to.
// Every lookup goes through the shared cache.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"inkbook/internal/cache"
	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"
	"inkbook/internal/models"

	"golang.org/x/time/rate"
)

const MinQueryLength = 2

var (
	ErrThrottled       = errors.New("suggestion lookups throttled")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Searcher returns matches in its own ranking order.
type Searcher interface {
	Search(ctx context.Context, kind models.SuggestionKind, query string, limit int) ([]models.Suggestion, error)
}

// Directory serves artist, studio and scheduling data.
type Directory interface {
	ArtistProfile(ctx context.Context, artistID string) (*models.ArtistProfile, error)
	Studio(ctx context.Context, studioID string) (*models.Studio, error)
	Availability(ctx context.Context, artistID, date string) ([]models.TimeSlot, error)
}

type Config struct {
	Limit         int
	TTL           time.Duration
	SlotTTL       time.Duration
	ProfileTTL    time.Duration
	RatePerSecond float64
	Burst         int
}

type Service struct {
	searcher  Searcher
	directory Directory
	cache     *cache.Cache
	cfg       Config
	log       logger.Logger
	errs      *apperrors.ErrorHandler

	mu       sync.Mutex
	limiters map[models.SuggestionKind]*rate.Limiter
}

func NewService(searcher Searcher, directory Directory, c *cache.Cache, cfg Config, log logger.Logger) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.SlotTTL <= 0 {
		cfg.SlotTTL = 5 * time.Minute
	}
	log = logger.ForComponent(log, "suggestions")
	return &Service{
		searcher:  searcher,
		directory: directory,
		cache:     c,
		cfg:       cfg,
		log:       log,
		errs:      apperrors.NewErrorHandler(log),
		limiters:  make(map[models.SuggestionKind]*rate.Limiter),
	}
}

func (s *Service) limiter(kind models.SuggestionKind) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[kind]
	if !ok {
		limit := rate.Inf
		if s.cfg.RatePerSecond > 0 {
			limit = rate.Limit(s.cfg.RatePerSecond)
		}
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		s.limiters[kind] = l
	}
	return l
}

func SuggestKey(kind models.SuggestionKind, query string) string {
	return fmt.Sprintf("suggest:%s:%s", kind, strings.ToLower(strings.TrimSpace(query)))
}

func AvailabilityKey(artistID, date string) string {
	return fmt.Sprintf("artist:%s:availability:%s", artistID, date)
}

func ArtistProfileKey(artistID string) string {
	return fmt.Sprintf("artist:%s:profile", artistID)
}

// ArtistPrefix covers every cache key derived from one artist.
func ArtistPrefix(artistID string) string {
	return fmt.Sprintf("artist:%s:", artistID)
}

func StudioKey(studioID string) string {
	return fmt.Sprintf("studio:%s", studioID)
}

// Suggest returns at most Limit matches for query. Short queries, unknown
// kinds and collaborator failures all produce an empty result.
func (s *Service) Suggest(ctx context.Context, kind models.SuggestionKind, query string) []models.Suggestion {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength || !kind.Valid() {
		return []models.Suggestion{}
	}

	results, err := cache.Fetch(ctx, s.cache, SuggestKey(kind, query), func(ctx context.Context) ([]models.Suggestion, error) {
		if !s.limiter(kind).Allow() {
			return nil, ErrThrottled
		}
		found, err := s.searcher.Search(ctx, kind, query, s.cfg.Limit)
		if err != nil {
			return nil, err
		}
		if len(found) > s.cfg.Limit {
			found = found[:s.cfg.Limit]
		}
		return found, nil
	}, s.cfg.TTL)
	if err != nil {
		metrics.SuggestionRequests.WithLabelValues(string(kind), "failed").Inc()
		s.errs.Report("suggest", apperrors.NewSuggestionFailedError(string(kind), err), map[string]interface{}{
			"query": query,
		})
		return []models.Suggestion{}
	}

	metrics.SuggestionRequests.WithLabelValues(string(kind), "ok").Inc()
	out := make([]models.Suggestion, len(results))
	copy(out, results)
	return out
}

// GetAvailableTimeSlots returns open slots for an artist on date, cached for
// SlotTTL.
func (s *Service) GetAvailableTimeSlots(ctx context.Context, artistID, date string) ([]models.TimeSlot, error) {
	if artistID == "" || date == "" {
		return nil, fmt.Errorf("%w: artistId and date are required", ErrInvalidArgument)
	}

	slots, err := cache.Fetch(ctx, s.cache, AvailabilityKey(artistID, date), func(ctx context.Context) ([]models.TimeSlot, error) {
		return s.directory.Availability(ctx, artistID, date)
	}, s.cfg.SlotTTL)
	if err != nil {
		return nil, apperrors.NewAvailabilityFailedError(artistID, date, err)
	}

	out := make([]models.TimeSlot, len(slots))
	copy(out, slots)
	return out, nil
}

func (s *Service) artistProfile(ctx context.Context, artistID string) (*models.ArtistProfile, error) {
	return cache.Fetch(ctx, s.cache, ArtistProfileKey(artistID), func(ctx context.Context) (*models.ArtistProfile, error) {
		return s.directory.ArtistProfile(ctx, artistID)
	}, s.cfg.ProfileTTL)
}

func (s *Service) studio(ctx context.Context, studioID string) (*models.Studio, error) {
	return cache.Fetch(ctx, s.cache, StudioKey(studioID), func(ctx context.Context) (*models.Studio, error) {
		return s.directory.Studio(ctx, studioID)
	}, s.cfg.ProfileTTL)
}
