// internal/suggestions/prefetch.go
package suggestions

import (
	"context"
	"sort"
	"sync"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/metrics"
	"inkbook/internal/models"

	"golang.org/x/sync/errgroup"
)

// PrefetchReport lists what a prefetch pass tried and which keys failed.
type PrefetchReport struct {
	Attempted []string          `json:"attempted"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type prefetchTask struct {
	key string
	run func(ctx context.Context) error
}

// PrefetchRelated warms the cache for whatever changed between prev and next:
// the artist's profile and availability on the chosen date, and the studio.
// Every task settles independently; failures are reported, never returned.
func (s *Service) PrefetchRelated(ctx context.Context, prev, next models.BookingDraft) PrefetchReport {
	tasks := s.prefetchTasks(prev, next)
	report := PrefetchReport{Attempted: make([]string, 0, len(tasks))}
	if len(tasks) == 0 {
		return report
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]string)
		eg     errgroup.Group
	)
	for _, task := range tasks {
		report.Attempted = append(report.Attempted, task.key)
		eg.Go(func() error {
			err := task.run(ctx)
			if err == nil {
				metrics.PrefetchTasks.WithLabelValues("ok").Inc()
				return nil
			}
			metrics.PrefetchTasks.WithLabelValues("failed").Inc()
			s.errs.Report("prefetch", apperrors.NewPrefetchFailedError(task.key, err), nil)
			mu.Lock()
			failed[task.key] = err.Error()
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	sort.Strings(report.Attempted)
	if len(failed) > 0 {
		report.Failed = failed
	}
	return report
}

func (s *Service) prefetchTasks(prev, next models.BookingDraft) []prefetchTask {
	var tasks []prefetchTask

	artistChanged := next.ArtistID != "" && next.ArtistID != prev.ArtistID
	dateChanged := next.AppointmentDate != "" && next.AppointmentDate != prev.AppointmentDate

	if artistChanged {
		artistID := next.ArtistID
		tasks = append(tasks, prefetchTask{
			key: ArtistProfileKey(artistID),
			run: func(ctx context.Context) error {
				_, err := s.artistProfile(ctx, artistID)
				return err
			},
		})
	}
	if next.ArtistID != "" && next.AppointmentDate != "" && (artistChanged || dateChanged) {
		artistID, date := next.ArtistID, next.AppointmentDate
		tasks = append(tasks, prefetchTask{
			key: AvailabilityKey(artistID, date),
			run: func(ctx context.Context) error {
				_, err := s.GetAvailableTimeSlots(ctx, artistID, date)
				return err
			},
		})
	}
	if next.StudioID != "" && next.StudioID != prev.StudioID {
		studioID := next.StudioID
		tasks = append(tasks, prefetchTask{
			key: StudioKey(studioID),
			run: func(ctx context.Context) error {
				_, err := s.studio(ctx, studioID)
				return err
			},
		})
	}
	return tasks
}
