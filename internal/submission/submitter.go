// Package submission hands a completed booking to the system of record.
package submission

import (
	"context"
	"strings"
	"time"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/metrics"
	"inkbook/internal/common/observability"
	"inkbook/internal/common/validation"
	"inkbook/internal/models"
)

// Submitter creates a booking from a submittable draft.
type Submitter interface {
	Submit(ctx context.Context, draft models.BookingDraft) (*models.SubmissionReceipt, error)
}

// payloadFor returns the draft as it goes on the wire.
func payloadFor(draft models.BookingDraft) models.BookingDraft {
	p := draft.Clone()
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	return p
}

func validatePayload(p models.BookingDraft) error {
	res, err := validation.ValidateBookingPayload(p)
	if err != nil {
		return apperrors.NewSubmissionInvalidPayloadError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewSubmissionInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}

// Instrumented records submission outcome and latency for any Submitter.
type Instrumented struct {
	next    Submitter
	backend string
	obs     *observability.Observability
}

func NewInstrumented(next Submitter, backend string, obs *observability.Observability) *Instrumented {
	return &Instrumented{next: next, backend: backend, obs: obs}
}

func (i *Instrumented) Submit(ctx context.Context, draft models.BookingDraft) (*models.SubmissionReceipt, error) {
	start := time.Now()
	receipt, err := i.next.Submit(ctx, draft)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = strings.ToLower(string(apperrors.Normalize(err).Code))
	}
	metrics.SubmissionDuration.WithLabelValues(i.backend).Observe(elapsed.Seconds())
	i.obs.RecordSubmission(ctx, elapsed, status)
	return receipt, err
}
