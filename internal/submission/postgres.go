// internal/submission/postgres.go
package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// ErrSlotTaken is wrapped when another booking already holds the slot.
var ErrSlotTaken = errors.New("SLOT_ALREADY_BOOKED")

// PostgresSubmitter writes bookings straight into the managed database.
type PostgresSubmitter struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSubmitter(db *sql.DB) *PostgresSubmitter {
	return &PostgresSubmitter{db: db, now: time.Now}
}

func (p *PostgresSubmitter) Submit(ctx context.Context, draft models.BookingDraft) (*models.SubmissionReceipt, error) {
	payload := payloadFor(draft)
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	referencesJSON, err := json.Marshal(payload.References)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("marshal references: %w", err))
	}

	bookingID := uuid.New().String()
	createdAt := p.now().UTC()

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO bookings (
			id, service_type, artist_id, studio_id, appointment_date, appointment_time,
			duration_minutes, first_name, last_name, email, phone, description,
			reference_ids, special_requests, agreed_to_terms, marketing_consent,
			status, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		bookingID,
		payload.ServiceType,
		payload.ArtistID,
		payload.StudioID,
		payload.AppointmentDate,
		payload.AppointmentTime,
		payload.Duration,
		payload.FirstName,
		payload.LastName,
		payload.Email,
		payload.Phone,
		payload.Description,
		referencesJSON,
		payload.SpecialRequests,
		payload.AgreedToTerms,
		payload.MarketingConsent,
		"pending",
		createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.NewSubmissionFailedError(http.StatusConflict, fmt.Errorf("%w: %v", ErrSlotTaken, err))
		}
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("insert booking: %w", err))
	}

	return &models.SubmissionReceipt{
		BookingID: bookingID,
		Status:    "pending",
		CreatedAt: createdAt,
	}, nil
}
