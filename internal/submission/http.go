// internal/submission/http.go
package submission

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "inkbook/internal/common/errors"
	httpclient "inkbook/internal/common/http"
	"inkbook/internal/models"
)

// HTTPSubmitter POSTs bookings to the booking API.
type HTTPSubmitter struct {
	client  *httpclient.Client
	baseURL string
}

func NewHTTPSubmitter(client *httpclient.Client, baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type createdBooking struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *HTTPSubmitter) Submit(ctx context.Context, draft models.BookingDraft) (*models.SubmissionReceipt, error) {
	payload := payloadFor(draft)
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	var created createdBooking
	if err := h.client.PostJSON(ctx, h.baseURL+"/bookings", payload, &created); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, apperrors.NewSubmissionFailedError(statusErr.StatusCode, err)
		}
		return nil, apperrors.NewSubmissionFailedError(0, apperrors.NewNetworkError("booking-api", err))
	}
	if created.ID == "" {
		return nil, apperrors.NewSubmissionFailedError(0, errors.New("booking api returned no id"))
	}

	receipt := &models.SubmissionReceipt{
		BookingID: created.ID,
		Status:    created.Status,
		CreatedAt: created.CreatedAt,
	}
	if receipt.Status == "" {
		receipt.Status = "pending"
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	return receipt, nil
}
