// internal/suggestions/directory.go
package suggestions

import (
	"context"
	"fmt"
	"net/url"

	apperrors "inkbook/internal/common/errors"
	httpclient "inkbook/internal/common/http"
	"inkbook/internal/models"
)

// HTTPDirectory reads artists, studios and availability from the directory API.
type HTTPDirectory struct {
	client  *httpclient.Client
	baseURL string
}

func NewHTTPDirectory(client *httpclient.Client, baseURL string) *HTTPDirectory {
	return &HTTPDirectory{client: client, baseURL: baseURL}
}

func (d *HTTPDirectory) ArtistProfile(ctx context.Context, artistID string) (*models.ArtistProfile, error) {
	var out models.ArtistProfile
	endpoint := fmt.Sprintf("%s/artists/%s", d.baseURL, url.PathEscape(artistID))
	if err := d.client.GetJSON(ctx, endpoint, &out); err != nil {
		return nil, apperrors.NewNetworkError("directory", err)
	}
	return &out, nil
}

func (d *HTTPDirectory) Studio(ctx context.Context, studioID string) (*models.Studio, error) {
	var out models.Studio
	endpoint := fmt.Sprintf("%s/studios/%s", d.baseURL, url.PathEscape(studioID))
	if err := d.client.GetJSON(ctx, endpoint, &out); err != nil {
		return nil, apperrors.NewNetworkError("directory", err)
	}
	return &out, nil
}

func (d *HTTPDirectory) Availability(ctx context.Context, artistID, date string) ([]models.TimeSlot, error) {
	var out models.ArtistAvailability
	endpoint := fmt.Sprintf("%s/artists/%s/availability?date=%s",
		d.baseURL, url.PathEscape(artistID), url.QueryEscape(date))
	if err := d.client.GetJSON(ctx, endpoint, &out); err != nil {
		return nil, apperrors.NewNetworkError("directory", err)
	}
	slots := make([]models.TimeSlot, 0, len(out.Slots))
	for _, s := range out.Slots {
		if s.Available {
			slots = append(slots, s)
		}
	}
	return slots, nil
}
