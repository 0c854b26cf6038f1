// internal/models/directory.go
package models

// SuggestionKind discriminates search results.
type SuggestionKind string

const (
	KindArtist SuggestionKind = "artist"
	KindStudio SuggestionKind = "studio"
)

func (k SuggestionKind) Valid() bool {
	return k == KindArtist || k == KindStudio
}

// Suggestion is one ranked match for a partial artist or studio query.
type Suggestion struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     SuggestionKind `json:"kind"`
	Subtitle string         `json:"subtitle,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

type TimeSlot struct {
	Start     string `json:"start"` // HH:MM
	End       string `json:"end"`   // HH:MM
	Available bool   `json:"available"`
}

type ArtistAvailability struct {
	ArtistID string     `json:"artistId"`
	Date     string     `json:"date"`
	Slots    []TimeSlot `json:"slots"`
}

type ArtistProfile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StudioID  string   `json:"studioId,omitempty"`
	Styles    []string `json:"styles,omitempty"`
	HourlyFee float64  `json:"hourlyFee,omitempty"`
}

type Studio struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Artists []string `json:"artists,omitempty"`
}
