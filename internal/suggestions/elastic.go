// internal/suggestions/elastic.go
package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inkbook/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrUnknownKind       = errors.New("unknown suggestion kind")
)

type ElasticConfig struct {
	ArtistIndex string
	StudioIndex string
	// Timeout bounds each query; zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// ElasticSearcher runs bool-prefix multi_match queries so partial input
// matches the start of a name.
type ElasticSearcher struct {
	client *elasticsearch.Client
	cfg    ElasticConfig
}

func NewElasticSearcher(client *elasticsearch.Client, cfg ElasticConfig) *ElasticSearcher {
	if cfg.ArtistIndex == "" {
		cfg.ArtistIndex = "artists"
	}
	if cfg.StudioIndex == "" {
		cfg.StudioIndex = "studios"
	}
	return &ElasticSearcher{client: client, cfg: cfg}
}

type searchHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		Name     string   `json:"name"`
		City     string   `json:"city"`
		Studio   string   `json:"studioName"`
		Styles   []string `json:"styles"`
		Location string   `json:"location"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticSearcher) index(kind models.SuggestionKind) (string, []string, error) {
	switch kind {
	case models.KindArtist:
		return e.cfg.ArtistIndex, []string{"name^3", "name._2gram", "name._3gram", "styles"}, nil
	case models.KindStudio:
		return e.cfg.StudioIndex, []string{"name^3", "name._2gram", "name._3gram", "city"}, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func buildSuggestQuery(query string, fields []string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"type":   "bool_prefix",
				"fields": fields,
			},
		},
		"_source": []string{"name", "city", "studioName", "styles", "location"},
	}
}

func (e *ElasticSearcher) Search(ctx context.Context, kind models.SuggestionKind, query string, limit int) ([]models.Suggestion, error) {
	index, fields, err := e.index(kind)
	if err != nil {
		return nil, err
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(buildSuggestQuery(query, fields))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	out := make([]models.Suggestion, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, models.Suggestion{
			ID:       hit.ID,
			Name:     hit.Source.Name,
			Kind:     kind,
			Subtitle: subtitle(kind, hit),
			Score:    hit.Score,
		})
	}
	return out, nil
}

func subtitle(kind models.SuggestionKind, hit searchHit) string {
	if kind == models.KindArtist {
		if hit.Source.Studio != "" {
			return hit.Source.Studio
		}
		if len(hit.Source.Styles) > 0 {
			return hit.Source.Styles[0]
		}
		return ""
	}
	if hit.Source.City != "" {
		return hit.Source.City
	}
	return hit.Source.Location
}
