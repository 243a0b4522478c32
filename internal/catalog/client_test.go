package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCatalogServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}
	return server, client
}

func TestDiscoverMoviesBuildsFilterQuery(t *testing.T) {
	var capturedQuery map[string]string
	_, client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			http.NotFound(w, r)
			return
		}
		capturedQuery = map[string]string{
			"api_key":              r.URL.Query().Get("api_key"),
			"page":                 r.URL.Query().Get("page"),
			"sort_by":              r.URL.Query().Get("sort_by"),
			"with_genres":          r.URL.Query().Get("with_genres"),
			"with_watch_providers": r.URL.Query().Get("with_watch_providers"),
			"watch_region":         r.URL.Query().Get("watch_region"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1,
			"results": []map[string]any{
				{"id": 603, "title": "The Matrix", "vote_average": 8.2},
				{"id": 550, "title": "Fight Club", "vote_average": 8.4},
			},
		})
	})

	candidates, err := client.DiscoverMovies(context.Background(), Filters{
		GenreIDs:    "28|878",
		ProviderIDs: "8|337",
		Region:      "BR",
	})
	if err != nil {
		t.Fatalf("failed to discover movies: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ID != 603 || candidates[0].Title != "The Matrix" {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}

	if capturedQuery["api_key"] != "test-key" {
		t.Fatalf("expected api key in query, got %q", capturedQuery["api_key"])
	}
	if capturedQuery["page"] != "1" {
		t.Fatalf("expected default page 1, got %q", capturedQuery["page"])
	}
	if capturedQuery["sort_by"] != "popularity.desc" {
		t.Fatalf("expected popularity sort, got %q", capturedQuery["sort_by"])
	}
	if capturedQuery["with_genres"] != "28|878" {
		t.Fatalf("expected pipe-delimited genres, got %q", capturedQuery["with_genres"])
	}
	if capturedQuery["with_watch_providers"] != "8|337" {
		t.Fatalf("expected pipe-delimited providers, got %q", capturedQuery["with_watch_providers"])
	}
	if capturedQuery["watch_region"] != "BR" {
		t.Fatalf("expected region, got %q", capturedQuery["watch_region"])
	}
}

func TestDiscoverMoviesSurfacesUnexpectedStatus(t *testing.T) {
	_, client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.DiscoverMovies(context.Background(), Filters{})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
}

func TestWatchProvidersFiltersByRegion(t *testing.T) {
	_, client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603/watch/providers" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"BR": map[string]any{
					"flatrate": []map[string]any{
						{"provider_id": 8, "provider_name": "Netflix"},
					},
				},
				"US": map[string]any{
					"flatrate": []map[string]any{
						{"provider_id": 8, "provider_name": "Netflix"},
						{"provider_id": 337, "provider_name": "Disney Plus"},
					},
				},
			},
		})
	})

	providers, err := client.WatchProviders(context.Background(), 603, "br")
	if err != nil {
		t.Fatalf("failed to fetch providers: %v", err)
	}
	if len(providers) != 1 || providers[0].Name != "Netflix" {
		t.Fatalf("unexpected providers: %+v", providers)
	}

	missing, err := client.WatchProviders(context.Background(), 603, "FR")
	if err != nil {
		t.Fatalf("unexpected error for unknown region: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected no providers for unknown region, got %+v", missing)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "key"}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected missing base url error, got %v", err)
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://example.com"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing api key error, got %v", err)
	}
}

func TestMovieDetailsFetchesDetailRecord(t *testing.T) {
	_, client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 603, "title": "The Matrix", "vote_average": 8.2, "runtime": 136,
		})
	})

	details, err := client.MovieDetails(context.Background(), 603)
	if err != nil {
		t.Fatalf("failed to fetch details: %v", err)
	}
	if details.ID != 603 || details.Title != "The Matrix" || details.Runtime != 136 {
		t.Fatalf("unexpected details %+v", details)
	}
}
