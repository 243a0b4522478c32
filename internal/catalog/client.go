package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 10 * time.Second

var (
	// ErrMissingBaseURL indicates the catalog base URL was not configured.
	ErrMissingBaseURL = errors.New("catalog: base url required")
	// ErrMissingAPIKey indicates the catalog API key was not configured.
	ErrMissingAPIKey = errors.New("catalog: api key required")
	// ErrUnexpectedStatus indicates the catalog service answered with a non-200 status.
	ErrUnexpectedStatus = errors.New("catalog: unexpected response status")
)

// Candidate is one movie fetched from the catalog service and offered for a swipe decision.
type Candidate struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Rating      float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
}

// Filters narrows a discover query. Genre and provider ids are pipe-delimited
// sets with OR semantics, matching the catalog API's convention.
type Filters struct {
	GenreIDs    string
	ProviderIDs string
	Region      string
	Page        int
}

// MovieDetails carries the detail-endpoint payload for a single movie.
type MovieDetails struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Rating      float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	Runtime     int     `json:"runtime"`
}

// Provider identifies a streaming provider offering a movie in a region.
type Provider struct {
	ID   int64  `json:"provider_id"`
	Name string `json:"provider_name"`
	Logo string `json:"logo_path"`
}

// ClientConfig bundles the dependencies for a catalog Client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a read-only client for the external movie catalog service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration and returns a catalog Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type discoverResponse struct {
	Page    int         `json:"page"`
	Results []Candidate `json:"results"`
}

// DiscoverMovies returns one page of movies matching the provided filters.
func (c *Client) DiscoverMovies(ctx context.Context, filters Filters) ([]Candidate, error) {
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("page", strconv.Itoa(page))
	query.Set("sort_by", "popularity.desc")
	if filters.GenreIDs != "" {
		query.Set("with_genres", filters.GenreIDs)
	}
	if filters.ProviderIDs != "" {
		query.Set("with_watch_providers", filters.ProviderIDs)
	}
	if filters.Region != "" {
		query.Set("watch_region", filters.Region)
	}

	var response discoverResponse
	if err := c.getJSON(ctx, "/discover/movie", query, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// MovieDetails fetches the detail record for a single movie id.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (MovieDetails, error) {
	query := url.Values{}
	query.Set("api_key", c.apiKey)

	var details MovieDetails
	path := fmt.Sprintf("/movie/%d", movieID)
	if err := c.getJSON(ctx, path, query, &details); err != nil {
		return MovieDetails{}, err
	}
	return details, nil
}

type watchProvidersResponse struct {
	Results map[string]struct {
		Flatrate []Provider `json:"flatrate"`
	} `json:"results"`
}

// WatchProviders returns the flat-rate streaming providers for a movie in a region.
// The catalog service applies region-specific licensing filtering server-side.
func (c *Client) WatchProviders(ctx context.Context, movieID int64, region string) ([]Provider, error) {
	query := url.Values{}
	query.Set("api_key", c.apiKey)

	var response watchProvidersResponse
	path := fmt.Sprintf("/movie/%d/watch/providers", movieID)
	if err := c.getJSON(ctx, path, query, &response); err != nil {
		return nil, err
	}

	regional, ok := response.Results[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return nil, nil
	}
	return regional.Flatrate, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	requestURL := c.baseURL + path + "?" + query.Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("catalog: request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.logger.Warn("catalog request rejected",
			zap.String("path", path),
			zap.Int("status", response.StatusCode))
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	return nil
}
