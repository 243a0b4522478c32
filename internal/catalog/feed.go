package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/metrics"
)

// ErrMissingDiscoverer indicates the feed provider was built without a catalog client.
var ErrMissingDiscoverer = errors.New("catalog: discoverer required")

// Discoverer is the slice of the catalog client the feed provider consumes.
type Discoverer interface {
	DiscoverMovies(ctx context.Context, filters Filters) ([]Candidate, error)
}

// FeedProviderConfig bundles the dependencies for a FeedProvider.
type FeedProviderConfig struct {
	Discoverer Discoverer
	Cache      PageCache
	Logger     *zap.Logger
}

// FeedProvider fetches pages of unseen candidates for a match session. A page
// is always the catalog's first page; the provider does not paginate.
type FeedProvider struct {
	discoverer Discoverer
	cache      PageCache
	logger     *zap.Logger
}

// NewFeedProvider validates the configuration and returns a FeedProvider.
func NewFeedProvider(cfg FeedProviderConfig) (*FeedProvider, error) {
	if cfg.Discoverer == nil {
		return nil, ErrMissingDiscoverer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedProvider{
		discoverer: cfg.Discoverer,
		cache:      cfg.Cache,
		logger:     logger,
	}, nil
}

// FetchCandidates returns the first discover page under the filters, minus any
// candidate whose id appears in excludeIDs. An empty result is not an error;
// callers surface a no-new-candidates state to the user.
func (p *FeedProvider) FetchCandidates(ctx context.Context, filters Filters, excludeIDs map[int64]struct{}) ([]Candidate, error) {
	filters.Page = 1

	page, hit := p.cachedPage(ctx, filters)
	if hit {
		metrics.CatalogFetches.WithLabelValues("cache_hit").Inc()
	} else {
		fetched, err := p.discoverer.DiscoverMovies(ctx, filters)
		if err != nil {
			metrics.CatalogFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.CatalogFetches.WithLabelValues("fetched").Inc()
		page = fetched
		p.storePage(ctx, filters, page)
	}

	if len(excludeIDs) == 0 {
		return page, nil
	}

	remaining := make([]Candidate, 0, len(page))
	for _, candidate := range page {
		if _, voted := excludeIDs[candidate.ID]; voted {
			continue
		}
		remaining = append(remaining, candidate)
	}
	return remaining, nil
}

func (p *FeedProvider) cachedPage(ctx context.Context, filters Filters) ([]Candidate, bool) {
	if p.cache == nil {
		return nil, false
	}
	page, hit, err := p.cache.Get(ctx, pageCacheKey(filters))
	if err != nil {
		p.logger.Warn("candidate page cache read failed", zap.Error(err))
		return nil, false
	}
	return page, hit
}

func (p *FeedProvider) storePage(ctx context.Context, filters Filters, page []Candidate) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, pageCacheKey(filters), page); err != nil {
		p.logger.Warn("candidate page cache write failed", zap.Error(err))
	}
}
