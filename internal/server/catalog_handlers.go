package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/catalog"
)

// CatalogBrowser serves the per-movie detail and provider lookups.
type CatalogBrowser interface {
	MovieDetails(ctx context.Context, movieID int64) (catalog.MovieDetails, error)
	WatchProviders(ctx context.Context, movieID int64, region string) ([]catalog.Provider, error)
}

// handleMovieDetails returns the catalog detail record plus the flat-rate
// streaming providers for the requested region. Provider lookup failures
// degrade to an empty provider list rather than failing the whole response.
func (h *httpHandler) handleMovieDetails(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "catalog_unavailable"})
		return
	}
	movieID, err := strconv.ParseInt(c.Param("movieID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_movie_id"})
		return
	}
	region := c.DefaultQuery("region", h.defaultRegion)

	details, err := h.catalog.MovieDetails(c.Request.Context(), movieID)
	if err != nil {
		h.logger.Warn("movie detail fetch failed", zap.Int64("movie_id", movieID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog_unavailable"})
		return
	}

	providers, err := h.catalog.WatchProviders(c.Request.Context(), movieID, region)
	if err != nil {
		h.logger.Warn("provider lookup failed", zap.Int64("movie_id", movieID), zap.Error(err))
		providers = nil
	}
	if providers == nil {
		providers = []catalog.Provider{}
	}

	c.JSON(http.StatusOK, gin.H{
		"movie":     details,
		"providers": providers,
		"region":    region,
	})
}
