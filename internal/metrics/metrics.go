// Package metrics provides Prometheus instrumentation for the MovieMu
// backend: counters for the vote ledger and consensus evaluator, plus
// catalog fetch and vote-queue behavior.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesRecorded counts durably recorded swipe votes, labeled by direction.
	VotesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemu_votes_recorded_total",
		Help: "Total number of swipe votes durably recorded",
	}, []string{"direction"}) // direction = "left", "right"

	// MatchesFound counts consensus matches materialized into shared lists.
	MatchesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moviemu_matches_found_total",
		Help: "Total number of consensus matches materialized",
	})

	// CatalogFetches counts candidate-page fetches, labeled by outcome.
	CatalogFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviemu_catalog_fetches_total",
		Help: "Total number of candidate page fetches from the catalog service",
	}, []string{"outcome"}) // outcome = "fetched", "cache_hit", "error"

	// VoteRetries counts vote-queue write attempts beyond the first.
	VoteRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moviemu_vote_retries_total",
		Help: "Total number of vote write retries performed by the vote queue",
	})

	// VotesDropped counts votes abandoned after exhausting retries.
	VotesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moviemu_votes_dropped_total",
		Help: "Total number of votes dropped after exhausting write retries",
	})
)

func init() {
	prometheus.MustRegister(
		VotesRecorded,
		MatchesFound,
		CatalogFetches,
		VoteRetries,
		VotesDropped,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
