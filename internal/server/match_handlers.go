package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/catalog"
	"github.com/moviemu/backend/internal/match"
)

type matchSessionRequest struct {
	GenreIDs    string `json:"genre_ids"`
	ProviderIDs string `json:"provider_ids"`
	Region      string `json:"region"`
}

type matchSessionResponse struct {
	SessionID   string `json:"session_id"`
	ListID      string `json:"list_id"`
	IsActive    bool   `json:"is_active"`
	GenreIDs    string `json:"genre_ids"`
	ProviderIDs string `json:"provider_ids"`
	Region      string `json:"region"`
	CreatedBy   string `json:"created_by"`
}

// handleMatchSession resumes the list's active session or starts a new one.
// Filters only apply to a freshly created session; a resumed session keeps
// the filters it was started with.
func (h *httpHandler) handleMatchSession(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)
	listID := c.Param("listID")

	var request matchSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.matches.GetOrCreateSession(c.Request.Context(), listID, actorID, match.SessionFilters{
		GenreIDs:    request.GenreIDs,
		ProviderIDs: request.ProviderIDs,
		Region:      request.Region,
	})
	if err != nil {
		h.logger.Error("match session failed", zap.String("list_id", listID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err, "session_failed")})
		return
	}

	c.JSON(http.StatusOK, matchSessionResponse{
		SessionID:   session.SessionID,
		ListID:      session.ListID,
		IsActive:    session.IsActive,
		GenreIDs:    session.GenreFilter,
		ProviderIDs: session.ProviderFilter,
		Region:      session.Region,
		CreatedBy:   session.CreatedBy,
	})
}

type voteRequest struct {
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
	Direction  string `json:"direction"`
}

// handleRecordVote enqueues the decision for durable recording and returns
// immediately; the deck never waits on the ledger. Consensus results reach
// participants through the event stream.
func (h *httpHandler) handleRecordVote(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)
	listID := c.Param("listID")
	sessionID := c.Param("sessionID")

	var request voteRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.MovieID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	direction, err := match.ParseDirection(request.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_direction"})
		return
	}

	movie := match.MovieVote{
		ID:         request.MovieID,
		Title:      request.Title,
		PosterPath: request.PosterPath,
	}
	if err := h.votes.Enqueue(listID, sessionID, actorID, movie, direction); err != nil {
		h.logger.Warn("vote enqueue rejected",
			zap.String("session_id", sessionID),
			zap.Int64("movie_id", request.MovieID),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vote_queue_full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"vote_id": match.VoteKey(request.MovieID, actorID),
		"status":  string(match.StatusPending),
	})
}

func (h *httpHandler) handleVotedMovies(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)
	listID := c.Param("listID")
	sessionID := c.Param("sessionID")

	movieIDs, err := h.matches.VotedMovieIDs(c.Request.Context(), listID, sessionID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err, "votes_query_failed")})
		return
	}
	if movieIDs == nil {
		movieIDs = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"movie_ids": movieIDs})
}

type sessionVotePayload struct {
	VoteID     string    `json:"vote_id"`
	MovieID    int64     `json:"movie_id"`
	UserID     string    `json:"user_id"`
	Direction  string    `json:"direction"`
	Title      string    `json:"title,omitempty"`
	PosterPath string    `json:"poster_path,omitempty"`
	VotedAt    time.Time `json:"voted_at"`
}

// handleSessionLedger returns every vote recorded in the session, newest
// first, so participants can review what the group has decided so far.
func (h *httpHandler) handleSessionLedger(c *gin.Context) {
	listID := c.Param("listID")
	sessionID := c.Param("sessionID")

	session, err := h.matches.Session(c.Request.Context(), sessionID)
	if err != nil || session.ListID != listID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}

	votes, err := h.matches.SessionVotes(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err, "votes_query_failed")})
		return
	}
	payloads := make([]sessionVotePayload, 0, len(votes))
	for _, vote := range votes {
		payloads = append(payloads, sessionVotePayload{
			VoteID:     vote.VoteID,
			MovieID:    vote.MovieID,
			UserID:     vote.UserID,
			Direction:  string(vote.Direction),
			Title:      vote.Title,
			PosterPath: vote.PosterPath,
			VotedAt:    vote.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"votes": payloads})
}

func (h *httpHandler) handleVoteStatus(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)
	sessionID := c.Param("sessionID")
	movieID, err := strconv.ParseInt(c.Param("movieID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_movie_id"})
		return
	}
	status := h.votes.Status(sessionID, movieID, actorID)
	c.JSON(http.StatusOK, gin.H{
		"vote_id": match.VoteKey(movieID, actorID),
		"status":  string(status),
	})
}

// handleCandidates fetches a filtered discover page with the actor's
// already-voted ids excluded. An empty page is a valid response.
func (h *httpHandler) handleCandidates(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)
	listID := c.Param("listID")
	sessionID := c.Param("sessionID")

	session, err := h.matches.Session(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	if session.ListID != listID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}

	votedIDs, err := h.matches.VotedMovieIDs(c.Request.Context(), listID, sessionID, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err, "votes_query_failed")})
		return
	}

	// Candidates honor the filters the session was started with.
	filters := catalog.Filters{
		GenreIDs:    session.GenreFilter,
		ProviderIDs: session.ProviderFilter,
		Region:      session.Region,
	}
	candidates, err := h.feed.FetchCandidates(c.Request.Context(), filters, match.ExcludeSet(votedIDs))
	if err != nil {
		h.logger.Error("candidate fetch failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog_unavailable"})
		return
	}
	if candidates == nil {
		candidates = []catalog.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// errorCode surfaces the operation-scoped code from service errors, falling
// back to the given default.
func errorCode(err error, fallback string) string {
	var serviceError *match.ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Code()
	}
	return fallback
}
