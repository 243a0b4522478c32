package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/reviews"
)

type reviewPayload struct {
	ReviewID  string     `json:"review_id"`
	MovieID   int64      `json:"movie_id"`
	UserID    string     `json:"user_id"`
	UserName  string     `json:"user_name,omitempty"`
	UserPhoto string     `json:"user_photo,omitempty"`
	Rating    float64    `json:"rating"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func reviewToPayload(review reviews.Review) reviewPayload {
	return reviewPayload{
		ReviewID:  review.ReviewID,
		MovieID:   review.MovieID,
		UserID:    review.UserID,
		UserName:  review.UserName,
		UserPhoto: review.UserPhoto,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}

func reviewsToPayloads(rows []reviews.Review) []reviewPayload {
	payloads := make([]reviewPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, reviewToPayload(row))
	}
	return payloads
}

type addReviewRequest struct {
	MovieID int64   `json:"movie_id"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

func (h *httpHandler) handleAddReview(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request addReviewRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.MovieID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	review, err := h.reviews.Add(c.Request.Context(), actorID, reviews.ReviewInput{
		MovieID: request.MovieID,
		Rating:  request.Rating,
		Comment: request.Comment,
	})
	if errors.Is(err, reviews.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		return
	}
	if err != nil {
		h.logger.Error("review add failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review_add_failed"})
		return
	}
	c.JSON(http.StatusCreated, reviewToPayload(review))
}

type updateReviewRequest struct {
	Rating  *float64 `json:"rating"`
	Comment *string  `json:"comment"`
}

func (h *httpHandler) handleUpdateReview(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request updateReviewRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), actorID, c.Param("reviewID"), reviews.ReviewUpdate{
		Rating:  request.Rating,
		Comment: request.Comment,
	})
	if errors.Is(err, reviews.ErrReviewNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "review_not_found"})
		return
	}
	if errors.Is(err, reviews.ErrNotReviewOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_review_owner"})
		return
	}
	if errors.Is(err, reviews.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review_update_failed"})
		return
	}
	c.JSON(http.StatusOK, reviewToPayload(review))
}

func (h *httpHandler) handleDeleteReview(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	err := h.reviews.Delete(c.Request.Context(), actorID, c.Param("reviewID"))
	if errors.Is(err, reviews.ErrReviewNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "review_not_found"})
		return
	}
	if errors.Is(err, reviews.ErrNotReviewOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_review_owner"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review_delete_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleReviewsByMovie(c *gin.Context) {
	movieID, err := strconv.ParseInt(c.Param("movieID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_movie_id"})
		return
	}
	rows, err := h.reviews.ByMovie(c.Request.Context(), movieID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reviews_query_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviewsToPayloads(rows)})
}

func (h *httpHandler) handleReviewsByUser(c *gin.Context) {
	rows, err := h.reviews.ByUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reviews_query_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviewsToPayloads(rows)})
}

// handleFriendsReviews returns the most recent reviews written by the
// caller's friends.
func (h *httpHandler) handleFriendsReviews(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	friendIDs, err := h.users.FriendIDs(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friends_query_failed"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows, err := h.reviews.FriendsRecent(c.Request.Context(), friendIDs, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reviews_query_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviewsToPayloads(rows)})
}
