package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/moviemu/backend/internal/ids"
)

const (
	opAdd           = "reviews.add"
	opUpdate        = "reviews.update"
	opDelete        = "reviews.delete"
	opByMovie       = "reviews.by_movie"
	opByUser        = "reviews.by_user"
	opFriendsRecent = "reviews.friends_recent"

	// friendsRecentFriendLimit bounds the friends-feed query to the first
	// ten friend ids so the IN clause stays small.
	friendsRecentFriendLimit = 10

	minRating = 0.0
	maxRating = 5.0
)

var (
	// ErrReviewNotFound indicates no review exists for the given id.
	ErrReviewNotFound = errors.New("review not found")
	// ErrInvalidRating indicates a rating outside the accepted range.
	ErrInvalidRating = errors.New("rating out of range")
	// ErrNotReviewOwner indicates the actor does not own the review.
	ErrNotReviewOwner = errors.New("actor does not own review")
)

// ServiceError wraps a review failure with the operation that produced it.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Code returns a stable machine-readable identifier for the failure.
func (e *ServiceError) Code() string {
	reason := strings.ReplaceAll(e.Err.Error(), " ", "_")
	return fmt.Sprintf("%s.%s", e.Op, reason)
}

// ProfileDirectory resolves reviewer display fields at write time.
type ProfileDirectory interface {
	DisplayFields(ctx context.Context, userID string) (name string, photo string, err error)
}

// ServiceConfig carries the dependencies for Service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Profiles   ProfileDirectory
	Logger     *zap.Logger
}

// Service manages movie reviews.
type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	ids      ids.Provider
	profiles ProfileDirectory
	logger   *zap.Logger
}

// NewService builds a review Service from its configuration.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       cfg.Database,
		clock:    clock,
		ids:      cfg.IDProvider,
		profiles: cfg.Profiles,
		logger:   logger,
	}
}

// ReviewInput is the caller-supplied portion of a new review.
type ReviewInput struct {
	MovieID int64
	Rating  float64
	Comment string
}

// Add stores a new review for userID, snapshotting the reviewer's current
// display name and photo onto the row.
func (s *Service) Add(ctx context.Context, userID string, input ReviewInput) (Review, error) {
	if input.Rating < minRating || input.Rating > maxRating {
		return Review{}, &ServiceError{Op: opAdd, Err: ErrInvalidRating}
	}

	reviewID, err := s.ids.NewID()
	if err != nil {
		return Review{}, &ServiceError{Op: opAdd, Err: err}
	}

	name, photo := "", ""
	if s.profiles != nil {
		name, photo, err = s.profiles.DisplayFields(ctx, userID)
		if err != nil {
			// A deleted profile should not block the review; keep the
			// snapshot fields empty.
			s.logger.Warn("review profile snapshot unavailable",
				zap.String("user_id", userID), zap.Error(err))
			name, photo = "", ""
		}
	}

	review := Review{
		ReviewID:  reviewID,
		MovieID:   input.MovieID,
		UserID:    userID,
		UserName:  name,
		UserPhoto: photo,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		return Review{}, &ServiceError{Op: opAdd, Err: err}
	}
	return review, nil
}

// ReviewUpdate carries the mutable fields of a review. Nil fields are left
// unchanged.
type ReviewUpdate struct {
	Rating  *float64
	Comment *string
}

// Update applies the given changes to a review owned by userID and stamps
// updated_at.
func (s *Service) Update(ctx context.Context, userID string, reviewID string, update ReviewUpdate) (Review, error) {
	if update.Rating != nil && (*update.Rating < minRating || *update.Rating > maxRating) {
		return Review{}, &ServiceError{Op: opUpdate, Err: ErrInvalidRating}
	}

	var review Review
	err := s.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Review{}, &ServiceError{Op: opUpdate, Err: ErrReviewNotFound}
	}
	if err != nil {
		return Review{}, &ServiceError{Op: opUpdate, Err: err}
	}
	if review.UserID != userID {
		return Review{}, &ServiceError{Op: opUpdate, Err: ErrNotReviewOwner}
	}

	now := s.clock().UTC()
	changes := map[string]any{"updated_at": now}
	if update.Rating != nil {
		changes["rating"] = *update.Rating
		review.Rating = *update.Rating
	}
	if update.Comment != nil {
		changes["comment"] = *update.Comment
		review.Comment = *update.Comment
	}
	if err := s.db.WithContext(ctx).
		Model(&Review{}).
		Where("review_id = ?", reviewID).
		Updates(changes).Error; err != nil {
		return Review{}, &ServiceError{Op: opUpdate, Err: err}
	}
	review.UpdatedAt = &now
	return review, nil
}

// Delete removes a review owned by userID.
func (s *Service) Delete(ctx context.Context, userID string, reviewID string) error {
	var review Review
	err := s.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ServiceError{Op: opDelete, Err: ErrReviewNotFound}
	}
	if err != nil {
		return &ServiceError{Op: opDelete, Err: err}
	}
	if review.UserID != userID {
		return &ServiceError{Op: opDelete, Err: ErrNotReviewOwner}
	}
	if err := s.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Delete(&Review{}).Error; err != nil {
		return &ServiceError{Op: opDelete, Err: err}
	}
	return nil
}

// ByMovie returns all reviews of a movie, newest first.
func (s *Service) ByMovie(ctx context.Context, movieID int64) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("movie_id = ?", movieID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, &ServiceError{Op: opByMovie, Err: err}
	}
	return reviews, nil
}

// ByUser returns all reviews written by a user, newest first.
func (s *Service) ByUser(ctx context.Context, userID string) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, &ServiceError{Op: opByUser, Err: err}
	}
	return reviews, nil
}

// FriendsRecent returns the most recent reviews written by the given friends,
// newest first, capped at limit rows. Only the first ten friend ids are
// considered.
func (s *Service) FriendsRecent(ctx context.Context, friendIDs []string, limit int) ([]Review, error) {
	if len(friendIDs) == 0 {
		return []Review{}, nil
	}
	if len(friendIDs) > friendsRecentFriendLimit {
		friendIDs = friendIDs[:friendsRecentFriendLimit]
	}
	if limit <= 0 {
		limit = 20
	}

	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("user_id IN ?", friendIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, &ServiceError{Op: opFriendsRecent, Err: err}
	}
	return reviews, nil
}
