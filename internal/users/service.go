package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moviemu/backend/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBio = "Novo no MovieMu"

var (
	// ErrProfileNotFound indicates no profile exists for the user id.
	ErrProfileNotFound = errors.New("users: profile not found")
	// ErrUsernameTaken indicates the normalized username is already claimed.
	ErrUsernameTaken = errors.New("users: username already taken")
	// ErrInvalidUsername indicates an empty or malformed username.
	ErrInvalidUsername = errors.New("users: invalid username")
	// ErrInvalidPosition indicates a top-5 slot outside 1..5.
	ErrInvalidPosition = errors.New("users: top-5 position must be between 1 and 5")

	errMissingDatabase   = errors.New("users: database handle is required")
	errMissingIDProvider = errors.New("users: id provider is required")
)

// ServiceConfig describes the dependencies of the user service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service manages profiles, friendships, favorites, and top-5 lists.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewService validates the configuration and returns a user Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// NormalizeUsername lowercases and trims a raw username.
func NormalizeUsername(rawUsername string) string {
	return strings.ToLower(strings.TrimSpace(rawUsername))
}

// UsernameExists reports whether the normalized username is already claimed.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return false, ErrInvalidUsername
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("username = ?", normalized).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("users: username lookup: %w", err)
	}
	return count > 0, nil
}

// CreateProfile registers a new user document after authentication. The
// username is stored normalized and must be unique.
func (s *Service) CreateProfile(ctx context.Context, userID, email, username, fullName string) (Profile, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return Profile{}, ErrInvalidUsername
	}

	taken, err := s.UsernameExists(ctx, normalized)
	if err != nil {
		return Profile{}, err
	}
	if taken {
		return Profile{}, ErrUsernameTaken
	}

	profile := Profile{
		UserID:      userID,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Username:    normalized,
		FullName:    fullName,
		DisplayName: fullName,
		Bio:         defaultBio,
		CreatedAt:   s.clock().UTC(),
		UpdatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return Profile{}, fmt.Errorf("users: create profile: %w", err)
	}
	return profile, nil
}

// GetProfile returns the full user document.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("users: get profile: %w", err)
	}
	return profile, nil
}

// DisplayFields returns the profile's display name and photo URL for
// write-through snapshots on dependent rows.
func (s *Service) DisplayFields(ctx context.Context, userID string) (string, string, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return displayName(profile), profile.PhotoURL, nil
}

// ProfileUpdate carries the mutable profile fields; nil pointers are untouched.
type ProfileUpdate struct {
	FullName *string
	PhotoURL *string
	Bio      *string
}

// UpdateProfile applies a partial update with a fresh server timestamp.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error {
	changes := map[string]interface{}{"updated_at": s.clock().UTC()}
	if update.FullName != nil {
		changes["full_name"] = *update.FullName
		changes["display_name"] = *update.FullName
	}
	if update.PhotoURL != nil {
		changes["photo_url"] = *update.PhotoURL
	}
	if update.Bio != nil {
		changes["bio"] = *update.Bio
	}

	result := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("user_id = ?", userID).
		Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("users: update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SearchByUsername finds a profile by exact normalized username.
func (s *Service) SearchByUsername(ctx context.Context, username string) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Where("username = ?", NormalizeUsername(username)).
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("users: search by username: %w", err)
	}
	return profile, nil
}

// SearchByEmail finds a profile by exact lowercase email.
func (s *Service) SearchByEmail(ctx context.Context, email string) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("users: search by email: %w", err)
	}
	return profile, nil
}

// SendFriendRequest writes the request pair: received on the friend's side,
// sent on the requester's, each snapshotting the other's display fields.
func (s *Service) SendFriendRequest(ctx context.Context, currentUserID, friendID string) error {
	current, err := s.GetProfile(ctx, currentUserID)
	if err != nil {
		return err
	}
	friend, err := s.GetProfile(ctx, friendID)
	if err != nil {
		return err
	}

	now := s.clock().UTC()
	received := FriendRequest{
		OwnerID:     friendID,
		OtherID:     currentUserID,
		Status:      RequestStatusReceived,
		DisplayName: displayName(current),
		Username:    current.Username,
		PhotoURL:    current.PhotoURL,
		CreatedAt:   now,
	}
	sent := FriendRequest{
		OwnerID:     currentUserID,
		OtherID:     friendID,
		Status:      RequestStatusSent,
		DisplayName: displayName(friend),
		Username:    friend.Username,
		PhotoURL:    friend.PhotoURL,
		CreatedAt:   now,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&received).Error; err != nil {
			return fmt.Errorf("users: send request: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sent).Error; err != nil {
			return fmt.Errorf("users: send request: %w", err)
		}
		return nil
	})
}

// AcceptFriendRequest adds both friendship rows and removes the request pair.
func (s *Service) AcceptFriendRequest(ctx context.Context, currentUserID, friendID string) error {
	current, err := s.GetProfile(ctx, currentUserID)
	if err != nil {
		return err
	}
	friend, err := s.GetProfile(ctx, friendID)
	if err != nil {
		return err
	}

	now := s.clock().UTC()
	mine := Friend{
		OwnerID:     currentUserID,
		FriendID:    friendID,
		DisplayName: displayName(friend),
		Username:    friend.Username,
		PhotoURL:    friend.PhotoURL,
		AddedAt:     now,
	}
	theirs := Friend{
		OwnerID:     friendID,
		FriendID:    currentUserID,
		DisplayName: displayName(current),
		Username:    current.Username,
		PhotoURL:    current.PhotoURL,
		AddedAt:     now,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mine).Error; err != nil {
			return fmt.Errorf("users: accept request: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&theirs).Error; err != nil {
			return fmt.Errorf("users: accept request: %w", err)
		}
		if err := deleteRequestPair(tx, currentUserID, friendID); err != nil {
			return err
		}
		return nil
	})
}

// RejectFriendRequest removes the request pair without creating a friendship.
func (s *Service) RejectFriendRequest(ctx context.Context, currentUserID, friendID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRequestPair(tx, currentUserID, friendID)
	})
}

// FriendRequests returns the requests the user has received.
func (s *Service) FriendRequests(ctx context.Context, userID string) ([]FriendRequest, error) {
	var requests []FriendRequest
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", userID, RequestStatusReceived).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("users: friend requests: %w", err)
	}
	return requests, nil
}

// Friends returns the user's friends with their snapshotted display fields.
func (s *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	var friends []Friend
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("added_at DESC").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("users: friends: %w", err)
	}
	return friends, nil
}

// FriendIDs returns just the friend identifiers, used by the reviews feed.
func (s *Service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	var friendIDs []string
	err := s.db.WithContext(ctx).
		Model(&Friend{}).
		Where("owner_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		return nil, fmt.Errorf("users: friend ids: %w", err)
	}
	return friendIDs, nil
}

// RemoveFriend removes the friend from the current user's side only.
func (s *Service) RemoveFriend(ctx context.Context, currentUserID, friendID string) error {
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND friend_id = ?", currentUserID, friendID).
		Delete(&Friend{}).Error
	if err != nil {
		return fmt.Errorf("users: remove friend: %w", err)
	}
	return nil
}

// AddFavorite appends a movie to the user's favorites.
func (s *Service) AddFavorite(ctx context.Context, userID string, movie MovieRef) (string, error) {
	favoriteID, err := s.idProvider.NewID()
	if err != nil {
		return "", fmt.Errorf("users: id generation: %w", err)
	}
	favorite := Favorite{
		FavoriteID: favoriteID,
		UserID:     userID,
		TMDBID:     movie.TMDBID,
		Title:      movie.Title,
		PosterPath: movie.PosterPath,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&favorite).Error; err != nil {
		return "", fmt.Errorf("users: add favorite: %w", err)
	}
	return favoriteID, nil
}

// Favorites returns the user's favorite movies, newest first.
func (s *Service) Favorites(ctx context.Context, userID string) ([]Favorite, error) {
	var favorites []Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("users: favorites: %w", err)
	}
	return favorites, nil
}

// RemoveFavorite deletes one favorite entry.
func (s *Service) RemoveFavorite(ctx context.Context, userID, favoriteID string) error {
	err := s.db.WithContext(ctx).
		Where("favorite_id = ? AND user_id = ?", favoriteID, userID).
		Delete(&Favorite{}).Error
	if err != nil {
		return fmt.Errorf("users: remove favorite: %w", err)
	}
	return nil
}

// SetTopFive assigns a movie to one of the user's five positional slots,
// overwriting whatever held the slot before.
func (s *Service) SetTopFive(ctx context.Context, userID string, position int, movie MovieRef) error {
	if position < 1 || position > 5 {
		return ErrInvalidPosition
	}
	entry := TopFiveEntry{
		UserID:     userID,
		Position:   position,
		TMDBID:     movie.TMDBID,
		Title:      movie.Title,
		PosterPath: movie.PosterPath,
		UpdatedAt:  s.clock().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("users: set top five: %w", err)
	}
	return nil
}

// TopFive returns the user's top-5 slots in position order.
func (s *Service) TopFive(ctx context.Context, userID string) ([]TopFiveEntry, error) {
	var entries []TopFiveEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("users: top five: %w", err)
	}
	return entries, nil
}

func deleteRequestPair(tx *gorm.DB, currentUserID, friendID string) error {
	err := tx.Where("owner_id = ? AND other_id = ?", currentUserID, friendID).
		Delete(&FriendRequest{}).Error
	if err != nil {
		return fmt.Errorf("users: delete request: %w", err)
	}
	err = tx.Where("owner_id = ? AND other_id = ?", friendID, currentUserID).
		Delete(&FriendRequest{}).Error
	if err != nil {
		return fmt.Errorf("users: delete request: %w", err)
	}
	return nil
}

func displayName(profile Profile) string {
	if strings.TrimSpace(profile.DisplayName) != "" {
		return profile.DisplayName
	}
	if strings.TrimSpace(profile.FullName) != "" {
		return profile.FullName
	}
	return "User"
}
