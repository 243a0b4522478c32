package lists

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

var (
	// ErrListNotFound indicates the referenced list does not exist.
	ErrListNotFound = errors.New("lists: list not found")
	// ErrPermissionDenied indicates the actor may not add movies to the list.
	ErrPermissionDenied = errors.New("lists: no permission to add movies")
	// ErrNotCreator indicates a creator-only operation was attempted by someone else.
	ErrNotCreator = errors.New("lists: only the creator may do this")
	// ErrInvalidListName indicates an empty list name.
	ErrInvalidListName = errors.New("lists: list name required")

	errMissingDatabase   = errors.New("lists: database handle is required")
	errMissingIDProvider = errors.New("lists: id provider is required")
)

// ServiceConfig describes the dependencies of the list service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service owns shared-list membership and the per-list movie collection.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewService validates the configuration and returns a list Service.
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

// Create makes a new list with the creator as its first participant.
// Shared lists default to allowing other participants to add movies.
func (s *Service) Create(ctx context.Context, creatorID, name string, isShared bool) (List, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return List{}, ErrInvalidListName
	}

	listID, err := s.idProvider.NewID()
	if err != nil {
		return List{}, fmt.Errorf("lists: id generation: %w", err)
	}

	list := List{
		ListID:           listID,
		CreatorID:        creatorID,
		Name:             trimmed,
		IsShared:         isShared,
		AllowOthersToAdd: isShared,
		CreatedAt:        s.clock().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&list).Error; err != nil {
			return err
		}
		member := Participant{ListID: listID, UserID: creatorID, AddedAt: s.clock().UTC()}
		return tx.Create(&member).Error
	})
	if err != nil {
		return List{}, fmt.Errorf("lists: create: %w", err)
	}

	s.logger.Info("shared list created",
		zap.String("list_id", listID),
		zap.String("creator_id", creatorID))
	return list, nil
}

// Get returns a single list by id.
func (s *Service) Get(ctx context.Context, listID string) (List, error) {
	var list List
	err := s.db.WithContext(ctx).Where("list_id = ?", listID).Take(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return List{}, ErrListNotFound
	}
	if err != nil {
		return List{}, fmt.Errorf("lists: get: %w", err)
	}
	return list, nil
}

// ByUser returns every list the user participates in.
func (s *Service) ByUser(ctx context.Context, userID string) ([]List, error) {
	var found []List
	err := s.db.WithContext(ctx).
		Joins("JOIN shared_list_participants ON shared_list_participants.list_id = shared_lists.list_id").
		Where("shared_list_participants.user_id = ?", userID).
		Order("shared_lists.created_at DESC").
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("lists: by user: %w", err)
	}
	return found, nil
}

// Participants returns the membership set of a list.
func (s *Service) Participants(ctx context.Context, listID string) ([]string, error) {
	if _, err := s.Get(ctx, listID); err != nil {
		return nil, err
	}
	var members []Participant
	if err := s.db.WithContext(ctx).Where("list_id = ?", listID).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("lists: participants: %w", err)
	}
	userIDs := make([]string, 0, len(members))
	for _, member := range members {
		userIDs = append(userIDs, member.UserID)
	}
	return userIDs, nil
}

// Join adds the user to the list's membership set. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, listID, userID string) error {
	if _, err := s.Get(ctx, listID); err != nil {
		return err
	}
	member := Participant{ListID: listID, UserID: userID, AddedAt: s.clock().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
	if err != nil {
		return fmt.Errorf("lists: join: %w", err)
	}
	return nil
}

// AddParticipants adds several users to the membership set in one call.
func (s *Service) AddParticipants(ctx context.Context, listID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if _, err := s.Get(ctx, listID); err != nil {
		return err
	}
	members := make([]Participant, 0, len(userIDs))
	now := s.clock().UTC()
	for _, userID := range userIDs {
		members = append(members, Participant{ListID: listID, UserID: userID, AddedAt: now})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
	if err != nil {
		return fmt.Errorf("lists: add participants: %w", err)
	}
	return nil
}

// Leave removes the user from the membership set.
func (s *Service) Leave(ctx context.Context, listID, userID string) error {
	err := s.db.WithContext(ctx).
		Where("list_id = ? AND user_id = ?", listID, userID).
		Delete(&Participant{}).Error
	if err != nil {
		return fmt.Errorf("lists: leave: %w", err)
	}
	return nil
}

// Delete removes the list and its dependent rows. Only the creator may delete.
func (s *Service) Delete(ctx context.Context, listID, actorID string) error {
	list, err := s.Get(ctx, listID)
	if err != nil {
		return err
	}
	if list.CreatorID != actorID {
		return ErrNotCreator
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", listID).Delete(&Movie{}).Error; err != nil {
			return fmt.Errorf("lists: delete movies: %w", err)
		}
		if err := tx.Where("list_id = ?", listID).Delete(&Participant{}).Error; err != nil {
			return fmt.Errorf("lists: delete participants: %w", err)
		}
		if err := tx.Where("list_id = ?", listID).Delete(&List{}).Error; err != nil {
			return fmt.Errorf("lists: delete list: %w", err)
		}
		return nil
	})
}

// AddMovie appends a movie entry to the list's collection. Permission:
// the creator, or any participant when the list allows it, or a match
// insertion, which is always allowed regardless of list settings.
func (s *Service) AddMovie(ctx context.Context, listID, actorID string, entry MovieEntry) (string, error) {
	list, err := s.Get(ctx, listID)
	if err != nil {
		return "", err
	}

	if !entry.IsMatch {
		allowed := actorID == list.CreatorID
		if !allowed && list.AllowOthersToAdd {
			member, err := s.isParticipant(ctx, listID, actorID)
			if err != nil {
				return "", err
			}
			allowed = member
		}
		if !allowed {
			return "", ErrPermissionDenied
		}
	}

	entryID, err := s.idProvider.NewID()
	if err != nil {
		return "", fmt.Errorf("lists: id generation: %w", err)
	}

	movie := Movie{
		ListID:     listID,
		EntryID:    entryID,
		TMDBID:     entry.TMDBID,
		Title:      entry.Title,
		PosterPath: entry.PosterPath,
		AddedBy:    actorID,
		AddedAt:    s.clock().UTC(),
		IsMatch:    entry.IsMatch,
	}
	if err := s.db.WithContext(ctx).Create(&movie).Error; err != nil {
		return "", fmt.Errorf("lists: add movie: %w", err)
	}
	return entryID, nil
}

// RecordMatch inserts a consensus match into the list's movie collection at a
// caller-derived entry id. Re-recording the same entry id collapses to the
// existing row, so a match materializes at most once per (session, movie).
func (s *Service) RecordMatch(ctx context.Context, listID, entryID string, movieID int64, title, posterPath string) error {
	if _, err := s.Get(ctx, listID); err != nil {
		return err
	}

	movie := Movie{
		ListID:     listID,
		EntryID:    entryID,
		TMDBID:     movieID,
		Title:      title,
		PosterPath: posterPath,
		AddedBy:    SystemMatchActor,
		AddedAt:    s.clock().UTC(),
		IsMatch:    true,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&movie).Error
	if err != nil {
		return fmt.Errorf("lists: record match: %w", err)
	}
	return nil
}

// Movies returns the list's movie collection.
func (s *Service) Movies(ctx context.Context, listID string) ([]Movie, error) {
	if _, err := s.Get(ctx, listID); err != nil {
		return nil, err
	}
	var movies []Movie
	err := s.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("added_at ASC").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("lists: movies: %w", err)
	}
	return movies, nil
}

// RemoveMovie deletes one movie entry from the list.
func (s *Service) RemoveMovie(ctx context.Context, listID, entryID string) error {
	err := s.db.WithContext(ctx).
		Where("list_id = ? AND entry_id = ?", listID, entryID).
		Delete(&Movie{}).Error
	if err != nil {
		return fmt.Errorf("lists: remove movie: %w", err)
	}
	return nil
}

// MarkWatched flags one movie entry as watched with a server timestamp.
func (s *Service) MarkWatched(ctx context.Context, listID, entryID string) error {
	now := s.clock().UTC()
	err := s.db.WithContext(ctx).
		Model(&Movie{}).
		Where("list_id = ? AND entry_id = ?", listID, entryID).
		Updates(map[string]interface{}{"watched": true, "watched_at": now}).Error
	if err != nil {
		return fmt.Errorf("lists: mark watched: %w", err)
	}
	return nil
}

// FindOrCreateOneOnOne returns a list containing exactly the two users,
// creating one named after them when none exists.
func (s *Service) FindOrCreateOneOnOne(ctx context.Context, currentUserID, friendID, myName, friendName string) (List, error) {
	mine, err := s.ByUser(ctx, currentUserID)
	if err != nil {
		return List{}, err
	}

	for _, candidate := range mine {
		members, err := s.Participants(ctx, candidate.ListID)
		if err != nil {
			return List{}, err
		}
		if len(members) == 2 && containsUser(members, friendID) {
			return candidate, nil
		}
	}

	listName := fmt.Sprintf("Match: %s & %s", firstName(myName), firstName(friendName))
	created, err := s.Create(ctx, currentUserID, listName, true)
	if err != nil {
		return List{}, err
	}
	if err := s.AddParticipants(ctx, created.ListID, []string{friendID}); err != nil {
		return List{}, err
	}
	return created, nil
}

func (s *Service) isParticipant(ctx context.Context, listID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Participant{}).
		Where("list_id = ? AND user_id = ?", listID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lists: participant check: %w", err)
	}
	return count > 0, nil
}

func containsUser(userIDs []string, userID string) bool {
	for _, candidate := range userIDs {
		if candidate == userID {
			return true
		}
	}
	return false
}

func firstName(fullName string) string {
	fields := strings.Fields(strings.TrimSpace(fullName))
	if len(fields) == 0 {
		return "?"
	}
	return fields[0]
}
