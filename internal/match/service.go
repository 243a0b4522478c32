package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moviemu/backend/internal/ids"
	"github.com/moviemu/backend/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingLists      = errors.New("list directory is required")
	errNoParticipants    = errors.New("list has no participants")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries an operation-scoped error code alongside its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "match.service.new"
	opGetOrCreate  = "match.get_or_create_session"
	opRecordVote   = "match.record_vote"
	opVotedMovies  = "match.voted_movie_ids"
	opEvaluate     = "match.evaluate_consensus"
	opSessionVotes = "match.session_votes"
	opGetSession   = "match.get_session"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ListDirectory is the slice of the shared-list service the match core
// consumes: the membership denominator and the movie-collection sink for
// materialized matches.
type ListDirectory interface {
	Participants(ctx context.Context, listID string) ([]string, error)
	RecordMatch(ctx context.Context, listID, entryID string, movieID int64, title, posterPath string) error
}

// MatchFound describes a materialized consensus match.
type MatchFound struct {
	ListID       string
	SessionID    string
	MovieID      int64
	Title        string
	PosterPath   string
	Participants []string
	FoundAt      time.Time
}

// Publisher receives match-found notifications. Publication failures must not
// affect the vote that triggered them.
type Publisher interface {
	PublishMatchFound(event MatchFound)
}

// ServiceConfig describes the dependencies of the match service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Lists      ListDirectory
	Publisher  Publisher
	Logger     *zap.Logger
}

// Service owns match sessions, the vote ledger, and consensus evaluation.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	lists      ListDirectory
	publisher  Publisher
	logger     *zap.Logger
}

// NewService validates the configuration and returns a match Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Lists == nil {
		return nil, newServiceError(opServiceNew, "missing_list_directory", errMissingLists)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		lists:      cfg.Lists,
		publisher:  cfg.Publisher,
		logger:     logger,
	}, nil
}

// GetOrCreateSession returns the list's active session, creating one when none
// exists. The list must exist and have at least one participant. Resuming an
// existing session keeps the filters stored at creation time; newly supplied
// filters are ignored. The lookup and create run in one transaction so two
// concurrent starters cannot both create an active session.
func (s *Service) GetOrCreateSession(ctx context.Context, listID, actorID string, filters SessionFilters) (Session, error) {
	participants, err := s.lists.Participants(ctx, listID)
	if err != nil {
		s.logError(opGetOrCreate, "list_lookup_failed", err, zap.String("list_id", listID))
		return Session{}, newServiceError(opGetOrCreate, "list_lookup_failed", err)
	}
	if len(participants) == 0 {
		s.logError(opGetOrCreate, "empty_list", errNoParticipants, zap.String("list_id", listID))
		return Session{}, newServiceError(opGetOrCreate, "empty_list", errNoParticipants)
	}

	var session Session
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("list_id = ? AND is_active = ?", listID, true).
			Limit(1).
			Take(&session).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session lookup: %w", err)
		}

		sessionID, err := s.idProvider.NewID()
		if err != nil {
			return fmt.Errorf("id generation: %w", err)
		}
		session = Session{
			SessionID:      sessionID,
			ListID:         listID,
			IsActive:       true,
			GenreFilter:    filters.GenreIDs,
			ProviderFilter: filters.ProviderIDs,
			Region:         filters.Region,
			CreatedBy:      actorID,
			CreatedAt:      s.clock().UTC(),
		}
		return tx.Create(&session).Error
	})
	if txErr != nil {
		s.logError(opGetOrCreate, "session_write_failed", txErr, zap.String("list_id", listID))
		return Session{}, newServiceError(opGetOrCreate, "session_write_failed", txErr)
	}

	return session, nil
}

// VoteOutcome reports the consensus result of a recorded vote.
type VoteOutcome struct {
	Matched      bool
	MatchEntryID string
}

// RecordVote creates-or-overwrites the vote at its composite key, so
// re-submitting the same decision is idempotent and the second write's
// timestamp wins. A right vote triggers consensus evaluation; evaluation
// failures are logged and never roll back the vote.
func (s *Service) RecordVote(ctx context.Context, listID, sessionID, actorID string, movie MovieVote, direction Direction) (VoteOutcome, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		s.logError(opRecordVote, "session_lookup_failed", err, zap.String("session_id", sessionID))
		return VoteOutcome{}, newServiceError(opRecordVote, "session_lookup_failed", err)
	}
	if session.ListID != listID {
		s.logError(opRecordVote, "session_list_mismatch", nil,
			zap.String("session_id", sessionID),
			zap.String("list_id", listID))
		return VoteOutcome{}, newServiceError(opRecordVote, "session_list_mismatch", nil)
	}

	vote := Vote{
		SessionID:  sessionID,
		VoteID:     VoteKey(movie.ID, actorID),
		MovieID:    movie.ID,
		UserID:     actorID,
		Direction:  direction,
		Title:      movie.Title,
		PosterPath: movie.PosterPath,
		Timestamp:  s.clock().UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&vote).Error
	if err != nil {
		s.logError(opRecordVote, "vote_write_failed", err,
			zap.String("session_id", sessionID),
			zap.Int64("movie_id", movie.ID))
		return VoteOutcome{}, newServiceError(opRecordVote, "vote_write_failed", err)
	}
	metrics.VotesRecorded.WithLabelValues(string(direction)).Inc()

	if direction != DirectionRight {
		return VoteOutcome{}, nil
	}

	outcome, err := s.evaluateConsensus(ctx, listID, sessionID, movie)
	if err != nil {
		// Consensus and the triggering vote are deliberately not transactional:
		// a failed evaluation leaves the vote in place.
		s.logError(opEvaluate, "evaluation_failed", err,
			zap.String("session_id", sessionID),
			zap.Int64("movie_id", movie.ID))
		return VoteOutcome{}, nil
	}
	return outcome, nil
}

// VotedMovieIDs returns the ids the actor has already decided in the session,
// used to exclude seen candidates from the next fetched page.
func (s *Service) VotedMovieIDs(ctx context.Context, listID, sessionID, actorID string) ([]int64, error) {
	var movieIDs []int64
	err := s.db.WithContext(ctx).
		Model(&Vote{}).
		Where("session_id = ? AND user_id = ?", sessionID, actorID).
		Pluck("movie_id", &movieIDs).Error
	if err != nil {
		s.logError(opVotedMovies, "query_failed", err, zap.String("session_id", sessionID))
		return nil, newServiceError(opVotedMovies, "query_failed", err)
	}
	return movieIDs, nil
}

// ExcludeSet converts voted movie ids into the set form the feed provider consumes.
func ExcludeSet(movieIDs []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(movieIDs))
	for _, movieID := range movieIDs {
		set[movieID] = struct{}{}
	}
	return set
}

// SessionVotes returns every vote recorded in a session, newest first.
func (s *Service) SessionVotes(ctx context.Context, sessionID string) ([]Vote, error) {
	var votes []Vote
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("voted_at DESC").
		Find(&votes).Error
	if err != nil {
		s.logError(opSessionVotes, "query_failed", err, zap.String("session_id", sessionID))
		return nil, newServiceError(opSessionVotes, "query_failed", err)
	}
	return votes, nil
}

// evaluateConsensus checks whether every current participant of the list has
// liked the movie in this session, and materializes the match when they have.
// The rule is >= rather than ==: a participant leaving after voting can still
// complete consensus from stale votes, a documented simplification.
func (s *Service) evaluateConsensus(ctx context.Context, listID, sessionID string, movie MovieVote) (VoteOutcome, error) {
	participants, err := s.lists.Participants(ctx, listID)
	if err != nil {
		return VoteOutcome{}, fmt.Errorf("participants: %w", err)
	}
	required := len(participants)
	if required == 0 {
		return VoteOutcome{}, nil
	}

	var likes int64
	err = s.db.WithContext(ctx).
		Model(&Vote{}).
		Where("session_id = ? AND movie_id = ? AND direction = ?", sessionID, movie.ID, DirectionRight).
		Count(&likes).Error
	if err != nil {
		return VoteOutcome{}, fmt.Errorf("like count: %w", err)
	}

	if likes < int64(required) {
		return VoteOutcome{}, nil
	}

	entryID := MatchEntryID(sessionID, movie.ID)
	if err := s.lists.RecordMatch(ctx, listID, entryID, movie.ID, movie.Title, movie.PosterPath); err != nil {
		return VoteOutcome{}, fmt.Errorf("record match: %w", err)
	}

	if err := s.deactivateSession(ctx, sessionID); err != nil {
		s.logError(opEvaluate, "session_deactivate_failed", err, zap.String("session_id", sessionID))
	}

	metrics.MatchesFound.Inc()
	s.logger.Info("match found",
		zap.String("list_id", listID),
		zap.String("session_id", sessionID),
		zap.Int64("movie_id", movie.ID),
		zap.String("title", movie.Title))

	if s.publisher != nil {
		s.publisher.PublishMatchFound(MatchFound{
			ListID:       listID,
			SessionID:    sessionID,
			MovieID:      movie.ID,
			Title:        movie.Title,
			PosterPath:   movie.PosterPath,
			Participants: participants,
			FoundAt:      s.clock().UTC(),
		})
	}

	return VoteOutcome{Matched: true, MatchEntryID: entryID}, nil
}

// Session returns the stored session row. Callers use it to read back the
// filters a resumed session was started with.
func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		s.logError(opGetSession, "session_lookup_failed", err, zap.String("session_id", sessionID))
		return Session{}, newServiceError(opGetSession, "session_lookup_failed", err)
	}
	return session, nil
}

func (s *Service) session(ctx context.Context, sessionID string) (Session, error) {
	var session Session
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Take(&session).Error
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *Service) deactivateSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("is_active", false).Error
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("match service error", attrs...)
}
