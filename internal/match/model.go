package match

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Direction tags a vote as a pass (left) or a like (right).
type Direction string

const (
	// DirectionLeft is a pass.
	DirectionLeft Direction = "left"
	// DirectionRight is a like. Only right votes can complete consensus.
	DirectionRight Direction = "right"
)

// ErrInvalidDirection indicates a direction outside left/right.
var ErrInvalidDirection = errors.New("match: invalid vote direction")

// ParseDirection validates raw input and returns a Direction.
func ParseDirection(rawInput string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(DirectionLeft):
		return DirectionLeft, nil
	case string(DirectionRight):
		return DirectionRight, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, rawInput)
	}
}

// Session is a scoped voting round over a candidate set for one shared list.
// At most one session per list is active at a time.
type Session struct {
	SessionID      string    `gorm:"column:session_id;primaryKey;size:190;not null"`
	ListID         string    `gorm:"column:list_id;size:190;not null;index:idx_sessions_list_active,priority:1"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true;index:idx_sessions_list_active,priority:2"`
	GenreFilter    string    `gorm:"column:genre_filter;size:190"`
	ProviderFilter string    `gorm:"column:provider_filter;size:190"`
	Region         string    `gorm:"column:region;size:8"`
	CreatedBy      string    `gorm:"column:created_by;size:190;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "match_sessions"
}

// Vote is one participant's decision on one candidate within a session.
// The composite vote id makes a re-vote an overwrite rather than a duplicate.
// Title and poster are denormalized snapshots kept for audit.
type Vote struct {
	SessionID  string    `gorm:"column:session_id;primaryKey;size:190;not null"`
	VoteID     string    `gorm:"column:vote_id;primaryKey;size:220;not null"`
	MovieID    int64     `gorm:"column:movie_id;not null;index:idx_votes_session_movie"`
	UserID     string    `gorm:"column:user_id;size:190;not null;index"`
	Direction  Direction `gorm:"column:direction;size:8;not null"`
	Title      string    `gorm:"column:title;size:512"`
	PosterPath string    `gorm:"column:poster_path;size:512"`
	Timestamp  time.Time `gorm:"column:voted_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Vote) TableName() string {
	return "match_votes"
}

// MovieVote carries the candidate fields recorded alongside a vote.
type MovieVote struct {
	ID         int64
	Title      string
	PosterPath string
}

// SessionFilters is the filter set stored at session creation. Resuming an
// existing session keeps the stored filters; newly supplied ones are ignored.
type SessionFilters struct {
	GenreIDs    string
	ProviderIDs string
	Region      string
}

// VoteKey derives the composite vote identifier for a (movie, user) pair.
func VoteKey(movieID int64, userID string) string {
	return fmt.Sprintf("%d_%s", movieID, userID)
}

// MatchEntryID derives the deterministic list-entry id for a consensus match,
// so repeated materializations of the same match collapse to one entry.
func MatchEntryID(sessionID string, movieID int64) string {
	return fmt.Sprintf("match_%s_%d", sessionID, movieID)
}
