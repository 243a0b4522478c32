package lists

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("list-id-%d", p.next), nil
}

func newListFixture(t *testing.T) *Service {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "lists.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&List{}, &Participant{}, &Movie{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC) },
		IDProvider: &sequenceIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func TestCreateAddsCreatorAsParticipant(t *testing.T) {
	service := newListFixture(t)

	list, err := service.Create(context.Background(), "user-1", "Weekend Picks", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	if !list.AllowOthersToAdd {
		t.Fatalf("expected shared list to allow others to add")
	}

	participants, err := service.Participants(context.Background(), list.ListID)
	if err != nil {
		t.Fatalf("failed to load participants: %v", err)
	}
	if len(participants) != 1 || participants[0] != "user-1" {
		t.Fatalf("expected creator as sole participant, got %v", participants)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	service := newListFixture(t)

	if _, err := service.Create(context.Background(), "user-1", "   ", true); !errors.Is(err, ErrInvalidListName) {
		t.Fatalf("expected invalid name error, got %v", err)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	service := newListFixture(t)
	list, err := service.Create(context.Background(), "user-1", "Weekend Picks", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}

	if err := service.Join(context.Background(), list.ListID, "user-2"); err != nil {
		t.Fatalf("failed to join: %v", err)
	}
	if err := service.Join(context.Background(), list.ListID, "user-2"); err != nil {
		t.Fatalf("repeated join should be idempotent: %v", err)
	}

	participants, err := service.Participants(context.Background(), list.ListID)
	if err != nil {
		t.Fatalf("failed to load participants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
}

func TestAddMoviePermissions(t *testing.T) {
	service := newListFixture(t)

	restricted, err := service.Create(context.Background(), "creator", "Creator Only", false)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	if err := service.Join(context.Background(), restricted.ListID, "member"); err != nil {
		t.Fatalf("failed to join: %v", err)
	}

	if _, err := service.AddMovie(context.Background(), restricted.ListID, "creator", MovieEntry{TMDBID: 1, Title: "A"}); err != nil {
		t.Fatalf("creator must always be allowed: %v", err)
	}
	if _, err := service.AddMovie(context.Background(), restricted.ListID, "member", MovieEntry{TMDBID: 2, Title: "B"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for member of restricted list, got %v", err)
	}
	if _, err := service.AddMovie(context.Background(), restricted.ListID, "stranger", MovieEntry{TMDBID: 3, Title: "C"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for non-member, got %v", err)
	}

	// Match insertions bypass the permission gate entirely.
	if _, err := service.AddMovie(context.Background(), restricted.ListID, SystemMatchActor, MovieEntry{TMDBID: 4, Title: "D", IsMatch: true}); err != nil {
		t.Fatalf("match insertion must bypass permissions: %v", err)
	}

	shared, err := service.Create(context.Background(), "creator", "Open List", true)
	if err != nil {
		t.Fatalf("failed to create shared list: %v", err)
	}
	if err := service.Join(context.Background(), shared.ListID, "member"); err != nil {
		t.Fatalf("failed to join shared list: %v", err)
	}
	if _, err := service.AddMovie(context.Background(), shared.ListID, "member", MovieEntry{TMDBID: 5, Title: "E"}); err != nil {
		t.Fatalf("participant of open list must be allowed: %v", err)
	}
	if _, err := service.AddMovie(context.Background(), shared.ListID, "stranger", MovieEntry{TMDBID: 6, Title: "F"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for non-member of open list, got %v", err)
	}
}

func TestRecordMatchCollapsesDuplicateEntries(t *testing.T) {
	service := newListFixture(t)
	list, err := service.Create(context.Background(), "user-1", "Movie Night", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}

	const entryID = "match_session-1_603"
	if err := service.RecordMatch(context.Background(), list.ListID, entryID, 603, "The Matrix", "/matrix.jpg"); err != nil {
		t.Fatalf("failed to record match: %v", err)
	}
	if err := service.RecordMatch(context.Background(), list.ListID, entryID, 603, "The Matrix", "/matrix.jpg"); err != nil {
		t.Fatalf("duplicate record must collapse silently: %v", err)
	}

	movies, err := service.Movies(context.Background(), list.ListID)
	if err != nil {
		t.Fatalf("failed to load movies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected single match entry, got %d", len(movies))
	}
	if movies[0].AddedBy != SystemMatchActor || !movies[0].IsMatch {
		t.Fatalf("unexpected match entry: %+v", movies[0])
	}
}

func TestDeleteRequiresCreatorAndCascades(t *testing.T) {
	service := newListFixture(t)
	list, err := service.Create(context.Background(), "creator", "Movie Night", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	if err := service.Join(context.Background(), list.ListID, "member"); err != nil {
		t.Fatalf("failed to join: %v", err)
	}
	if _, err := service.AddMovie(context.Background(), list.ListID, "creator", MovieEntry{TMDBID: 1, Title: "A"}); err != nil {
		t.Fatalf("failed to add movie: %v", err)
	}

	if err := service.Delete(context.Background(), list.ListID, "member"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected creator-only error, got %v", err)
	}
	if err := service.Delete(context.Background(), list.ListID, "creator"); err != nil {
		t.Fatalf("failed to delete list: %v", err)
	}
	if _, err := service.Get(context.Background(), list.ListID); !errors.Is(err, ErrListNotFound) {
		t.Fatalf("expected list gone after delete, got %v", err)
	}
}

func TestMarkWatchedStampsTimestamp(t *testing.T) {
	service := newListFixture(t)
	list, err := service.Create(context.Background(), "user-1", "Movie Night", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	entryID, err := service.AddMovie(context.Background(), list.ListID, "user-1", MovieEntry{TMDBID: 1, Title: "A"})
	if err != nil {
		t.Fatalf("failed to add movie: %v", err)
	}

	if err := service.MarkWatched(context.Background(), list.ListID, entryID); err != nil {
		t.Fatalf("failed to mark watched: %v", err)
	}

	movies, err := service.Movies(context.Background(), list.ListID)
	if err != nil {
		t.Fatalf("failed to load movies: %v", err)
	}
	if !movies[0].Watched || movies[0].WatchedAt == nil {
		t.Fatalf("expected watched flag and timestamp, got %+v", movies[0])
	}
}

func TestFindOrCreateOneOnOneReusesExistingPair(t *testing.T) {
	service := newListFixture(t)

	first, err := service.FindOrCreateOneOnOne(context.Background(), "user-1", "user-2", "First User", "Second Person")
	if err != nil {
		t.Fatalf("failed to create pair list: %v", err)
	}
	if first.Name != "Match: First & Second" {
		t.Fatalf("unexpected pair list name %q", first.Name)
	}

	second, err := service.FindOrCreateOneOnOne(context.Background(), "user-1", "user-2", "First User", "Second Person")
	if err != nil {
		t.Fatalf("failed to resolve pair list: %v", err)
	}
	if second.ListID != first.ListID {
		t.Fatalf("expected existing pair list %s, got %s", first.ListID, second.ListID)
	}
}

func TestByUserReturnsMembershipLists(t *testing.T) {
	service := newListFixture(t)

	own, err := service.Create(context.Background(), "user-1", "Mine", true)
	if err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	other, err := service.Create(context.Background(), "user-2", "Theirs", true)
	if err != nil {
		t.Fatalf("failed to create other list: %v", err)
	}
	if err := service.Join(context.Background(), other.ListID, "user-1"); err != nil {
		t.Fatalf("failed to join other list: %v", err)
	}
	if _, err := service.Create(context.Background(), "user-3", "Unrelated", true); err != nil {
		t.Fatalf("failed to create unrelated list: %v", err)
	}

	mine, err := service.ByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load user lists: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 lists, got %d", len(mine))
	}
	seen := map[string]bool{}
	for _, list := range mine {
		seen[list.ListID] = true
	}
	if !seen[own.ListID] || !seen[other.ListID] {
		t.Fatalf("expected membership lists, got %v", seen)
	}
}
