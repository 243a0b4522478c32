package users

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
	return fmt.Sprintf("user-gen-%d", p.next), nil
}

func newUserFixture(t *testing.T) *Service {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "users.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Profile{}, &FriendRequest{}, &Friend{}, &Favorite{}, &TopFiveEntry{}); err != nil {
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

func mustCreateProfile(t *testing.T, service *Service, userID, username, fullName string) Profile {
	t.Helper()
	profile, err := service.CreateProfile(context.Background(), userID, userID+"@example.com", username, fullName)
	if err != nil {
		t.Fatalf("failed to create profile for %s: %v", userID, err)
	}
	return profile
}

func TestCreateProfileNormalizesAndDefaults(t *testing.T) {
	service := newUserFixture(t)

	profile, err := service.CreateProfile(context.Background(), "user-1", "  First@Example.COM ", "  MovieFan42 ", "First User")
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if profile.Username != "moviefan42" {
		t.Fatalf("expected normalized username, got %q", profile.Username)
	}
	if profile.Email != "first@example.com" {
		t.Fatalf("expected lowercase email, got %q", profile.Email)
	}
	if profile.Bio != defaultBio {
		t.Fatalf("expected default bio, got %q", profile.Bio)
	}
	if profile.DisplayName != "First User" {
		t.Fatalf("expected display name seeded from full name, got %q", profile.DisplayName)
	}
}

func TestCreateProfileRejectsTakenUsername(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "moviefan", "First User")

	if _, err := service.CreateProfile(context.Background(), "user-2", "second@example.com", "MOVIEFAN", "Second Person"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username taken error, got %v", err)
	}
	if _, err := service.CreateProfile(context.Background(), "user-3", "third@example.com", "   ", "Third Person"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected invalid username error, got %v", err)
	}
}

func TestUsernameExists(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "moviefan", "First User")

	taken, err := service.UsernameExists(context.Background(), " MovieFan ")
	if err != nil {
		t.Fatalf("failed to check username: %v", err)
	}
	if !taken {
		t.Fatalf("expected case-insensitive hit")
	}

	free, err := service.UsernameExists(context.Background(), "someone-else")
	if err != nil {
		t.Fatalf("failed to check username: %v", err)
	}
	if free {
		t.Fatalf("expected unclaimed username to be free")
	}
}

func TestUpdateProfileAppliesPartialChanges(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "moviefan", "First User")

	newBio := "Cinema enjoyer"
	if err := service.UpdateProfile(context.Background(), "user-1", ProfileUpdate{Bio: &newBio}); err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	profile, err := service.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to reload profile: %v", err)
	}
	if profile.Bio != newBio {
		t.Fatalf("expected updated bio, got %q", profile.Bio)
	}
	if profile.FullName != "First User" {
		t.Fatalf("nil fields must stay untouched, got %q", profile.FullName)
	}

	if err := service.UpdateProfile(context.Background(), "missing-user", ProfileUpdate{Bio: &newBio}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestSearchByUsernameAndEmail(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "moviefan", "First User")

	byName, err := service.SearchByUsername(context.Background(), " MOVIEFAN ")
	if err != nil {
		t.Fatalf("failed to search by username: %v", err)
	}
	if byName.UserID != "user-1" {
		t.Fatalf("unexpected profile %q", byName.UserID)
	}

	byEmail, err := service.SearchByEmail(context.Background(), " USER-1@example.com ")
	if err != nil {
		t.Fatalf("failed to search by email: %v", err)
	}
	if byEmail.UserID != "user-1" {
		t.Fatalf("unexpected profile %q", byEmail.UserID)
	}

	if _, err := service.SearchByUsername(context.Background(), "nobody"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")
	mustCreateProfile(t, service, "user-2", "second", "Second Person")

	if err := service.SendFriendRequest(context.Background(), "user-1", "user-2"); err != nil {
		t.Fatalf("failed to send request: %v", err)
	}

	received, err := service.FriendRequests(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to load requests: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected one received request, got %d", len(received))
	}
	if received[0].OtherID != "user-1" || received[0].DisplayName != "First User" {
		t.Fatalf("unexpected request snapshot: %+v", received[0])
	}

	// The requester's own inbox stays empty; they hold the sent-side row.
	outbound, err := service.FriendRequests(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load requester inbox: %v", err)
	}
	if len(outbound) != 0 {
		t.Fatalf("expected no received requests for sender, got %d", len(outbound))
	}

	if err := service.AcceptFriendRequest(context.Background(), "user-2", "user-1"); err != nil {
		t.Fatalf("failed to accept request: %v", err)
	}

	for _, userID := range []string{"user-1", "user-2"} {
		friends, err := service.Friends(context.Background(), userID)
		if err != nil {
			t.Fatalf("failed to load friends for %s: %v", userID, err)
		}
		if len(friends) != 1 {
			t.Fatalf("expected mutual friendship for %s, got %d rows", userID, len(friends))
		}
	}

	remaining, err := service.FriendRequests(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to reload requests: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected request pair removed after accept, got %d", len(remaining))
	}
}

func TestRejectFriendRequestRemovesPairWithoutFriendship(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")
	mustCreateProfile(t, service, "user-2", "second", "Second Person")

	if err := service.SendFriendRequest(context.Background(), "user-1", "user-2"); err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	if err := service.RejectFriendRequest(context.Background(), "user-2", "user-1"); err != nil {
		t.Fatalf("failed to reject request: %v", err)
	}

	requests, err := service.FriendRequests(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to reload requests: %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("expected request removed, got %d", len(requests))
	}

	friends, err := service.Friends(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to load friends: %v", err)
	}
	if len(friends) != 0 {
		t.Fatalf("reject must not create friendships, got %d", len(friends))
	}
}

func TestRemoveFriendIsOneSided(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")
	mustCreateProfile(t, service, "user-2", "second", "Second Person")

	if err := service.SendFriendRequest(context.Background(), "user-1", "user-2"); err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	if err := service.AcceptFriendRequest(context.Background(), "user-2", "user-1"); err != nil {
		t.Fatalf("failed to accept request: %v", err)
	}

	if err := service.RemoveFriend(context.Background(), "user-1", "user-2"); err != nil {
		t.Fatalf("failed to remove friend: %v", err)
	}

	mine, err := service.Friends(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load friends: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected friend removed on own side, got %d", len(mine))
	}

	theirs, err := service.Friends(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to load friends: %v", err)
	}
	if len(theirs) != 1 {
		t.Fatalf("removal must not touch the other side, got %d rows", len(theirs))
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")

	favoriteID, err := service.AddFavorite(context.Background(), "user-1", MovieRef{TMDBID: 603, Title: "The Matrix", PosterPath: "/matrix.jpg"})
	if err != nil {
		t.Fatalf("failed to add favorite: %v", err)
	}

	favorites, err := service.Favorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load favorites: %v", err)
	}
	if len(favorites) != 1 || favorites[0].FavoriteID != favoriteID {
		t.Fatalf("unexpected favorites %+v", favorites)
	}

	if err := service.RemoveFavorite(context.Background(), "user-1", favoriteID); err != nil {
		t.Fatalf("failed to remove favorite: %v", err)
	}
	favorites, err = service.Favorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to reload favorites: %v", err)
	}
	if len(favorites) != 0 {
		t.Fatalf("expected empty favorites, got %d", len(favorites))
	}
}

func TestSetTopFiveOverwritesSlot(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")

	if err := service.SetTopFive(context.Background(), "user-1", 0, MovieRef{TMDBID: 1}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected invalid position for 0, got %v", err)
	}
	if err := service.SetTopFive(context.Background(), "user-1", 6, MovieRef{TMDBID: 1}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected invalid position for 6, got %v", err)
	}

	if err := service.SetTopFive(context.Background(), "user-1", 1, MovieRef{TMDBID: 603, Title: "The Matrix"}); err != nil {
		t.Fatalf("failed to set slot: %v", err)
	}
	if err := service.SetTopFive(context.Background(), "user-1", 1, MovieRef{TMDBID: 27205, Title: "Inception"}); err != nil {
		t.Fatalf("failed to overwrite slot: %v", err)
	}
	if err := service.SetTopFive(context.Background(), "user-1", 3, MovieRef{TMDBID: 550, Title: "Fight Club"}); err != nil {
		t.Fatalf("failed to set second slot: %v", err)
	}

	entries, err := service.TopFive(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load top five: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 occupied slots, got %d", len(entries))
	}
	if entries[0].Position != 1 || entries[0].TMDBID != 27205 {
		t.Fatalf("expected slot 1 overwritten with Inception, got %+v", entries[0])
	}
	if entries[1].Position != 3 || entries[1].TMDBID != 550 {
		t.Fatalf("unexpected slot 3 entry %+v", entries[1])
	}
}

func TestDisplayFieldsFallsBackToFullName(t *testing.T) {
	service := newUserFixture(t)
	mustCreateProfile(t, service, "user-1", "first", "First User")

	name, photo, err := service.DisplayFields(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to load display fields: %v", err)
	}
	if name != "First User" || photo != "" {
		t.Fatalf("unexpected display fields %q %q", name, photo)
	}

	if _, _, err := service.DisplayFields(context.Background(), "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}
