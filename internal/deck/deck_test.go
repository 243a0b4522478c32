package deck

import (
	"errors"
	"testing"

	"github.com/moviemu/backend/internal/catalog"
)

func testCards() []catalog.Candidate {
	return []catalog.Candidate{
		{ID: 10, Title: "First Movie"},
		{ID: 20, Title: "Second Movie"},
		{ID: 30, Title: "Third Movie"},
	}
}

func TestReleaseBeyondThresholdCommitsRight(t *testing.T) {
	swipeDeck := New(testCards(), 0)

	if err := swipeDeck.BeginDrag(); err != nil {
		t.Fatalf("failed to begin drag: %v", err)
	}
	if err := swipeDeck.Drag(150); err != nil {
		t.Fatalf("failed to drag: %v", err)
	}

	resolution, err := swipeDeck.Release()
	if err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	if !resolution.Committed {
		t.Fatalf("expected committed resolution")
	}
	if resolution.Direction != DirectionRight {
		t.Fatalf("expected right direction, got %s", resolution.Direction)
	}
	if resolution.Card.ID != 10 {
		t.Fatalf("expected top card 10, got %d", resolution.Card.ID)
	}
	if swipeDeck.Remaining() != 2 {
		t.Fatalf("expected 2 cards remaining, got %d", swipeDeck.Remaining())
	}
	if swipeDeck.State() != StateIdle {
		t.Fatalf("expected idle state after commit")
	}
}

func TestReleaseBelowThresholdSpringsBack(t *testing.T) {
	swipeDeck := New(testCards(), 0)

	if err := swipeDeck.BeginDrag(); err != nil {
		t.Fatalf("failed to begin drag: %v", err)
	}
	if err := swipeDeck.Drag(50); err != nil {
		t.Fatalf("failed to drag: %v", err)
	}

	resolution, err := swipeDeck.Release()
	if err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	if resolution.Committed {
		t.Fatalf("expected spring back, got committed resolution")
	}
	if swipeDeck.Remaining() != 3 {
		t.Fatalf("expected deck unchanged, got %d remaining", swipeDeck.Remaining())
	}
	if swipeDeck.State() != StateIdle {
		t.Fatalf("expected idle state after spring back")
	}

	top, err := swipeDeck.Top()
	if err != nil {
		t.Fatalf("failed to read top card: %v", err)
	}
	if top.ID != 10 {
		t.Fatalf("expected top card unchanged, got %d", top.ID)
	}
}

func TestReleaseAtExactThresholdCommits(t *testing.T) {
	swipeDeck := New(testCards(), 0)

	if err := swipeDeck.BeginDrag(); err != nil {
		t.Fatalf("failed to begin drag: %v", err)
	}
	if err := swipeDeck.Drag(-DefaultCommitThreshold); err != nil {
		t.Fatalf("failed to drag: %v", err)
	}

	resolution, err := swipeDeck.Release()
	if err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	if !resolution.Committed || resolution.Direction != DirectionLeft {
		t.Fatalf("expected left commit at exact threshold, got %+v", resolution)
	}
}

func TestManualControlsFollowCommitProtocol(t *testing.T) {
	swipeDeck := New(testCards(), 0)

	likeResolution, err := swipeDeck.Like()
	if err != nil {
		t.Fatalf("failed to like: %v", err)
	}
	if likeResolution.Direction != DirectionRight || likeResolution.Card.ID != 10 {
		t.Fatalf("unexpected like resolution: %+v", likeResolution)
	}

	passResolution, err := swipeDeck.Pass()
	if err != nil {
		t.Fatalf("failed to pass: %v", err)
	}
	if passResolution.Direction != DirectionLeft || passResolution.Card.ID != 20 {
		t.Fatalf("unexpected pass resolution: %+v", passResolution)
	}

	if swipeDeck.Remaining() != 1 {
		t.Fatalf("expected 1 card remaining, got %d", swipeDeck.Remaining())
	}
}

func TestInfoDoesNotConsume(t *testing.T) {
	swipeDeck := New(testCards(), 0)

	card, err := swipeDeck.Info()
	if err != nil {
		t.Fatalf("failed to read info: %v", err)
	}
	if card.ID != 10 {
		t.Fatalf("expected top card info, got %d", card.ID)
	}
	if swipeDeck.Remaining() != 3 {
		t.Fatalf("expected deck unchanged after info, got %d", swipeDeck.Remaining())
	}
}

func TestExhaustionEntersEmptyState(t *testing.T) {
	swipeDeck := New(testCards()[:1], 0)

	if _, err := swipeDeck.Like(); err != nil {
		t.Fatalf("failed to like last card: %v", err)
	}
	if swipeDeck.State() != StateEmpty {
		t.Fatalf("expected empty state after last card")
	}
	if _, err := swipeDeck.Like(); !errors.Is(err, ErrDeckEmpty) {
		t.Fatalf("expected deck empty error, got %v", err)
	}
	if err := swipeDeck.BeginDrag(); !errors.Is(err, ErrDeckEmpty) {
		t.Fatalf("expected deck empty error on drag, got %v", err)
	}
}

func TestEmptyInputStartsEmpty(t *testing.T) {
	swipeDeck := New(nil, 0)
	if swipeDeck.State() != StateEmpty {
		t.Fatalf("expected empty state for empty input")
	}
	if _, err := swipeDeck.Top(); !errors.Is(err, ErrDeckEmpty) {
		t.Fatalf("expected deck empty error, got %v", err)
	}
}

func TestDragWithoutBeginFails(t *testing.T) {
	swipeDeck := New(testCards(), 0)
	if err := swipeDeck.Drag(80); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected not-dragging error, got %v", err)
	}
	if _, err := swipeDeck.Release(); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected not-dragging error on release, got %v", err)
	}
}
