// Package deck implements the in-memory card stack driving the swipe game.
// The deck is single-consumer: only the top card can be interacted with, so
// each participant's decisions are ordered by the order they swipe.
package deck

import (
	"errors"

	"github.com/moviemu/backend/internal/catalog"
)

// DefaultCommitThreshold is the horizontal displacement, in logical pixels,
// at which a released drag commits to a swipe direction.
const DefaultCommitThreshold = 120.0

// State enumerates the gesture states of the top card.
type State int

const (
	// StateIdle means the top card is at rest.
	StateIdle State = iota
	// StateDragging means a gesture is active and position is tracked.
	StateDragging
	// StateEmpty is terminal: the deck is exhausted and offers no further cards.
	StateEmpty
)

// Direction tags a committed swipe decision.
type Direction string

const (
	// DirectionLeft is a pass.
	DirectionLeft Direction = "left"
	// DirectionRight is a like.
	DirectionRight Direction = "right"
)

var (
	// ErrDeckEmpty indicates an interaction was attempted on an exhausted deck.
	ErrDeckEmpty = errors.New("deck: no cards remaining")
	// ErrNotDragging indicates a drag update or release without an active drag.
	ErrNotDragging = errors.New("deck: no active drag")
)

// Resolution reports the outcome of a release or manual control.
type Resolution struct {
	Committed bool
	Direction Direction
	Card      catalog.Candidate
}

// Deck holds the remaining candidates and the gesture state of the top card.
type Deck struct {
	cards     []catalog.Candidate
	state     State
	dragX     float64
	threshold float64
}

// New builds a deck over the provided candidates. A zero or negative threshold
// falls back to DefaultCommitThreshold.
func New(cards []catalog.Candidate, threshold float64) *Deck {
	if threshold <= 0 {
		threshold = DefaultCommitThreshold
	}
	deck := &Deck{
		cards:     append([]catalog.Candidate(nil), cards...),
		threshold: threshold,
	}
	if len(deck.cards) == 0 {
		deck.state = StateEmpty
	}
	return deck
}

// State reports the current gesture state.
func (d *Deck) State() State {
	return d.state
}

// Remaining reports how many cards are left, including the top card.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Top returns the current top card without consuming it.
func (d *Deck) Top() (catalog.Candidate, error) {
	if len(d.cards) == 0 {
		return catalog.Candidate{}, ErrDeckEmpty
	}
	return d.cards[0], nil
}

// BeginDrag starts tracking a gesture on the top card.
func (d *Deck) BeginDrag() error {
	if d.state == StateEmpty {
		return ErrDeckEmpty
	}
	d.state = StateDragging
	d.dragX = 0
	return nil
}

// Drag updates the tracked horizontal displacement. Gesture math is pure
// in-memory and never suspends.
func (d *Deck) Drag(displacementX float64) error {
	if d.state != StateDragging {
		return ErrNotDragging
	}
	d.dragX = displacementX
	return nil
}

// Release ends the gesture. At or above the commit threshold the top card
// resolves in the drag direction and is popped; below it the card springs
// back to center and the deck is unchanged.
func (d *Deck) Release() (Resolution, error) {
	if d.state != StateDragging {
		return Resolution{}, ErrNotDragging
	}

	displacement := d.dragX
	d.dragX = 0

	if displacement >= d.threshold {
		return d.commit(DirectionRight)
	}
	if displacement <= -d.threshold {
		return d.commit(DirectionLeft)
	}

	d.state = StateIdle
	return Resolution{Committed: false}, nil
}

// Like applies the same commit protocol as a completed rightward drag.
func (d *Deck) Like() (Resolution, error) {
	if d.state == StateEmpty {
		return Resolution{}, ErrDeckEmpty
	}
	return d.commit(DirectionRight)
}

// Pass applies the same commit protocol as a completed leftward drag.
func (d *Deck) Pass() (Resolution, error) {
	if d.state == StateEmpty {
		return Resolution{}, ErrDeckEmpty
	}
	return d.commit(DirectionLeft)
}

// Info returns the top card for a detail view without consuming it.
func (d *Deck) Info() (catalog.Candidate, error) {
	return d.Top()
}

// commit pops the top card before the vote is durably recorded; the removal
// is never reversed, even if the subsequent ledger write fails.
func (d *Deck) commit(direction Direction) (Resolution, error) {
	if len(d.cards) == 0 {
		d.state = StateEmpty
		return Resolution{}, ErrDeckEmpty
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	if len(d.cards) == 0 {
		d.state = StateEmpty
	} else {
		d.state = StateIdle
	}

	return Resolution{
		Committed: true,
		Direction: direction,
		Card:      card,
	}, nil
}
