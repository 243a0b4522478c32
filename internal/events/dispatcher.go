package events

import (
	"context"
	"sync"
	"time"

	"github.com/moviemu/backend/internal/match"
)

const (
	EventMatchFound = "match-found"
	eventHeartbeat  = "heartbeat"
	sourceBackend   = "moviemu-backend"
)

// Message is one event delivered to a subscribed user.
type Message struct {
	UserID    string    `json:"-"`
	EventType string    `json:"eventType"`
	ListID    string    `json:"listId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	MovieID   int64     `json:"movieId,omitempty"`
	Title     string    `json:"title,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher fans out events to per-user subscriber channels. Delivery is
// best-effort: a subscriber with a full buffer misses the message.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan Message
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers userID for events until ctx is cancelled or the
// returned cleanup runs.
func (d *Dispatcher) Subscribe(ctx context.Context, userID string) (<-chan Message, func()) {
	if userID == "" {
		ch := make(chan Message)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Message, d.bufferSize),
	}
	d.register(userID, sub)
	cleanup := func() {
		d.unregister(userID, sub.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers a message to every live subscription of its user.
func (d *Dispatcher) Publish(message Message) {
	if message.UserID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.UserID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subscribers))
	for _, sub := range subscribers {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- message:
		default:
		}
	}
}

// PublishMatchFound fans a consensus match out to every session participant.
// It satisfies the match service's publisher contract.
func (d *Dispatcher) PublishMatchFound(event match.MatchFound) {
	for _, userID := range event.Participants {
		d.Publish(Message{
			UserID:    userID,
			EventType: EventMatchFound,
			ListID:    event.ListID,
			SessionID: event.SessionID,
			MovieID:   event.MovieID,
			Title:     event.Title,
			Source:    sourceBackend,
			Timestamp: event.FoundAt,
		})
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(userID string, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]*subscriber)
	}
	d.subscribers[userID][sub.id] = sub
}

func (d *Dispatcher) unregister(userID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[userID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, userID)
		}
	}
	d.mu.Unlock()
}
