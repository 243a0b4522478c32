package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/match"
)

// SubjectMatchFound is the NATS subject for materialized matches,
// suffixed with the list id.
const SubjectMatchFound = "moviemu.match.found" // + .<list_id>

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
	Logger        *zap.Logger
}

// NATSBridge relays match events onto a NATS subject so other consumers
// (mobile push, analytics) can react without talking to this process.
type NATSBridge struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSBridge connects to the NATS server and returns a ready bridge. It
// returns an error if the initial connection fails.
func NewNATSBridge(cfg NATSConfig) (*NATSBridge, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "moviemu-backend"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", zap.String("url", conn.ConnectedUrl()))

	return &NATSBridge{conn: conn, logger: logger}, nil
}

type matchFoundPayload struct {
	ListID       string    `json:"listId"`
	SessionID    string    `json:"sessionId"`
	MovieID      int64     `json:"movieId"`
	Title        string    `json:"title"`
	PosterPath   string    `json:"posterPath,omitempty"`
	Participants []string  `json:"participants"`
	FoundAt      time.Time `json:"foundAt"`
}

// PublishMatchFound relays a consensus match onto the match-found subject.
// Failures are logged, never surfaced to the vote path.
func (b *NATSBridge) PublishMatchFound(event match.MatchFound) {
	payload, err := json.Marshal(matchFoundPayload{
		ListID:       event.ListID,
		SessionID:    event.SessionID,
		MovieID:      event.MovieID,
		Title:        event.Title,
		PosterPath:   event.PosterPath,
		Participants: event.Participants,
		FoundAt:      event.FoundAt,
	})
	if err != nil {
		b.logger.Error("encode match event", zap.Error(err))
		return
	}
	subject := SubjectMatchFound + "." + event.ListID
	if err := b.conn.Publish(subject, payload); err != nil {
		b.logger.Error("publish match event",
			zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains the connection.
func (b *NATSBridge) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// MultiPublisher fans a match event out to several publishers.
type MultiPublisher []match.Publisher

func (m MultiPublisher) PublishMatchFound(event match.MatchFound) {
	for _, p := range m {
		if p != nil {
			p.PublishMatchFound(event)
		}
	}
}
