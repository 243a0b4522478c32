package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moviemu/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultQueueSize       = 256
	defaultMaxAttempts     = 4
	defaultInitialBackoff  = 250 * time.Millisecond
	defaultMaxBackoff      = 5 * time.Second
	defaultStatusRetention = 15 * time.Minute
)

var (
	// ErrQueueFull indicates the vote queue rejected an enqueue; the vote is
	// immediately reported as failed rather than blocking the deck.
	ErrQueueFull = errors.New("match: vote queue full")
	// ErrMissingLedger indicates the recorder was built without a ledger.
	ErrMissingLedger = errors.New("match: vote ledger is required")
)

// SyncStatus reports the durability state of an enqueued vote, so a client
// can show a non-blocking sync indicator instead of silently losing votes.
type SyncStatus string

const (
	// StatusPending means the write has not succeeded yet.
	StatusPending SyncStatus = "pending"
	// StatusSynced means the vote is durably recorded.
	StatusSynced SyncStatus = "synced"
	// StatusFailed means all write attempts were exhausted.
	StatusFailed SyncStatus = "failed"
	// StatusUnknown means the vote was never enqueued.
	StatusUnknown SyncStatus = "unknown"
)

// Ledger is the slice of the match service the recorder writes through.
type Ledger interface {
	RecordVote(ctx context.Context, listID, sessionID, actorID string, movie MovieVote, direction Direction) (VoteOutcome, error)
}

// RecorderConfig describes the dependencies and tuning of a Recorder.
type RecorderConfig struct {
	Ledger          Ledger
	QueueSize       int
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	StatusRetention time.Duration
	Logger          *zap.Logger
}

type queuedVote struct {
	listID    string
	sessionID string
	actorID   string
	movie     MovieVote
	direction Direction
}

// Recorder decouples optimistic deck advancement from vote durability: the
// deck pops immediately, the write happens on a background worker with
// retry and backoff, and the per-vote status stays queryable.
type Recorder struct {
	ledger          Ledger
	queue           chan queuedVote
	maxAttempts     int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	statusRetention time.Duration
	logger          *zap.Logger

	statuses sync.Map
}

// statusEntry timestamps each tracked status so settled entries can be
// evicted after the retention window instead of accumulating forever.
type statusEntry struct {
	status    SyncStatus
	updatedAt time.Time
}

// NewRecorder validates the configuration and returns a Recorder. Run must be
// started for enqueued votes to make progress.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Ledger == nil {
		return nil, ErrMissingLedger
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	statusRetention := cfg.StatusRetention
	if statusRetention <= 0 {
		statusRetention = defaultStatusRetention
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		ledger:          cfg.Ledger,
		queue:           make(chan queuedVote, queueSize),
		maxAttempts:     maxAttempts,
		initialBackoff:  initialBackoff,
		maxBackoff:      maxBackoff,
		statusRetention: statusRetention,
		logger:          logger,
	}, nil
}

// Enqueue submits a vote for background recording. It never blocks: when the
// queue is full the vote is marked failed and ErrQueueFull returned.
func (r *Recorder) Enqueue(listID, sessionID, actorID string, movie MovieVote, direction Direction) error {
	key := statusKey(sessionID, movie.ID, actorID)
	vote := queuedVote{
		listID:    listID,
		sessionID: sessionID,
		actorID:   actorID,
		movie:     movie,
		direction: direction,
	}
	select {
	case r.queue <- vote:
		r.setStatus(key, StatusPending)
		return nil
	default:
		r.setStatus(key, StatusFailed)
		r.logger.Warn("vote queue full, vote dropped",
			zap.String("session_id", sessionID),
			zap.Int64("movie_id", movie.ID))
		metrics.VotesDropped.Inc()
		return ErrQueueFull
	}
}

// Status reports the durability state of a previously enqueued vote. Settled
// entries older than the retention window read as unknown once evicted.
func (r *Recorder) Status(sessionID string, movieID int64, actorID string) SyncStatus {
	value, ok := r.statuses.Load(statusKey(sessionID, movieID, actorID))
	if !ok {
		return StatusUnknown
	}
	entry, ok := value.(statusEntry)
	if !ok {
		return StatusUnknown
	}
	return entry.status
}

func (r *Recorder) setStatus(key string, status SyncStatus) {
	r.statuses.Store(key, statusEntry{status: status, updatedAt: time.Now()})
}

// Run consumes the queue until the context is cancelled. Each vote is retried
// with exponential backoff before being abandoned as failed. Settled statuses
// are swept out periodically so the map stays bounded in a long-lived process.
func (r *Recorder) Run(ctx context.Context) {
	sweep := time.NewTicker(r.statusRetention)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			r.evictSettled()
		case vote := <-r.queue:
			r.record(ctx, vote)
		}
	}
}

// evictSettled drops synced and failed entries past the retention window.
// Pending entries stay tracked until their write settles.
func (r *Recorder) evictSettled() {
	cutoff := time.Now().Add(-r.statusRetention)
	r.statuses.Range(func(key, value interface{}) bool {
		entry, ok := value.(statusEntry)
		if !ok {
			r.statuses.Delete(key)
			return true
		}
		if entry.status != StatusPending && entry.updatedAt.Before(cutoff) {
			r.statuses.Delete(key)
		}
		return true
	})
}

func (r *Recorder) record(ctx context.Context, vote queuedVote) {
	key := statusKey(vote.sessionID, vote.movie.ID, vote.actorID)
	backoff := r.initialBackoff

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		_, err := r.ledger.RecordVote(ctx, vote.listID, vote.sessionID, vote.actorID, vote.movie, vote.direction)
		if err == nil {
			r.setStatus(key, StatusSynced)
			return
		}

		r.logger.Warn("vote write attempt failed",
			zap.String("session_id", vote.sessionID),
			zap.Int64("movie_id", vote.movie.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == r.maxAttempts {
			break
		}
		metrics.VoteRetries.Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}

	r.setStatus(key, StatusFailed)
	metrics.VotesDropped.Inc()
	r.logger.Error("vote abandoned after retries",
		zap.String("session_id", vote.sessionID),
		zap.Int64("movie_id", vote.movie.ID))
}

func statusKey(sessionID string, movieID int64, actorID string) string {
	return sessionID + "/" + VoteKey(movieID, actorID)
}
