package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flakyLedger struct {
	mu       sync.Mutex
	failures int
	attempts int
	recorded []string
}

func (l *flakyLedger) RecordVote(_ context.Context, _, sessionID, actorID string, movie MovieVote, _ Direction) (VoteOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.attempts <= l.failures {
		return VoteOutcome{}, errors.New("ledger unavailable")
	}
	l.recorded = append(l.recorded, statusKey(sessionID, movie.ID, actorID))
	return VoteOutcome{}, nil
}

func (l *flakyLedger) attemptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

func waitForStatus(t *testing.T, recorder *Recorder, sessionID string, movieID int64, actorID string, want SyncStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if recorder.Status(sessionID, movieID, actorID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s, got %s", want, recorder.Status(sessionID, movieID, actorID))
}

func TestRecorderRetriesUntilSynced(t *testing.T) {
	ledger := &flakyLedger{failures: 2}
	recorder, err := NewRecorder(RecorderConfig{
		Ledger:         ledger,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx)

	if err := recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 42}, DirectionRight); err != nil {
		t.Fatalf("failed to enqueue vote: %v", err)
	}

	waitForStatus(t, recorder, "session-1", 42, "user-1", StatusSynced)
	if ledger.attemptCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", ledger.attemptCount())
	}
}

func TestRecorderMarksVoteFailedAfterExhaustedRetries(t *testing.T) {
	ledger := &flakyLedger{failures: 100}
	recorder, err := NewRecorder(RecorderConfig{
		Ledger:         ledger,
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx)

	if err := recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 7}, DirectionLeft); err != nil {
		t.Fatalf("failed to enqueue vote: %v", err)
	}

	waitForStatus(t, recorder, "session-1", 7, "user-1", StatusFailed)
	if ledger.attemptCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", ledger.attemptCount())
	}
}

func TestRecorderEnqueueNeverBlocksWhenFull(t *testing.T) {
	recorder, err := NewRecorder(RecorderConfig{
		Ledger:    &flakyLedger{},
		QueueSize: 1,
	})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}

	// No worker running: the first enqueue fills the queue.
	if err := recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 1}, DirectionRight); err != nil {
		t.Fatalf("first enqueue should succeed: %v", err)
	}
	err = recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 2}, DirectionRight)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected queue full error, got %v", err)
	}
	if recorder.Status("session-1", 2, "user-1") != StatusFailed {
		t.Fatalf("expected rejected vote to report failed status")
	}
}

func TestRecorderStatusUnknownForUntrackedVote(t *testing.T) {
	recorder, err := NewRecorder(RecorderConfig{Ledger: &flakyLedger{}})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}
	if status := recorder.Status("session-x", 99, "user-x"); status != StatusUnknown {
		t.Fatalf("expected unknown status, got %s", status)
	}
}

func TestRecorderEvictsSettledStatuses(t *testing.T) {
	ledger := &flakyLedger{}
	recorder, err := NewRecorder(RecorderConfig{
		Ledger:          ledger,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		StatusRetention: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx)

	if err := recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 11}, DirectionRight); err != nil {
		t.Fatalf("failed to enqueue vote: %v", err)
	}
	waitForStatus(t, recorder, "session-1", 11, "user-1", StatusSynced)

	// The sweep removes the synced entry once the retention window passes.
	waitForStatus(t, recorder, "session-1", 11, "user-1", StatusUnknown)
}

func TestRecorderKeepsPendingStatusesThroughSweep(t *testing.T) {
	recorder, err := NewRecorder(RecorderConfig{
		Ledger:          &flakyLedger{},
		StatusRetention: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct recorder: %v", err)
	}

	// No worker running: the enqueued vote stays pending.
	if err := recorder.Enqueue("list-1", "session-1", "user-1", MovieVote{ID: 3}, DirectionRight); err != nil {
		t.Fatalf("failed to enqueue vote: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	recorder.evictSettled()
	if status := recorder.Status("session-1", 3, "user-1"); status != StatusPending {
		t.Fatalf("expected pending vote to survive the sweep, got %s", status)
	}
}
