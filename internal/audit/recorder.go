// Package audit records bypass attempts: a synchronous in-session counter
// for UI feedback and an asynchronous best-effort submission to a sink.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Attempt is one immutable bypass record.
type Attempt struct {
	SessionID string
	Method    string
	Timestamp time.Time
}

// Sink receives bypass attempts. Implementations must tolerate being
// called from multiple goroutines.
type Sink interface {
	LogBypassAttempt(ctx context.Context, attempt Attempt) error
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(ctx context.Context, attempt Attempt) error

// LogBypassAttempt implements Sink.
func (sink FuncSink) LogBypassAttempt(ctx context.Context, attempt Attempt) error {
	return sink(ctx, attempt)
}

// Recorder counts bypass attempts for the current break session and ships
// each one to the sink in the background. Sink failures go to the logger
// only; they never block or undo the suppression that already happened.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	count     int
	sink      Sink
	logger    *slog.Logger
	timeout   time.Duration
	pending   sync.WaitGroup
}

// NewRecorder creates a recorder. sink may be nil, in which case attempts
// are only counted.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sink:    sink,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// BeginSession resets the counter for a new break session. A repeated id
// keeps the current count.
func (recorder *Recorder) BeginSession(sessionID string) {
	recorder.mu.Lock()
	if recorder.sessionID != sessionID {
		recorder.sessionID = sessionID
		recorder.count = 0
	}
	recorder.mu.Unlock()
}

// Record counts one bypass attempt and submits it asynchronously.
func (recorder *Recorder) Record(method string) {
	recorder.mu.Lock()
	recorder.count++
	attempt := Attempt{
		SessionID: recorder.sessionID,
		Method:    method,
		Timestamp: time.Now(),
	}
	recorder.mu.Unlock()

	recorder.submit(attempt)
}

// Submit sends an audit record without touching the bypass counter. Used
// for emergency-override outcomes, which are audited but are not blocked
// events.
func (recorder *Recorder) Submit(method string) {
	recorder.mu.Lock()
	attempt := Attempt{
		SessionID: recorder.sessionID,
		Method:    method,
		Timestamp: time.Now(),
	}
	recorder.mu.Unlock()

	recorder.submit(attempt)
}

func (recorder *Recorder) submit(attempt Attempt) {
	if recorder.sink == nil {
		return
	}
	recorder.pending.Add(1)
	go func() {
		defer recorder.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recorder.timeout)
		defer cancel()
		if err := recorder.sink.LogBypassAttempt(ctx, attempt); err != nil {
			recorder.logger.Warn("bypass audit submission failed",
				"session_id", attempt.SessionID,
				"method", attempt.Method,
				"error", err)
		}
	}()
}

// Count returns the number of attempts recorded for the current session.
func (recorder *Recorder) Count() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.count
}

// Flush waits for in-flight submissions. Used on shutdown and in tests.
func (recorder *Recorder) Flush() {
	recorder.pending.Wait()
}
