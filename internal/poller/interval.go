package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Round is the outcome of one collection run started by an [IntervalRunner].
type Round struct {
	// ID identifies the round in logs and in the monitor's API.
	ID string

	// StartedAt is when the round began.
	StartedAt time.Time

	// Duration is how long the round took.
	Duration time.Duration

	// Columns and Errors are what the round function returned.
	Columns [][]byte
	Errors  []Error

	// Err is set when the round function panicked.
	Err error
}

// RoundFunc performs one collection. ctx is cancelled when the runner stops.
type RoundFunc func(ctx context.Context) ([][]byte, []Error)

// IntervalRunner repeats a collection on a fixed interval.
//
// The first round starts immediately on [IntervalRunner.Start]. Rounds never
// overlap: a round that outlasts the interval delays the next one, and ticks
// that fire meanwhile are dropped. Results are emitted on a channel that is
// closed when the runner stops.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type IntervalRunner struct {
	interval time.Duration
	round    RoundFunc
	results  chan Round
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewIntervalRunner creates a runner that calls round every interval.
//
// The runner must be started with [IntervalRunner.Start] and stopped with
// [IntervalRunner.Stop]. Results are available via [IntervalRunner.Results].
func NewIntervalRunner(interval time.Duration, round RoundFunc, logger *slog.Logger) *IntervalRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntervalRunner{
		interval: interval,
		round:    round,
		results:  make(chan Round, 1),
		logger:   logger,
	}
}

// Results returns a receive-only channel that emits one [Round] per run.
//
// The channel is closed when the runner stops.
func (r *IntervalRunner) Results() <-chan Round {
	return r.results
}

// Start begins the collection loop in a background goroutine.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (r *IntervalRunner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	runCtx := r.ctx // capture under lock to avoid race
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.closeOnce.Do(func() { close(r.results) })

		if !r.runRound(runCtx) {
			return
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if !r.runRound(runCtx) {
					return
				}
			}
		}
	}()
}

// Stop cancels the runner's context, waits for the loop to exit and closes
// the results channel.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (r *IntervalRunner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		if r.cancel != nil {
			r.cancel()
		}
	}
	r.mu.Unlock()

	r.wg.Wait()

	// ensure channel is closed even if Start() was never called
	r.closeOnce.Do(func() { close(r.results) })
}

// runRound runs one round and publishes it. It reports false if the runner
// was stopped before the round could be delivered.
func (r *IntervalRunner) runRound(ctx context.Context) bool {
	round := Round{ID: uuid.NewString(), StartedAt: time.Now()}
	round.Columns, round.Errors, round.Err = r.safeRound(ctx, round.ID)
	round.Duration = time.Since(round.StartedAt)

	r.logger.Debug("round finished",
		"round_id", round.ID,
		"duration", round.Duration,
		"errors", len(round.Errors),
	)

	select {
	case r.results <- round:
		return true
	case <-ctx.Done():
		return false
	}
}

// safeRound calls the round function with panic recovery.
// If it panics, the full stack trace is logged under a correlation ID and the
// round is reported with an error containing the ID.
func (r *IntervalRunner) safeRound(ctx context.Context, roundID string) (columns [][]byte, errs []Error, err error) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			r.logger.Error("round panic",
				"round_id", roundID,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(stack),
			)

			columns, errs = nil, nil
			err = fmt.Errorf("round panic (correlation_id: %s)", correlationID)
		}
	}()
	columns, errs = r.round(ctx)
	return columns, errs, nil
}
