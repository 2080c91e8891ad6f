// Package runner executes scripts against a bounded pool of engine
// execution contexts, with per-call cancellation.
//
// A Runner owns one engine pool for its entire lifetime. Script runs may be
// submitted from any goroutine; each is bound to a fresh single-use engine
// handle and returns a Run future immediately. Cancelling the caller's
// context before the script finishes maps to the engine's native stop
// operation, and the resulting failure is surfaced as ErrCancelled rather
// than the engine's internal stop error, so callers can branch on "I
// cancelled this" vs. "it broke".
//
// # Usage
//
//	r, err := runner.New(ctx, quickjs.New(), 4)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	run, err := r.Run(ctx, "1 + 2")
//	if err != nil {
//	    return err
//	}
//	results, err := run.Wait()
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/smnsjas/go-pshost/engine"
)

var (
	// ErrClosed is returned for runs submitted to a closed runner, and
	// resolves the futures of runs still outstanding when Close is called.
	ErrClosed = errors.New("runner is closed")
	// ErrCancelled resolves the future of a run stopped by its caller's
	// cancellation signal before natural completion.
	ErrCancelled = errors.New("script execution cancelled")
)

// DefaultCloseTimeout bounds how long Close waits for outstanding runs to
// wind down after stopping them.
const DefaultCloseTimeout = 5 * time.Second

// Logger is an optional interface for debug logging.
// If not set, no logging is performed.
type Logger interface {
	// Printf formats and logs a debug message.
	Printf(format string, v ...interface{})
}

// Runner multiplexes script runs over a bounded engine pool.
type Runner struct {
	mu sync.RWMutex

	pool engine.Pool

	// Debug logging
	logger     Logger
	slogLogger *slog.Logger

	// Lifecycle
	closed    bool
	closingCh chan struct{}
	wg        sync.WaitGroup

	// Configuration
	minContexts  int
	closeTimeout time.Duration
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithMinContexts sets the pool's minimum context count. Defaults to 1.
func WithMinContexts(n int) Option {
	return func(r *Runner) {
		r.minContexts = n
	}
}

// WithCloseTimeout bounds how long Close waits for outstanding runs.
func WithCloseTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.closeTimeout = d
	}
}

// New allocates and opens a context pool sized between the configured
// minimum and maxContexts, and returns a runner owning it. Pool allocation
// or open failure is fatal to construction.
func New(ctx context.Context, eng engine.Engine, maxContexts int, opts ...Option) (*Runner, error) {
	if maxContexts < 1 {
		return nil, fmt.Errorf("max contexts must be >= 1, got %d", maxContexts)
	}

	r := &Runner{
		closingCh:    make(chan struct{}),
		minContexts:  1,
		closeTimeout: DefaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.minContexts < 1 || r.minContexts > maxContexts {
		return nil, fmt.Errorf("min contexts must be in [1, %d], got %d", maxContexts, r.minContexts)
	}

	pool, err := eng.NewPool(r.minContexts, maxContexts)
	if err != nil {
		return nil, fmt.Errorf("allocate context pool: %w", err)
	}
	if err := pool.Open(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("open context pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// SetLogger sets the logger for debug logging.
// This is optional - if not set, no logging is performed.
func (r *Runner) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetSlogLogger routes debug logging to a structured slog logger.
func (r *Runner) SetSlogLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slogLogger = logger
}

// EnableDebugLogging enables debug logging to stderr using the standard log package.
func (r *Runner) EnableDebugLogging() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = log.New(os.Stderr, "[runner] ", log.LstdFlags)
}

// Run submits one script for execution and returns its future. The only
// synchronous failure is submission to a closed runner; every per-call
// failure is reported through the returned Run.
//
// Cancelling ctx before the script completes stops it via the engine's
// native stop; the future then fails with ErrCancelled, with any partial
// results already delivered to the WithOutput channel. A cancellation
// racing natural completion is absorbed.
func (r *Runner) Run(ctx context.Context, script string, opts ...RunOption) (*Run, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrClosed
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	run := newRun()
	for _, opt := range opts {
		opt(run)
	}
	r.logf("run %s submitted (%d byte script)", run.id, len(script))

	go r.execute(ctx, script, run)
	return run, nil
}

// execute drives one run to resolution.
func (r *Runner) execute(ctx context.Context, script string, run *Run) {
	defer r.wg.Done()

	h, err := r.pool.NewHandle()
	if err != nil {
		run.finish(nil, fmt.Errorf("bind execution handle: %w", err))
		return
	}

	// Bridge the caller's cancellation signal and runner shutdown to the
	// engine's native stop.
	runDone := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			run.markStopped(reasonCancelled)
			h.Stop()
		case <-r.closingCh:
			run.markStopped(reasonClosed)
			h.Stop()
		case <-runDone:
		}
	}()

	err = h.Run(script, run.emit)
	close(runDone)
	<-watchDone
	if cerr := h.Close(); cerr != nil {
		r.logf("run %s: closing handle: %v", run.id, cerr)
	}

	switch {
	case err == nil:
		results := run.takeResults()
		r.logf("run %s completed with %d results", run.id, len(results))
		run.finish(results, nil)
	case errors.Is(err, engine.ErrStopped):
		// Translate the engine's stop failure into the uniform
		// cancellation outcome.
		if run.stopReason() == reasonClosed {
			r.logf("run %s stopped by runner close", run.id)
			run.finish(nil, ErrClosed)
		} else {
			r.logf("run %s cancelled", run.id)
			run.finish(nil, ErrCancelled)
		}
	default:
		r.logf("run %s failed: %v", run.id, err)
		run.finish(nil, err)
	}
}

// Close stops every outstanding run (their futures fail with ErrClosed),
// waits for them bounded by the close timeout, then disposes the pool.
// Safe to call more than once.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closingCh)
	timeout := r.closeTimeout
	r.mu.Unlock()

	r.logf("closing, stopping outstanding runs")
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		r.logf("close timed out after %v with runs outstanding", timeout)
	}
	return r.pool.Close()
}

// logf logs a debug message if a logger is configured.
func (r *Runner) logf(format string, v ...interface{}) {
	r.mu.RLock()
	logger := r.logger
	slogger := r.slogLogger
	r.mu.RUnlock()

	if logger != nil {
		logger.Printf(format, v...)
	}
	if slogger != nil {
		slogger.Debug(fmt.Sprintf(format, v...))
	}
}
