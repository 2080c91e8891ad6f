// Package engine defines the script execution engine surface the runner
// drives.
//
// An Engine owns heavyweight execution contexts and hands them out through
// bounded pools; the runner never reaches into contexts directly. Each
// script run goes through a fresh Handle bound to a pool; the pool decides
// which context services it and queues excess requests.
//
// Implementations: engine/quickjs executes JavaScript in-process;
// engine/enginetest provides an instrumented fake for tests.
package engine

import (
	"context"
	"errors"
)

// ErrStopped marks a run that ended because Stop was invoked on its handle.
// Implementations wrap it so callers can branch with errors.Is.
var ErrStopped = errors.New("execution stopped")

// Engine creates execution-context pools.
type Engine interface {
	// NewPool allocates a pool holding between min and max execution
	// contexts. The pool is not usable until opened.
	NewPool(min, max int) (Pool, error)
}

// Pool is a bounded collection of execution contexts. The number of
// concurrently executing runs routed through the pool never exceeds its
// maximum size; excess runs wait for a free context.
type Pool interface {
	// Open prepares the pool's contexts for use.
	Open(ctx context.Context) error

	// NewHandle binds a fresh per-run handle to the pool. Handles are
	// single-use: one Run, then Close.
	NewHandle() (Handle, error)

	// Close releases every context. Behavior of in-flight runs after Close
	// is implementation-defined; callers should stop them first.
	Close() error
}

// Handle executes one script against some pooled context.
type Handle interface {
	// Run executes the script, passing each produced result object to emit
	// in order, and returns when the script completes, fails, or is
	// stopped. A stop-induced failure satisfies errors.Is(err, ErrStopped).
	// Run blocks while the pool has no free context.
	Run(script string, emit func(v interface{})) error

	// Stop requests best-effort cooperative cancellation of the in-flight
	// run. Safe to call from any goroutine, at any point in the handle's
	// life; stopping a handle whose run already completed has no effect.
	Stop()

	// Close releases the handle. The handle must not be reused.
	Close() error
}
