// Package enginetest provides an instrumented in-memory engine for tests.
//
// Scripts do not execute; each run invokes a caller-supplied Behavior. The
// engine counts concurrently executing runs and records the high-water
// mark, so tests can assert pool boundedness, and each handle carries a
// stop channel so behaviors can model cooperative cancellation.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smnsjas/go-pshost/engine"
)

// ErrPoolClosed is returned for runs submitted to a closed fake pool.
var ErrPoolClosed = errors.New("fake pool is closed")

// Behavior executes one fake run. It may emit result objects, watch stop
// for cancellation, and return the run's error. A stop-induced return must
// wrap engine.ErrStopped, as a real engine's native stop failure would.
type Behavior func(script string, emit func(v interface{}), stop <-chan struct{}) error

// Return produces a behavior that immediately emits the given values.
func Return(values ...interface{}) Behavior {
	return func(_ string, emit func(interface{}), _ <-chan struct{}) error {
		for _, v := range values {
			emit(v)
		}
		return nil
	}
}

// Sleep produces a behavior that waits d, then emits the given values.
// A stop during the wait fails the run with engine.ErrStopped.
func Sleep(d time.Duration, values ...interface{}) Behavior {
	return func(_ string, emit func(interface{}), stop <-chan struct{}) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stop:
			return fmt.Errorf("run interrupted: %w", engine.ErrStopped)
		}
		for _, v := range values {
			emit(v)
		}
		return nil
	}
}

// Fail produces a behavior that fails every run with err.
func Fail(err error) Behavior {
	return func(string, func(interface{}), <-chan struct{}) error {
		return err
	}
}

// EmitThenBlock produces a behavior that emits the given values, then
// blocks until stopped. Models a script producing partial output before
// cancellation.
func EmitThenBlock(values ...interface{}) Behavior {
	return func(_ string, emit func(interface{}), stop <-chan struct{}) error {
		for _, v := range values {
			emit(v)
		}
		<-stop
		return fmt.Errorf("run interrupted: %w", engine.ErrStopped)
	}
}

// Engine is the instrumented fake. The zero Behavior emits nothing.
type Engine struct {
	behavior Behavior

	// NewPoolErr / OpenErr force allocation failures.
	NewPoolErr error
	OpenErr    error

	mu      sync.Mutex
	current int
	maxSeen int
	runs    int
}

// New creates a fake engine executing every run with behavior.
func New(behavior Behavior) *Engine {
	if behavior == nil {
		behavior = Return()
	}
	return &Engine{behavior: behavior}
}

// MaxConcurrent reports the highest number of simultaneously executing
// runs observed so far.
func (e *Engine) MaxConcurrent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxSeen
}

// Runs reports how many runs entered execution.
func (e *Engine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// NewPool allocates a fake pool bounded at max concurrent runs.
func (e *Engine) NewPool(min, max int) (engine.Pool, error) {
	if e.NewPoolErr != nil {
		return nil, e.NewPoolErr
	}
	if min < 1 || max < min {
		return nil, fmt.Errorf("invalid pool bounds min=%d max=%d", min, max)
	}
	return &pool{
		eng:    e,
		sem:    make(chan struct{}, max),
		doneCh: make(chan struct{}),
	}, nil
}

func (e *Engine) enter() {
	e.mu.Lock()
	e.current++
	e.runs++
	if e.current > e.maxSeen {
		e.maxSeen = e.current
	}
	e.mu.Unlock()
}

func (e *Engine) exit() {
	e.mu.Lock()
	e.current--
	e.mu.Unlock()
}

type pool struct {
	eng    *Engine
	sem    chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

func (p *pool) Open(ctx context.Context) error {
	if p.eng.OpenErr != nil {
		return p.eng.OpenErr
	}
	return ctx.Err()
}

func (p *pool) NewHandle() (engine.Handle, error) {
	select {
	case <-p.doneCh:
		return nil, ErrPoolClosed
	default:
	}
	return &handle{pool: p, stopCh: make(chan struct{})}, nil
}

func (p *pool) Close() error {
	p.once.Do(func() { close(p.doneCh) })
	return nil
}

type handle struct {
	pool     *pool
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (h *handle) Run(script string, emit func(v interface{})) error {
	// Queue for a free slot; a stop while queued cancels the wait.
	select {
	case h.pool.sem <- struct{}{}:
	case <-h.stopCh:
		return fmt.Errorf("stopped while queued: %w", engine.ErrStopped)
	case <-h.pool.doneCh:
		return ErrPoolClosed
	}
	defer func() { <-h.pool.sem }()

	h.pool.eng.enter()
	defer h.pool.eng.exit()

	return h.pool.eng.behavior(script, emit, h.stopCh)
}

func (h *handle) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *handle) Close() error {
	return nil
}
