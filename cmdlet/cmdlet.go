package cmdlet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/smnsjas/go-pshost/host"
	"github.com/smnsjas/go-pshost/records"
)

// Phase identifies the lifecycle stage the adapter is in.
type Phase int

const (
	// PhaseNotStarted is the initial phase before BeginProcessing.
	PhaseNotStarted Phase = iota
	// PhaseBeginning indicates Begin logic has been started.
	PhaseBeginning
	// PhaseProcessing indicates input units are being processed.
	PhaseProcessing
	// PhaseEnding indicates End logic is running.
	PhaseEnding
	// PhaseCompleted indicates EndProcessing has returned.
	PhaseCompleted
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NotStarted"
	case PhaseBeginning:
		return "Beginning"
	case PhaseProcessing:
		return "Processing"
	case PhaseEnding:
		return "Ending"
	case PhaseCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// Logic is the handler author's surface. Begin, Process and End run in
// their own goroutines and may use ordinary concurrent Go code; all emit
// traffic goes through the Emitter, which marshals it back to the home
// goroutine.
//
// HandleFailure receives each failed phase task's error, on the home
// goroutine. It must not panic.
type Logic interface {
	Begin(ctx context.Context, em *Emitter) error
	Process(ctx context.Context, em *Emitter, input interface{}) error
	End(ctx context.Context, em *Emitter) error
	HandleFailure(err error)
}

// task tracks one in-flight phase goroutine.
type task struct {
	done chan struct{}
	err  error

	// started closes once the task's first emit has been enqueued.
	started   chan struct{}
	startOnce sync.Once
}

func (t *task) markStarted() {
	t.startOnce.Do(func() { close(t.started) })
}

// Adapter bridges a Logic implementation to a host that drives the
// lifecycle from a single home goroutine. BeginProcessing, ProcessRecord
// and EndProcessing must be called only from that goroutine, in that order;
// the adapter trusts the host to respect the order.
type Adapter struct {
	api   host.API
	logic Logic
	queue *callQueue
	em    *Emitter
	ctx   context.Context

	phase atomic.Int32

	begin      *task
	processing []*task
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithContext sets the base context handed to phase logic. Defaults to
// context.Background().
func WithContext(ctx context.Context) Option {
	return func(a *Adapter) {
		a.ctx = ctx
	}
}

// New creates an Adapter routing logic's emits to api.
func New(api host.API, logic Logic, opts ...Option) *Adapter {
	a := &Adapter{
		api:   api,
		logic: logic,
		queue: newCallQueue(),
		ctx:   context.Background(),
	}
	a.em = &Emitter{api: api, queue: a.queue}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Phase returns the current lifecycle phase.
func (a *Adapter) Phase() Phase {
	return Phase(a.phase.Load())
}

// Emitter returns the emit surface handed to phase logic. Exposed so hosts
// can pre-wire additional plumbing; handler code receives it as a
// parameter.
func (a *Adapter) Emitter() *Emitter {
	return a.em
}

// BeginProcessing starts the Begin logic without waiting for it, then
// services any calls it enqueued synchronously during startup.
func (a *Adapter) BeginProcessing() {
	a.phase.Store(int32(PhaseBeginning))
	a.begin = a.startTask(func(ctx context.Context, em *Emitter) error {
		return a.logic.Begin(ctx, em)
	})
	a.queue.drain()
}

// ProcessRecord starts Process logic for one input unit. If the Begin task
// is still outstanding it is joined first, with any failure reported
// through HandleFailure.
//
// ProcessRecord does not return until the new task has either completed or
// enqueued its first emit (servicing queued calls while it waits), so each
// input's first emit lands in the queue in input order regardless of how
// the task goroutines are scheduled.
func (a *Adapter) ProcessRecord(input interface{}) {
	if a.begin != nil {
		a.join(a.begin)
		a.begin = nil
	}
	a.phase.Store(int32(PhaseProcessing))
	t := a.startTask(func(ctx context.Context, em *Emitter) error {
		return a.logic.Process(ctx, em, input)
	})
	a.processing = append(a.processing, t)
	a.awaitFirstEnqueue(t)
	a.queue.drain()
}

// EndProcessing joins every outstanding phase task in start order,
// reporting each failure individually and continuing, then runs and joins
// the End logic.
func (a *Adapter) EndProcessing() {
	if a.begin != nil {
		a.join(a.begin)
		a.begin = nil
	}
	for _, t := range a.processing {
		a.join(t)
	}
	a.processing = nil
	a.queue.drain()

	a.phase.Store(int32(PhaseEnding))
	a.join(a.startTask(func(ctx context.Context, em *Emitter) error {
		return a.logic.End(ctx, em)
	}))
	a.phase.Store(int32(PhaseCompleted))
}

// startTask runs fn in its own goroutine, capturing its error or panic.
// The task gets its own Emitter so its first enqueue can be observed.
func (a *Adapter) startTask(fn func(context.Context, *Emitter) error) *task {
	t := &task{done: make(chan struct{}), started: make(chan struct{})}
	em := &Emitter{api: a.api, queue: a.queue, onEnqueue: t.markStarted}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("phase panic: %v", r)
			}
		}()
		t.err = fn(a.ctx, em)
	}()
	return t
}

// awaitFirstEnqueue blocks the home goroutine until t has completed or
// enqueued its first emit, servicing queued calls the whole time.
func (a *Adapter) awaitFirstEnqueue(t *task) {
	for {
		select {
		case <-t.started:
			return
		case <-t.done:
			return
		case <-a.queue.notify:
			a.queue.drain()
		}
	}
}

// join blocks the home goroutine until t completes, servicing queued calls
// the whole time so phase logic can await emit completions without
// deadlocking. The task's failure, if any, is reported via HandleFailure.
func (a *Adapter) join(t *task) {
	for {
		select {
		case <-t.done:
			a.queue.drain()
			if t.err != nil {
				a.logic.HandleFailure(t.err)
			}
			return
		case <-a.queue.notify:
			a.queue.drain()
		}
	}
}

// Emitter is the emit surface available to phase logic. Each method wraps
// the corresponding host.API call, enqueues it for the home goroutine, and
// returns a Completion that resolves once it has executed there. Logic that
// depends on an emit's side effect being visible should Wait on the
// returned Completion before proceeding.
type Emitter struct {
	api   host.API
	queue *callQueue

	// onEnqueue, if set, fires after each call has been appended to the
	// queue. The adapter uses it to observe a task's first emit.
	onEnqueue func()
}

// enqueue appends a call and reports it to the owning task.
func (e *Emitter) enqueue(fn func() error) *Completion {
	c := e.queue.enqueue(fn)
	if e.onEnqueue != nil {
		e.onEnqueue()
	}
	return c
}

// Verbose emits a verbose-stream message.
func (e *Emitter) Verbose(text string) *Completion {
	return e.enqueue(func() error { return e.api.EmitVerbose(text) })
}

// Debug emits a debug-stream message.
func (e *Emitter) Debug(text string) *Completion {
	return e.enqueue(func() error { return e.api.EmitDebug(text) })
}

// Warning emits a warning-stream message.
func (e *Emitter) Warning(text string) *Completion {
	return e.enqueue(func() error { return e.api.EmitWarning(text) })
}

// Error emits a non-terminating error record.
func (e *Emitter) Error(rec *records.ErrorRecord) *Completion {
	return e.enqueue(func() error { return e.api.EmitError(rec) })
}

// Object writes an object to the output stream.
func (e *Emitter) Object(v interface{}, enumerate bool) *Completion {
	return e.enqueue(func() error { return e.api.EmitObject(v, enumerate) })
}

// Progress emits a progress record.
func (e *Emitter) Progress(rec *records.ProgressRecord) *Completion {
	return e.enqueue(func() error { return e.api.EmitProgress(rec) })
}
