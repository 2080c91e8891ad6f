package runner

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// stopReason records why a run's handle was stopped.
type stopReason int32

const (
	reasonNone stopReason = iota
	reasonCancelled
	reasonClosed
)

// Run is the future of one submitted script execution. It resolves with
// the ordered result sequence, ErrCancelled, ErrClosed, or the engine's
// own failure.
type Run struct {
	id uuid.UUID

	mu      sync.Mutex
	results []interface{}
	output  chan<- interface{}

	reason atomic.Int32

	doneCh chan struct{}
	final  []interface{}
	err    error
}

// RunOption configures one run at submission.
type RunOption func(*Run)

// WithOutput supplies a channel receiving each result object as the script
// produces it. On cancellation, results produced before the stop have
// already been delivered here even though Wait reports ErrCancelled. Sends
// block, so the caller must keep draining the channel until the run
// resolves.
func WithOutput(ch chan<- interface{}) RunOption {
	return func(r *Run) {
		r.output = ch
	}
}

func newRun() *Run {
	return &Run{
		id:     uuid.New(),
		doneCh: make(chan struct{}),
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() uuid.UUID {
	return r.id
}

// Done returns a channel closed once the run has resolved.
func (r *Run) Done() <-chan struct{} {
	return r.doneCh
}

// Wait blocks until the run resolves. Exactly one of the results or the
// error is meaningful: on any failure the results are nil (partial output
// is observable only through the WithOutput channel).
func (r *Run) Wait() ([]interface{}, error) {
	<-r.doneCh
	return r.final, r.err
}

// emit records one result object and forwards it to the caller's output
// channel, if any.
func (r *Run) emit(v interface{}) {
	r.mu.Lock()
	r.results = append(r.results, v)
	out := r.output
	r.mu.Unlock()

	if out != nil {
		out <- v
	}
}

// takeResults returns the accumulated result sequence.
func (r *Run) takeResults() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// markStopped records the first stop reason; later stops lose the race.
func (r *Run) markStopped(reason stopReason) {
	r.reason.CompareAndSwap(int32(reasonNone), int32(reason))
}

func (r *Run) stopReason() stopReason {
	return stopReason(r.reason.Load())
}

// finish resolves the future. Called exactly once.
func (r *Run) finish(results []interface{}, err error) {
	r.final = results
	r.err = err
	close(r.doneCh)
}
