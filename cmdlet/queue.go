package cmdlet

import (
	"fmt"
	"sync"
)

// Completion is the single-assignment result slot of one queued home call.
// It resolves once the home goroutine has executed the call's action, or
// rejects with the action's failure.
type Completion struct {
	done chan struct{}
	err  error
}

// Wait blocks until the call has executed and returns its failure, if any.
func (c *Completion) Wait() error {
	<-c.done
	return c.err
}

// Done returns a channel closed once the call has executed.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// resolve records the outcome. Called exactly once, by the home goroutine.
func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

// call is one unit of deferred work that must run on the home goroutine.
type call struct {
	fn   func() error
	comp *Completion
}

// callQueue is an unbounded multi-producer queue of home calls. Any
// goroutine may enqueue without blocking; only the home goroutine drains.
type callQueue struct {
	mu    sync.Mutex
	calls []*call

	// notify wakes the home goroutine when it is parked in a join.
	// Buffered so producers never block on it.
	notify chan struct{}
}

func newCallQueue() *callQueue {
	return &callQueue{notify: make(chan struct{}, 1)}
}

// enqueue appends a call and returns its completion.
func (q *callQueue) enqueue(fn func() error) *Completion {
	c := &call{fn: fn, comp: &Completion{done: make(chan struct{})}}
	q.mu.Lock()
	q.calls = append(q.calls, c)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return c.comp
}

// drain executes every pending call in enqueue order. A call's failure
// rejects its own completion only; the loop keeps servicing the rest.
// Home goroutine only.
func (q *callQueue) drain() {
	for {
		q.mu.Lock()
		batch := q.calls
		q.calls = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, c := range batch {
			c.comp.resolve(runCall(c.fn))
		}
	}
}

// runCall invokes a call's action, converting a panic into an error so the
// drain loop survives it.
func runCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("home call panic: %v", r)
		}
	}()
	return fn()
}
