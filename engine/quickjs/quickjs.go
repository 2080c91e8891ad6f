// Package quickjs implements the engine surface over an in-process QuickJS
// interpreter (modernc.org/quickjs, no cgo).
//
// A Pool pre-warms its full complement of virtual machines at Open so a
// run never pays VM construction cost; runs beyond the pool size queue
// until a VM frees up. Stop is bridged to the interpreter's interrupt
// mechanism; an interrupted VM is considered poisoned and is replaced
// rather than returned to the pool.
package quickjs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qjs "modernc.org/quickjs"

	"github.com/smnsjas/go-pshost/engine"
)

var (
	// ErrNotOpen is returned when a handle is requested before Open.
	ErrNotOpen = errors.New("quickjs pool not open")
	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("quickjs pool already open")
	// ErrPoolClosed is returned for operations on a closed pool.
	ErrPoolClosed = errors.New("quickjs pool is closed")
	// ErrHandleClosed is returned for runs on a closed handle.
	ErrHandleClosed = errors.New("quickjs handle is closed")
)

// Engine creates QuickJS-backed execution pools.
type Engine struct{}

// New creates a QuickJS engine.
func New() *Engine {
	return &Engine{}
}

// NewPool allocates a pool of up to max virtual machines. The pool always
// pre-warms its maximum at Open; min is validated for interface parity but
// does not change allocation.
func (e *Engine) NewPool(min, max int) (engine.Pool, error) {
	if min < 1 {
		return nil, fmt.Errorf("min contexts must be >= 1, got %d", min)
	}
	if max < min {
		return nil, fmt.Errorf("max contexts must be >= min, got min=%d max=%d", min, max)
	}
	return &Pool{
		size:    max,
		workers: make(chan *vmWorker, max),
		doneCh:  make(chan struct{}),
	}, nil
}

// vmWorker is a single interpreter instance in the pool.
type vmWorker struct {
	vm *qjs.VM
}

func newVMWorker() (*vmWorker, error) {
	vm, err := qjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating quickjs vm: %w", err)
	}
	return &vmWorker{vm: vm}, nil
}

// Pool is a fixed-size pool of pre-warmed QuickJS VMs.
type Pool struct {
	mu      sync.Mutex
	size    int
	workers chan *vmWorker
	doneCh  chan struct{}
	opened  bool
	closed  bool
}

// Open creates and pools every VM. On failure the VMs created so far are
// disposed and the pool is unusable.
func (p *Pool) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.opened {
		return ErrAlreadyOpen
	}

	for i := 0; i < p.size; i++ {
		if err := ctx.Err(); err != nil {
			p.disposeLocked()
			return err
		}
		w, err := newVMWorker()
		if err != nil {
			p.disposeLocked()
			return fmt.Errorf("warming pool vm %d: %w", i, err)
		}
		p.workers <- w
	}
	p.opened = true
	return nil
}

// NewHandle binds a fresh single-use handle to the pool.
func (p *Pool) NewHandle() (engine.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if !p.opened {
		return nil, ErrNotOpen
	}
	return &Handle{pool: p, id: uuid.New()}, nil
}

// Close disposes every pooled VM. Safe to call more than once. Runs still
// holding a VM dispose it themselves when they finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.doneCh)
	p.disposeLocked()
	p.mu.Unlock()
	return nil
}

// disposeLocked drains and closes every pooled VM. Caller holds p.mu.
func (p *Pool) disposeLocked() {
	for {
		select {
		case w := <-p.workers:
			w.vm.Close()
		default:
			return
		}
	}
}

// get acquires a VM, blocking until one is free or the pool closes.
func (p *Pool) get() (*vmWorker, error) {
	select {
	case w := <-p.workers:
		return w, nil
	case <-p.doneCh:
		return nil, ErrPoolClosed
	}
}

// put returns a clean VM to the pool.
func (p *Pool) put(w *vmWorker) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		w.vm.Close()
		return
	}
	select {
	case p.workers <- w:
	default:
		// Pool full (shouldn't happen), dispose the VM.
		w.vm.Close()
	}
}

// discard disposes a poisoned VM and replaces it with a fresh one to keep
// the pool at size. Replacement is best effort: if VM construction fails
// the pool permanently loses a slot.
func (p *Pool) discard(w *vmWorker) {
	w.vm.Close()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	fresh, err := newVMWorker()
	if err != nil {
		return
	}
	p.put(fresh)
}

// Handle executes one script on a pooled VM.
type Handle struct {
	pool *Pool
	id   uuid.UUID

	mu      sync.Mutex
	vm      *qjs.VM // set while a run is in flight
	stopped bool
	closed  bool
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Run evaluates the script on a pooled VM and emits its results in order.
// A script yielding a slice is enumerated into one result object per
// element; any other non-nil value is a single result object.
func (h *Handle) Run(script string, emit func(v interface{})) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("handle %s: %w", h.id, ErrHandleClosed)
	}
	if h.stopped {
		h.mu.Unlock()
		return fmt.Errorf("handle %s stopped before start: %w", h.id, engine.ErrStopped)
	}
	h.mu.Unlock()

	w, err := h.pool.get()
	if err != nil {
		return fmt.Errorf("handle %s: %w", h.id, err)
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		h.pool.put(w)
		return fmt.Errorf("handle %s stopped before start: %w", h.id, engine.ErrStopped)
	}
	h.vm = w.vm
	h.mu.Unlock()

	result, runErr := evalScript(w.vm, script)

	h.mu.Lock()
	h.vm = nil
	wasStopped := h.stopped
	h.mu.Unlock()

	if wasStopped {
		// The interrupt flag may linger in the VM, so it never goes back
		// to the pool even if the eval raced to a clean finish.
		h.pool.discard(w)
		if runErr != nil {
			return fmt.Errorf("handle %s interrupted: %w", h.id, engine.ErrStopped)
		}
		// Natural completion won the race; deliver the results.
		emitResult(result, emit)
		return nil
	}

	if runErr != nil {
		h.pool.put(w)
		return fmt.Errorf("handle %s eval: %w", h.id, runErr)
	}
	h.pool.put(w)
	emitResult(result, emit)
	return nil
}

// Stop interrupts the in-flight evaluation, if any. A handle stopped before
// Run fails the run immediately with ErrStopped.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	if h.vm != nil {
		h.vm.Interrupt()
	}
}

// Close releases the handle.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// evalScript evaluates the script, converting an interpreter panic into an
// error so a broken script never takes the caller down.
func evalScript(vm *qjs.VM, script string) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quickjs panic: %v", r)
		}
	}()
	return vm.Eval(script, qjs.EvalGlobal)
}

// emitResult converts the script's value into the ordered result sequence.
func emitResult(result interface{}, emit func(v interface{})) {
	if result == nil {
		return
	}
	if s, ok := result.([]interface{}); ok {
		for _, v := range s {
			emit(v)
		}
		return
	}
	emit(result)
}
