// Package cmdlet adapts asynchronous command-handler logic to a host that
// confines the emit API to a single goroutine.
//
// A handler's Begin/Process/End lifecycle methods are driven by the hosting
// environment on one designated goroutine (the home goroutine), and the
// host's emit surface (host.API) may only be called from that goroutine.
// The Adapter lets handler logic run as ordinary concurrent Go code anyway:
// every emit is wrapped in a deferred call, queued, and replayed on the home
// goroutine, in order, with no two calls overlapping.
//
// # Lifecycle
//
// The host calls the adapter's methods in a fixed order:
//
//	BeginProcessing → ProcessRecord (zero or more) → EndProcessing
//
// Each method starts the corresponding Logic phase in its own goroutine and
// returns without waiting for it to finish, except where the contract
// requires a join: ProcessRecord first joins an outstanding Begin task, and
// EndProcessing joins every Process task (in start order) before running
// End. ProcessRecord additionally holds the home goroutine until the new
// task has completed or enqueued its first emit, so each input's first emit
// is ordered by input rather than by goroutine scheduling. Whenever the
// home goroutine is blocked this way it keeps servicing queued emit calls,
// so phase logic may freely wait on an emit's Completion.
//
// # Failures
//
// Phase failures (returned errors and recovered panics) never escape to the
// host; they are handed to the handler's HandleFailure hook on the home
// goroutine, one call per failed task. An individual emit failing rejects
// only that emit's Completion and does not disturb the rest of the queue.
//
// # Usage
//
//	// Process tasks run concurrently, so shared handler state needs
//	// synchronization.
//	type counter struct {
//		n atomic.Int64
//	}
//
//	func (c *counter) Begin(ctx context.Context, em *cmdlet.Emitter) error {
//		return em.Verbose("starting").Wait()
//	}
//
//	func (c *counter) Process(ctx context.Context, em *cmdlet.Emitter, input interface{}) error {
//		c.n.Add(1)
//		return em.Object(input, false).Wait()
//	}
//
//	func (c *counter) End(ctx context.Context, em *cmdlet.Emitter) error {
//		return em.Object(c.n.Load(), false).Wait()
//	}
//
//	func (c *counter) HandleFailure(err error) { log.Printf("phase failed: %v", err) }
//
//	a := cmdlet.New(host.NewConsoleHost(), &counter{})
//	a.BeginProcessing()
//	for _, item := range items {
//		a.ProcessRecord(item)
//	}
//	a.EndProcessing()
package cmdlet
