// Package pshost provides building blocks for hosting an embeddable script
// engine: a pooled, cancellable script runner and an adapter that lets
// asynchronous command-handler logic drive a single-goroutine host API
// safely.
//
// # Architecture
//
// The library is organized into small packages:
//
//   - runner: pooled cancellable script execution with per-call futures
//   - cmdlet: single-goroutine-affinity adapter for async command handlers
//   - engine: the execution-engine surface the runner drives
//   - engine/quickjs: in-process QuickJS implementation of that surface
//   - engine/enginetest: instrumented fake engine for tests
//   - host: the restricted emit API (verbose/debug/warning/error/object/progress)
//   - records: error, progress and information record types
//
// # Basic Usage
//
//	r, err := pshost.NewLocalRunner(ctx, 4)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	run, err := r.Run(ctx, "[1, 2, 3].map(x => x * 2)")
//	if err != nil {
//	    return err
//	}
//	results, err := run.Wait()
//
// # Engine Agnostic
//
// The runner drives any engine.Engine implementation. The bundled QuickJS
// engine executes JavaScript in-process without cgo; alternative backends
// only need to provide bounded pools of execution contexts with a
// best-effort native stop operation.
package pshost

// Version is the library version.
const Version = "0.1.0-dev"
