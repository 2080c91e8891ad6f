package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/smnsjas/go-pshost/engine"
	"github.com/smnsjas/go-pshost/engine/enginetest"
)

func newTestRunner(t *testing.T, eng *enginetest.Engine, maxContexts int, opts ...Option) *Runner {
	t.Helper()
	r, err := New(context.Background(), eng, maxContexts, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRunReturnsResultsInOrder(t *testing.T) {
	eng := enginetest.New(enginetest.Return("a", "b", "c"))
	r := newTestRunner(t, eng, 2)

	run, err := r.Run(context.Background(), "produce()")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	results, err := run.Wait()
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	want := []interface{}{"a", "b", "c"}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrencyBoundedByPool(t *testing.T) {
	const maxContexts = 2
	const submissions = 5

	eng := enginetest.New(enginetest.Sleep(100*time.Millisecond, 42))
	r := newTestRunner(t, eng, maxContexts)

	runs := make([]*Run, 0, submissions)
	for i := 0; i < submissions; i++ {
		run, err := r.Run(context.Background(), "work()")
		if err != nil {
			t.Fatalf("Run() %d failed: %v", i, err)
		}
		runs = append(runs, run)
	}

	for i, run := range runs {
		results, err := run.Wait()
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if len(results) != 1 || results[0] != 42 {
			t.Errorf("run %d: unexpected results %v", i, results)
		}
	}

	if got := eng.MaxConcurrent(); got > maxContexts {
		t.Errorf("observed %d concurrent executions, pool bound is %d", got, maxContexts)
	}
	if got := eng.Runs(); got != submissions {
		t.Errorf("expected %d runs to execute, got %d", submissions, got)
	}
}

func TestCancellationSurfacesAsErrCancelled(t *testing.T) {
	eng := enginetest.New(enginetest.Sleep(5*time.Second, "never"))
	r := newTestRunner(t, eng, 1)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Run(ctx, "slow()")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	results, err := run.Wait()
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if errors.Is(err, engine.ErrStopped) {
		t.Error("engine stop error must not leak through the future")
	}
	if results != nil {
		t.Errorf("expected nil results on cancellation, got %v", results)
	}
}

func TestCancellationAfterCompletionAbsorbed(t *testing.T) {
	eng := enginetest.New(enginetest.Return(7))
	r := newTestRunner(t, eng, 1)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Run(ctx, "fast()")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	results, err := run.Wait()
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	cancel()

	// The future stays resolved with its original outcome.
	again, err := run.Wait()
	if err != nil {
		t.Errorf("late cancellation changed the outcome: %v", err)
	}
	if diff := cmp.Diff(results, again); diff != "" {
		t.Errorf("results changed after cancel (-first +second):\n%s", diff)
	}
}

func TestEngineFailurePassedThrough(t *testing.T) {
	scriptErr := errors.New("ReferenceError: nope is not defined")
	eng := enginetest.New(enginetest.Fail(scriptErr))
	r := newTestRunner(t, eng, 1)

	run, err := r.Run(context.Background(), "nope()")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if _, err := run.Wait(); !errors.Is(err, scriptErr) {
		t.Errorf("expected the engine failure, got %v", err)
	}
}

func TestPartialOutputDeliveredBeforeCancellation(t *testing.T) {
	eng := enginetest.New(enginetest.EmitThenBlock(1, 2))
	r := newTestRunner(t, eng, 1)

	out := make(chan interface{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := r.Run(ctx, "partial()", WithOutput(out))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var partial []interface{}
	for v := range outN(t, out, 2) {
		partial = append(partial, v)
	}
	cancel()

	if _, err := run.Wait(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if diff := cmp.Diff([]interface{}{1, 2}, partial); diff != "" {
		t.Errorf("partial output mismatch (-want +got):\n%s", diff)
	}
}

// outN receives exactly n values from ch, failing the test on timeout.
func outN(t *testing.T, ch <-chan interface{}, n int) <-chan interface{} {
	t.Helper()
	got := make(chan interface{}, n)
	for i := 0; i < n; i++ {
		select {
		case v := <-ch:
			got <- v
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for output value %d of %d", i+1, n)
		}
	}
	close(got)
	return got
}

func TestCloseFailsOutstandingRunsWithErrClosed(t *testing.T) {
	eng := enginetest.New(enginetest.EmitThenBlock())
	r := newTestRunner(t, eng, 1)

	run, err := r.Run(context.Background(), "block()")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	// Wait for the run to actually enter execution before closing.
	deadline := time.Now().Add(5 * time.Second)
	for eng.Runs() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("run never entered execution")
		}
		time.Sleep(time.Millisecond)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if _, err := run.Wait(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed for the outstanding run, got %v", err)
	}

	// Close is idempotent and later submissions fail synchronously.
	if err := r.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
	if _, err := r.Run(context.Background(), "late()"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on post-close submission, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name        string
		maxContexts int
		opts        []Option
	}{
		{name: "zero max", maxContexts: 0},
		{name: "negative max", maxContexts: -1},
		{name: "min above max", maxContexts: 2, opts: []Option{WithMinContexts(3)}},
		{name: "zero min", maxContexts: 2, opts: []Option{WithMinContexts(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(context.Background(), enginetest.New(nil), tt.maxContexts, tt.opts...)
			if err == nil {
				_ = r.Close()
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestNewPoolFailureIsFatal(t *testing.T) {
	poolErr := errors.New("no contexts available")

	eng := enginetest.New(nil)
	eng.NewPoolErr = poolErr
	if _, err := New(context.Background(), eng, 2); !errors.Is(err, poolErr) {
		t.Errorf("expected pool allocation failure, got %v", err)
	}

	eng = enginetest.New(nil)
	eng.OpenErr = poolErr
	if _, err := New(context.Background(), eng, 2); !errors.Is(err, poolErr) {
		t.Errorf("expected pool open failure, got %v", err)
	}
}

func TestSlogDebugLogging(t *testing.T) {
	eng := enginetest.New(enginetest.Return("ok"))
	r := newTestRunner(t, eng, 1)

	var buf bytes.Buffer
	r.SetSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	run, err := r.Run(context.Background(), "log me")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if _, err := run.Wait(); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "submitted") {
		t.Errorf("expected submission log line, got:\n%s", logged)
	}
	if !strings.Contains(logged, run.ID().String()) {
		t.Errorf("expected the run id in log output, got:\n%s", logged)
	}
}
