// cmdlet-demo feeds stdin lines through an example asynchronous command
// handler wired to the console host. Each line is transformed concurrently
// while every emit is marshalled back onto the main goroutine, which plays
// the role of the hosting environment's home thread.
//
//	printf 'alpha\nbeta\n' | cmdlet-demo -upper
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smnsjas/go-pshost/cmdlet"
	"github.com/smnsjas/go-pshost/host"
	"github.com/smnsjas/go-pshost/records"
)

// lineTransform is an example handler: it transforms each input line in
// its own goroutine and reports progress as lines complete.
type lineTransform struct {
	upper bool
	delay time.Duration

	// total is shared by concurrently running Process tasks.
	total atomic.Int64
}

func (l *lineTransform) Begin(ctx context.Context, em *cmdlet.Emitter) error {
	return em.Verbose("line transform starting").Wait()
}

func (l *lineTransform) Process(ctx context.Context, em *cmdlet.Emitter, input interface{}) error {
	line, ok := input.(string)
	if !ok {
		return fmt.Errorf("expected string input, got %T", input)
	}
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	out := line
	if l.upper {
		out = strings.ToUpper(line)
	}
	done := l.total.Add(1)
	if err := em.Object(out, false).Wait(); err != nil {
		return err
	}
	rec := records.NewProgressRecord(1, "Transforming", fmt.Sprintf("%d lines done", done))
	return em.Progress(rec).Wait()
}

func (l *lineTransform) End(ctx context.Context, em *cmdlet.Emitter) error {
	rec := records.NewProgressRecord(1, "Transforming", "finished")
	if err := em.Progress(rec.Completed()).Wait(); err != nil {
		return err
	}
	return em.Verbose(fmt.Sprintf("transformed %d lines", l.total.Load())).Wait()
}

func (l *lineTransform) HandleFailure(err error) {
	log.Printf("phase failed: %v", err)
}

func main() {
	upper := flag.Bool("upper", false, "uppercase each line")
	delay := flag.Duration("delay", 0, "artificial per-line processing delay")
	flag.Parse()

	logic := &lineTransform{upper: *upper, delay: *delay}
	a := cmdlet.New(host.NewConsoleHost(), logic)

	// This goroutine is the home goroutine: it alone drives the lifecycle
	// and, through the adapter, is the only one to touch the host API.
	a.BeginProcessing()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		a.ProcessRecord(scanner.Text())
	}
	a.EndProcessing()

	if err := scanner.Err(); err != nil {
		log.Fatalf("reading stdin: %v", err)
	}
}
