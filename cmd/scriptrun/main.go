// scriptrun executes JavaScript on the pooled QuickJS runner and prints
// the result objects. Ctrl-C cancels the in-flight run through the
// engine's native stop.
//
// Usage:
//
//	scriptrun [-pool N] [-timeout D] [-v] 'script text'
//	scriptrun -f script.js
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/smnsjas/go-pshost/engine/quickjs"
	"github.com/smnsjas/go-pshost/runner"
)

func main() {
	poolSize := flag.Int("pool", 2, "maximum pooled execution contexts")
	minSize := flag.Int("min", 1, "minimum pooled execution contexts")
	timeout := flag.Duration("timeout", 30*time.Second, "per-run timeout (0 for none)")
	file := flag.String("f", "", "read the script from a file instead of the argument")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	script := flag.Arg(0)
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("reading script: %v", err)
		}
		script = string(data)
	}
	if script == "" {
		fmt.Fprintln(os.Stderr, "usage: scriptrun [flags] 'script text'")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := runner.New(ctx, quickjs.New(), *poolSize, runner.WithMinContexts(*minSize))
	if err != nil {
		log.Fatalf("starting runner: %v", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("closing runner: %v", err)
		}
	}()
	if *verbose {
		r.EnableDebugLogging()
	}

	runCtx := ctx
	if *timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	run, err := r.Run(runCtx, script)
	if err != nil {
		log.Fatalf("submitting script: %v", err)
	}

	results, err := run.Wait()
	switch {
	case errors.Is(err, runner.ErrCancelled):
		log.Fatalf("run %s cancelled", run.ID())
	case err != nil:
		log.Fatalf("run %s failed: %v", run.ID(), err)
	}

	for _, v := range results {
		fmt.Println(v)
	}
}
