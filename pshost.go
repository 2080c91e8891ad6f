package pshost

import (
	"context"

	"github.com/smnsjas/go-pshost/engine/quickjs"
	"github.com/smnsjas/go-pshost/runner"
)

// NewLocalRunner creates a runner backed by the in-process QuickJS engine
// with a pool of maxContexts virtual machines.
func NewLocalRunner(ctx context.Context, maxContexts int, opts ...runner.Option) (*runner.Runner, error) {
	return runner.New(ctx, quickjs.New(), maxContexts, opts...)
}
