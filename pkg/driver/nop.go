package driver

import (
	"context"
)

// Nop implements Driver without spawning anything. Every invocation succeeds
// with Stdout as its output.
type Nop struct {
	Stdout string
}

func (n Nop) Execute(ctx context.Context, inv Invocation) (Outcome, error) {
	if ctx.Err() != nil {
		err := cancelled(ctx)
		return failed(-1, "", err), err
	}
	if len(inv.Args) == 0 {
		return failed(-1, "", ErrProcessLaunchFailed), ErrProcessLaunchFailed
	}
	return completed(0, n.Stdout), nil
}
