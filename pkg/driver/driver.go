package driver

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrProcessLaunchFailed is returned when the helper could not be started
	// (not found, permission denied, bad working directory).
	ErrProcessLaunchFailed = errors.New("process launch failed")

	// ErrProcessCancelled is returned when the caller's context fired before the
	// child exited. The child has been terminated by then.
	ErrProcessCancelled = errors.New("process cancelled")
)

// Invocation is one fully rendered command. Args[0] is the executable.
type Invocation struct {
	Args []string

	// Dir is the working directory of the child. Empty means the current one.
	Dir string

	// Env is merged over the ambient environment; entries here win.
	Env map[string]string

	// Stderr receives the child's standard error unbuffered. Nil discards it.
	Stderr io.Writer
}

// Path returns the executable, or "" when Args is empty.
func (inv Invocation) Path() string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[0]
}

// Outcome is the result of one execution.
//
// Success is true iff ExitCode == 0. ErrorMessage is only set when the
// process did not run to completion (launch failure, cancellation); a
// non-zero exit is reported through Success alone.
type Outcome struct {
	ExitCode     int
	Stdout       string
	Success      bool
	ErrorMessage string
}

// Driver runs an Invocation and blocks until the child exits or ctx is done.
//
// Implementations always return a populated Outcome. The error is nil when
// the process ran to completion regardless of exit code, wraps
// ErrProcessLaunchFailed when it never started and wraps ErrProcessCancelled
// when ctx fired first.
type Driver interface {
	Execute(ctx context.Context, inv Invocation) (Outcome, error)
}

func completed(exitCode int, stdout string) Outcome {
	return Outcome{ExitCode: exitCode, Stdout: stdout, Success: exitCode == 0}
}

func failed(exitCode int, stdout string, err error) Outcome {
	return Outcome{ExitCode: exitCode, Stdout: stdout, Success: false, ErrorMessage: err.Error()}
}
