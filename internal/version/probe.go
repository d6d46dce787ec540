// Package version checks that the tacotruck helper can be run at all.
package version

import (
	"context"
	"errors"
	"fmt"

	"github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
)

// Hint tells the user how to fix an unavailable helper.
const Hint = "Please ensure Node.js and npm are available in PATH"

// ErrToolUnavailable collapses every reason the helper could not report a
// version: launch failure, non-zero exit.
var ErrToolUnavailable = errors.New("TacoTruck CLI is not available")

// Probe runs the version invocation and returns the trimmed version string.
// Cancellation is passed through unchanged so the caller can tell an
// aborted job from a missing tool.
func Probe(ctx context.Context, drv driver.Driver, inv driver.Invocation) (string, error) {
	out, err := drv.Execute(ctx, inv)
	switch {
	case errors.Is(err, driver.ErrProcessCancelled):
		return "", err
	case err != nil:
		return "", fmt.Errorf("%w: %v. %s", ErrToolUnavailable, err, Hint)
	case !out.Success:
		return "", fmt.Errorf("%w: version check failed with exit code %d. %s", ErrToolUnavailable, out.ExitCode, Hint)
	}
	if out.Stdout == "" {
		return "unknown", nil
	}
	return out.Stdout, nil
}
