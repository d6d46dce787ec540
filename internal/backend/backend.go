// Package backend submits run results to a provider API over HTTP, bypassing
// the tacotruck helper.
package backend

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrNetwork wraps transport failures: DNS, connect, TLS, timeouts.
	ErrNetwork = errors.New("network error")
	// ErrSubmissionCancelled means the caller's context fired mid-request.
	ErrSubmissionCancelled = errors.New("submission cancelled")
	// ErrNonSuccessStatus is used by callers that turn a non-2xx Outcome into an error.
	ErrNonSuccessStatus = errors.New("non-success HTTP status")
)

// Outcome is the provider's answer to one submission.
type Outcome struct {
	StatusCode int
	Body       string
	Success    bool
}

// Backend is one provider's submission capability.
type Backend interface {
	// Submit posts one completed run. A non-2xx answer is reported through
	// Outcome.Success with a nil error; errors are reserved for requests that
	// could not be built or did not complete.
	Submit(ctx context.Context, runName, project string) (Outcome, error)

	// ValidateConfiguration is a pre-flight check of the configured values. It
	// does not contact the provider.
	ValidateConfiguration() bool

	ProviderName() string
}

// HeaderBuilder supplies authentication headers for a request.
type HeaderBuilder interface {
	AuthHeaders(ctx context.Context, credentialID string) (http.Header, error)
}

// NoAuth adds no headers. No provider authentication scheme is settled yet,
// so this is the default for every backend.
type NoAuth struct{}

func (NoAuth) AuthHeaders(context.Context, string) (http.Header, error) {
	return http.Header{}, nil
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
