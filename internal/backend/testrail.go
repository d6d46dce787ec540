package backend

import (
	"context"
	"fmt"
	"net/http"
)

var errTestrailPending = fmt.Errorf("%w: TestRail implementation not yet available", ErrUnsupportedOperation)

// TestrailBackend is selectable but not implemented: every request-building
// step and Submit fail with ErrUnsupportedOperation.
type TestrailBackend struct {
	httpBackend
}

var _ Backend = (*TestrailBackend)(nil)

func (t *TestrailBackend) Submit(ctx context.Context, runName, project string) (Outcome, error) {
	return t.submit(ctx, t, runName, project)
}

func (t *TestrailBackend) ProviderName() string { return Testrail.Label() }

func (t *TestrailBackend) Endpoint() (string, error) { return "", errTestrailPending }

func (t *TestrailBackend) Body(string, string) ([]byte, error) { return nil, errTestrailPending }

func (t *TestrailBackend) Headers(context.Context) (http.Header, error) { return nil, errTestrailPending }
