package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// Source tags every run created through this integration.
	Source    = "jenkins"
	UserAgent = "Jenkins-Testfiesta-Plugin"

	testRunsPath = "api/v1/test-runs"
)

type testRunPayload struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

// TestfiestaBackend creates completed test runs through the Testfiesta API.
type TestfiestaBackend struct {
	httpBackend
	now func() time.Time
}

var _ Backend = (*TestfiestaBackend)(nil)

func (t *TestfiestaBackend) Submit(ctx context.Context, runName, project string) (Outcome, error) {
	return t.submit(ctx, t, runName, project)
}

func (t *TestfiestaBackend) ProviderName() string { return Testfiesta.Label() }

// Endpoint returns the test-runs URL under the configured API base.
func (t *TestfiestaBackend) Endpoint() (string, error) {
	return JoinEndpoint(t.apiURL), nil
}

// Body renders the JSON payload, stamping created_at with the current time.
func (t *TestfiestaBackend) Body(runName, project string) ([]byte, error) {
	return sonic.Marshal(testRunPayload{
		Name:      runName,
		ProjectID: project,
		Source:    Source,
		CreatedAt: t.now().UTC().Format(time.RFC3339Nano),
		Status:    "completed",
	})
}

func (t *TestfiestaBackend) Headers(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "application/json")
	return h, nil
}

// JoinEndpoint appends the test-runs path to base with exactly one slash
// between them.
func JoinEndpoint(base string) string {
	return strings.TrimRight(base, "/") + "/" + testRunsPath
}
