package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct{ calls int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, errors.New("no network in tests")
}

type countingAuth struct {
	calls  int32
	header http.Header
}

func (c *countingAuth) AuthHeaders(context.Context, string) (http.Header, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.header == nil {
		return http.Header{}, nil
	}
	return c.header, nil
}

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 123000000, time.UTC)

func newTestFactory(client *http.Client, auth HeaderBuilder) *Factory {
	return NewFactory(Options{Client: client, Auth: auth, Now: func() time.Time { return fixedNow }})
}

func TestParseProvider(t *testing.T) {
	for name, want := range map[string]Provider{
		"testfiesta": Testfiesta,
		"TestFiesta": Testfiesta,
		" TESTRAIL ": Testrail,
	} {
		p, err := ParseProvider(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, p)
	}

	_, err := ParseProvider("jira")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "jira")

	assert.Equal(t, "Testfiesta", Testfiesta.Label())
	assert.Equal(t, "TestRail", Testrail.Label())
	assert.Equal(t, "Unknown", Provider(0).Label())
	assert.Len(t, Providers(), 2)
}

func TestFactoryUnknownProviderHasNoSideEffects(t *testing.T) {
	transport := &countingTransport{}
	auth := &countingAuth{}
	f := newTestFactory(&http.Client{Transport: transport}, auth)

	b, err := f.Create("not-a-real-provider", "https://x.example", "tf-token")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Nil(t, b)
	assert.Zero(t, atomic.LoadInt32(&transport.calls), "no request may be sent")
	assert.Zero(t, atomic.LoadInt32(&auth.calls), "no credential lookup may happen")
}

func TestTestrailStub(t *testing.T) {
	transport := &countingTransport{}
	f := newTestFactory(&http.Client{Transport: transport}, nil)

	var b Backend
	require.NotPanics(t, func() {
		var err error
		b, err = f.Create("TestRail", "https://acme.testrail.io", "tr-token")
		require.NoError(t, err)
	})
	assert.Equal(t, "TestRail", b.ProviderName())
	assert.True(t, b.ValidateConfiguration())

	_, err := b.Submit(context.Background(), "nightly", "proj-1")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.Contains(t, err.Error(), "TestRail implementation not yet available")

	tr := b.(*TestrailBackend)
	_, err = tr.Endpoint()
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = tr.Body("nightly", "proj-1")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = tr.Headers(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	assert.Zero(t, atomic.LoadInt32(&transport.calls))
}

func TestValidateConfiguration(t *testing.T) {
	f := newTestFactory(nil, nil)
	assert.True(t, f.CreateDefault("https://x.example", "tf-token").ValidateConfiguration())
	assert.False(t, f.CreateDefault("   ", "tf-token").ValidateConfiguration())
	assert.False(t, f.CreateDefault("https://x.example", "").ValidateConfiguration())
	assert.Equal(t, "Testfiesta", f.CreateDefault("", "").ProviderName())
}

func TestJoinEndpoint(t *testing.T) {
	assert.Equal(t, "https://x.example/api/v1/test-runs", JoinEndpoint("https://x.example/"))
	assert.Equal(t, "https://x.example/api/v1/test-runs", JoinEndpoint("https://x.example"))
	assert.Equal(t, "https://x.example/base/api/v1/test-runs", JoinEndpoint("https://x.example/base//"))

	b := newTestFactory(nil, nil).CreateDefault("https://x.example/", "id").(*TestfiestaBackend)
	endpoint, err := b.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/api/v1/test-runs", endpoint)
}

func TestTestfiestaSubmit(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotHeader http.Header
		gotBody   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer server.Close()

	b, err := newTestFactory(server.Client(), nil).Create("testfiesta", server.URL, "tf-token")
	require.NoError(t, err)

	out, err := b.Submit(context.Background(), "nightly", "proj-1")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusCreated, out.StatusCode)
	assert.Equal(t, `{"id":42}`, out.Body)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/test-runs", gotPath)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, UserAgent, gotHeader.Get("User-Agent"))
	assert.Empty(t, gotHeader.Get("Authorization"))

	var payload map[string]string
	require.NoError(t, sonic.Unmarshal(gotBody, &payload))
	assert.Equal(t, "nightly", payload["name"])
	assert.Equal(t, "proj-1", payload["project_id"])
	assert.Equal(t, "completed", payload["status"])
	assert.Equal(t, Source, payload["source"])
	assert.Equal(t, "2026-10-14T09:30:00.123Z", payload["created_at"])
	_, err = time.Parse(time.RFC3339Nano, payload["created_at"])
	assert.NoError(t, err)
}

func TestTestfiestaBodyEscapesValues(t *testing.T) {
	b := newTestFactory(nil, nil).CreateDefault("https://x.example", "id").(*TestfiestaBackend)
	data, err := b.Body(`run "quoted"`+"\n", "p\\1")
	require.NoError(t, err)

	var payload testRunPayload
	require.NoError(t, sonic.Unmarshal(data, &payload))
	assert.Equal(t, `run "quoted"`+"\n", payload.Name)
	assert.Equal(t, "p\\1", payload.ProjectID)
}

func TestTestfiestaAuthHeaderBuilder(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	auth := &countingAuth{header: http.Header{"Authorization": []string{"Bearer test"}}}
	b := newTestFactory(server.Client(), auth).CreateDefault(server.URL, "tf-token")

	_, err := b.Submit(context.Background(), "nightly", "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test", gotAuth)
	assert.EqualValues(t, 1, atomic.LoadInt32(&auth.calls))
}

func TestTestfiestaNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"project not found"}`))
	}))
	defer server.Close()

	out, err := newTestFactory(server.Client(), nil).CreateDefault(server.URL+"/", "tf-token").
		Submit(context.Background(), "nightly", "missing")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, out.StatusCode)
	assert.Contains(t, out.Body, "project not found")
}

func TestTestfiestaNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestFactory(NewHTTPClient(HTTPConfig{}), nil).CreateDefault(url, "tf-token").
		Submit(context.Background(), "nightly", "proj-1")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.False(t, errors.Is(err, ErrSubmissionCancelled))

	_, err = newTestFactory(nil, nil).CreateDefault("://bad url", "tf-token").
		Submit(context.Background(), "nightly", "proj-1")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestTestfiestaRequestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(HTTPConfig{RequestTimeout: 50 * time.Millisecond})
	_, err := newTestFactory(client, nil).CreateDefault(server.URL, "tf-token").
		Submit(context.Background(), "nightly", "proj-1")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.False(t, errors.Is(err, ErrSubmissionCancelled))
}

func TestTestfiestaCancellation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := newTestFactory(server.Client(), nil).CreateDefault(server.URL, "tf-token").
		Submit(ctx, "nightly", "proj-1")
	assert.ErrorIs(t, err, ErrSubmissionCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestNewHTTPClientDefaults(t *testing.T) {
	c := NewHTTPClient(HTTPConfig{})
	assert.Equal(t, 60*time.Second, c.Timeout)

	c = NewHTTPClient(HTTPConfig{ConnectTimeout: time.Second, RequestTimeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, time.Second, c.Transport.(*http.Transport).TLSHandshakeTimeout)
}
