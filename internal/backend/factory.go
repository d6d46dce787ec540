package backend

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configure every backend a Factory creates.
type Options struct {
	// Client overrides the client built from HTTP.
	Client *http.Client
	HTTP   HTTPConfig
	// Auth defaults to NoAuth.
	Auth   HeaderBuilder
	Logger *zap.Logger
	// Now defaults to time.Now; it stamps created_at.
	Now func() time.Time
}

// Factory maps provider names to backends. Creating a backend has no side
// effects: no credential lookup, no network traffic.
type Factory struct {
	client *http.Client
	auth   HeaderBuilder
	log    *zap.Logger
	now    func() time.Time
}

func NewFactory(opts Options) *Factory {
	f := &Factory{client: opts.Client, auth: opts.Auth, log: opts.Logger, now: opts.Now}
	if f.client == nil {
		f.client = NewHTTPClient(opts.HTTP)
	}
	if f.auth == nil {
		f.auth = NoAuth{}
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Create parses providerName case-insensitively and returns its backend.
// An unknown name fails with ErrUnknownProvider.
func (f *Factory) Create(providerName, apiURL, credentialID string) (Backend, error) {
	p, err := ParseProvider(providerName)
	if err != nil {
		return nil, err
	}
	return f.CreateFor(p, apiURL, credentialID), nil
}

// CreateDefault returns a Testfiesta backend.
func (f *Factory) CreateDefault(apiURL, credentialID string) Backend {
	return f.CreateFor(Testfiesta, apiURL, credentialID)
}

// CreateFor returns the backend for a known provider. It panics on a
// Provider value outside the declared set.
func (f *Factory) CreateFor(p Provider, apiURL, credentialID string) Backend {
	base := httpBackend{
		apiURL:       apiURL,
		credentialID: credentialID,
		client:       f.client,
		auth:         f.auth,
		log:          f.log.Named("backend").With(zap.String("provider", p.String())),
	}
	switch p {
	case Testfiesta:
		return &TestfiestaBackend{httpBackend: base, now: f.now}
	case Testrail:
		return &TestrailBackend{httpBackend: base}
	default:
		panic("backend: unsupported provider " + p.String())
	}
}
