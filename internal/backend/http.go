package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/duke-git/lancet/v2/strutil"
	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

// HTTPConfig bounds the dial and the whole request/response round trip.
type HTTPConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultHTTPConfig returns a 30s connect timeout and a 60s request timeout.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{ConnectTimeout: 30 * time.Second, RequestTimeout: 60 * time.Second}
}

// NewHTTPClient builds a client honoring cfg. Zero values fall back to the
// defaults.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	def := DefaultHTTPConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	return &http.Client{Transport: transport, Timeout: cfg.RequestTimeout}
}

// requestDialect is the provider-specific part of a submission.
type requestDialect interface {
	Endpoint() (string, error)
	Body(runName, project string) ([]byte, error)
	Headers(ctx context.Context) (http.Header, error)
}

// httpBackend holds what every HTTP provider shares.
type httpBackend struct {
	apiURL       string
	credentialID string
	client       *http.Client
	auth         HeaderBuilder
	log          *zap.Logger
}

func (b *httpBackend) ValidateConfiguration() bool {
	return !strutil.IsBlank(b.apiURL) && !strutil.IsBlank(b.credentialID)
}

func (b *httpBackend) submit(ctx context.Context, d requestDialect, runName, project string) (Outcome, error) {
	body, err := d.Body(runName, project)
	if err != nil {
		return Outcome{}, err
	}
	endpoint, err := d.Endpoint()
	if err != nil {
		return Outcome{}, err
	}
	headers, err := d.Headers(ctx)
	if err != nil {
		return Outcome{}, err
	}
	auth, err := b.auth.AuthHeaders(ctx, b.credentialID)
	if err != nil {
		return Outcome{}, fmt.Errorf("build authentication headers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range auth {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrSubmissionCancelled, ctxErr)
		}
		b.log.Warn("http.send_error", zap.String("endpoint", endpoint), zap.Error(err))
		return Outcome{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrSubmissionCancelled, ctxErr)
		}
		return Outcome{}, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	b.log.Debug("http.finish",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return Outcome{
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Success:    isSuccessStatus(resp.StatusCode),
	}, nil
}
