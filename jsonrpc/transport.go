package jsonrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Transport delivers one serialized request and returns the response body.
// Implementations return *TransportError for every failure.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(ctx context.Context, url string, body []byte) ([]byte, error)

func (f TransportFunc) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return f(ctx, url, body)
}

const (
	maxResponseBytes = 256 << 20
	maxErrorBody     = 512
)

// Default breaker and pool settings.
const (
	defaultCBMaxFailures uint32 = 5
	defaultCBTimeout            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second

	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// BreakerConfig configures fail-fast behavior after repeated transport
// failures. The zero value disables the breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that open the circuit.
	MaxFailures uint32 `mapstructure:"max_failures" yaml:"max_failures" toml:"max_failures"`
	// Timeout is how long the circuit stays open before a trial request is allowed.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" toml:"timeout"`
	// Interval clears failure counts while closed. Zero keeps counts.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" toml:"interval"`
}

// HTTPTransport posts requests with an *http.Client. It never retries.
type HTTPTransport struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	header  http.Header
	logger  *slog.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = c }
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst. Waiting honors the call context.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(t *HTTPTransport) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithBreaker enables the circuit breaker. Server errors inside a 200
// response do not count as failures, only transport failures do.
func WithBreaker(cfg BreakerConfig) HTTPOption {
	return func(t *HTTPTransport) {
		maxFailures := cfg.MaxFailures
		if maxFailures == 0 {
			maxFailures = defaultCBMaxFailures
		}
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultCBTimeout
		}
		interval := cfg.Interval
		if interval == 0 {
			interval = defaultCBInterval
		}
		t.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "openbis-transport",
			MaxRequests: 1,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				t.logger.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
			IsSuccessful: func(err error) bool {
				// Cancellation is the caller's decision, not a server fault.
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTPTransport) { t.header.Add(key, value) }
}

// WithTransportLogger sets the logger for breaker state changes.
func WithTransportLogger(l *slog.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.logger = l }
}

// NewHTTPTransport returns a transport over a pooled *http.Client.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		header: make(http.Header),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(t)
	}
	if t.client == nil {
		t.client = &http.Client{Transport: NewPooledTransport(0)}
	}
	return t
}

// NewPooledTransport returns an http.Transport sized for a single API host.
func NewPooledTransport(connTimeout time.Duration) *http.Transport {
	if connTimeout == 0 {
		connTimeout = 30 * time.Second
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        defaultMaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// Post implements Transport.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{URL: url, Err: err}
		}
	}
	if t.breaker == nil {
		return t.post(ctx, url, body)
	}
	resp, err := t.breaker.Execute(func() ([]byte, error) {
		return t.post(ctx, url, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("circuit open: %w", err)}
	}
	return resp, err
}

func (t *HTTPTransport) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{URL: url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, Status: resp.StatusCode, Body: truncate(data)}
	}
	return data, nil
}

func truncate(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
