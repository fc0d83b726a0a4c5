package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/decycle"
)

const (
	// Version is the protocol version sent with every request.
	Version = "2.0"
	// RequestID is the constant id sent with every request.
	RequestID = "1"

	tracerName = "github.com/mnehpets/openbis/jsonrpc"
)

// Request is the envelope POSTed for one call. Members serialize in the
// order id, jsonrpc, method, params.
type Request struct {
	ID      string `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds the envelope for method. Each parameter is encoded by its
// own decycle.Encoder, so references never cross parameter boundaries.
func NewRequest(method string, params []any) (*Request, error) {
	encoded := make([]any, len(params))
	for i, p := range params {
		v, err := decycle.NewEncoder().Encode(p)
		if err != nil {
			return nil, fmt.Errorf("jsonrpc: %s: param %d: %w", method, i, err)
		}
		encoded[i] = v
	}
	return &Request{ID: RequestID, JSONRPC: Version, Method: method, Params: encoded}, nil
}

// MarshalRequest returns the serialized envelope for method.
func MarshalRequest(method string, params []any) ([]byte, error) {
	req, err := NewRequest(method, params)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("jsonrpc: %s: %w", method, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Call is an asynchronous call started by Client.Go. Done receives the call
// exactly once, after Result or Error has been set.
type Call struct {
	Method     string
	Params     []any
	ReturnType codec.ReturnType
	Result     any
	Error      error
	Done       chan *Call

	once sync.Once
}

func (call *Call) done() {
	call.once.Do(func() {
		select {
		case call.Done <- call:
		default:
			// A full Done channel drops the reply instead of blocking.
		}
	})
}

// Client performs JSON-RPC calls against one endpoint URL. A Client is
// safe for concurrent use; it holds no per-call state.
type Client struct {
	url       string
	transport Transport
	decoder   *codec.Decoder
	logger    *slog.Logger
	tracer    trace.Tracer
	redacted  map[string]bool
	ids       *idSource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the diagnostic log sink.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithTracerProvider sets the provider used for call spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithRedactedMethods keeps the request body of the named methods out of
// the log, for methods carrying credentials.
func WithRedactedMethods(methods ...string) ClientOption {
	return func(c *Client) {
		for _, m := range methods {
			c.redacted[m] = true
		}
	}
}

// NewClient returns a Client posting to url and decoding results with dec.
func NewClient(url string, dec *codec.Decoder, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		decoder:  dec,
		logger:   slog.New(slog.DiscardHandler),
		redacted: make(map[string]bool),
		ids:      newIDSource(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Decoder returns the client's result decoder.
func (c *Client) Decoder() *codec.Decoder {
	return c.decoder
}

// WithURL returns a client for another endpoint sharing transport, decoder,
// logger and tracer.
func (c *Client) WithURL(url string) *Client {
	cp := *c
	cp.url = url
	return &cp
}

// Call performs one call and decodes its result according to rt. Errors are
// *TransportError, *ServerError or *codec.DecodeError. Calls are never
// retried; ctx bounds the whole exchange.
func (c *Client) Call(ctx context.Context, method string, params []any, rt codec.ReturnType) (any, error) {
	id := c.ids.next()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "jsonrpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("rpc.jsonrpc.request_id", id),
			attribute.String("url.full", c.url),
		))
	defer span.End()

	result, body, err := c.call(ctx, method, params, rt)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	c.logOutcome(ctx, id, method, body, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, rt codec.ReturnType) (any, []byte, error) {
	body, err := MarshalRequest(method, params)
	if err != nil {
		return nil, nil, err
	}

	raw, err := c.transport.Post(ctx, c.url, body)
	if err != nil {
		var terr *TransportError
		if !errors.As(err, &terr) {
			err = &TransportError{URL: c.url, Err: err}
		}
		return nil, body, err
	}

	result, err := parseResponse(c.url, raw)
	if err != nil {
		return nil, body, err
	}

	v, err := c.decoder.Decode(rt, result)
	if err != nil {
		return nil, body, err
	}
	return v, body, nil
}

// Go starts Call in a new goroutine. done may be nil, in which case a
// buffered channel is allocated; a caller-supplied channel must be buffered.
func (c *Client) Go(ctx context.Context, method string, params []any, rt codec.ReturnType, done chan *Call) *Call {
	if done == nil {
		done = make(chan *Call, 1)
	} else if cap(done) == 0 {
		panic("jsonrpc: done channel is unbuffered")
	}
	call := &Call{Method: method, Params: params, ReturnType: rt, Done: done}
	go func() {
		call.Result, call.Error = c.Call(ctx, method, params, rt)
		call.done()
	}()
	return call
}

// parseResponse extracts the raw result, or the server error, from a
// response envelope.
func parseResponse(url string, raw []byte) (json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{URL: url, Body: truncate(raw), Err: fmt.Errorf("invalid response envelope: %w", err)}
	}
	if e, ok := env["error"]; ok && !bytes.Equal(bytes.TrimSpace(e), []byte("null")) {
		serr := &ServerError{}
		if err := json.Unmarshal(e, serr); err != nil {
			// Some servers send a bare string.
			var msg string
			if json.Unmarshal(e, &msg) != nil {
				return nil, &TransportError{URL: url, Body: truncate(raw), Err: fmt.Errorf("invalid error member: %w", err)}
			}
			serr.Message = msg
		}
		return nil, serr
	}
	result, ok := env["result"]
	if !ok {
		return nil, &TransportError{URL: url, Body: truncate(raw), Err: errors.New("response has neither result nor error")}
	}
	return result, nil
}

func (c *Client) logOutcome(ctx context.Context, id, method string, body []byte, elapsed time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("call_id", id),
		slog.String("method", method),
		slog.String("url", c.url),
		slog.Duration("duration", elapsed),
	}
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		if c.redacted[method] {
			attrs = append(attrs, slog.String("request", "[redacted]"))
		} else {
			attrs = append(attrs, slog.String("request", string(body)))
		}
	}

	var (
		terr *TransportError
		serr *ServerError
		derr *codec.DecodeError
	)
	switch {
	case err == nil:
		c.logger.LogAttrs(ctx, slog.LevelInfo, "rpc call", append(attrs, slog.String("outcome", "ok"))...)
	case errors.As(err, &serr):
		c.logger.LogAttrs(ctx, slog.LevelWarn, "rpc call", append(attrs,
			slog.String("outcome", "server_error"), slog.Int("code", serr.Code), slog.String("error", serr.Message))...)
	case errors.As(err, &derr):
		c.logger.LogAttrs(ctx, slog.LevelWarn, "rpc call", append(attrs,
			slog.String("outcome", "decode_error"), slog.String("path", derr.Path), slog.String("error", err.Error()))...)
	case errors.As(err, &terr):
		c.logger.LogAttrs(ctx, slog.LevelWarn, "rpc call", append(attrs,
			slog.String("outcome", "transport_error"), slog.Int("status", terr.Status), slog.String("error", err.Error()))...)
	default:
		c.logger.LogAttrs(ctx, slog.LevelWarn, "rpc call", append(attrs,
			slog.String("outcome", "error"), slog.String("error", err.Error()))...)
	}
}

// idSource yields monotonic ULIDs for log correlation.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDSource() *idSource {
	return &idSource{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}
}

func (s *idSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}
