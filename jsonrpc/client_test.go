package jsonrpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/openbis/codec"
)

type rights struct {
	Rights []string `json:"rights"`
}

func testDecoder() *codec.Decoder {
	reg := codec.NewRegistry()
	codec.RegisterType[*rights](reg, "Rights")
	return codec.NewDecoder(reg)
}

// fixedTransport records the last request and replies with body.
type fixedTransport struct {
	body  string
	err   error
	last  []byte
	calls atomic.Int32
}

func (f *fixedTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	f.calls.Add(1)
	f.last = body
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func TestEnvelopeShape(t *testing.T) {
	body, err := MarshalRequest("login", []any{"u", "p"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","jsonrpc":"2.0","method":"login","params":["u","p"]}`, string(body))

	body, err = MarshalRequest("logout", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","jsonrpc":"2.0","method":"logout","params":[]}`, string(body))
}

func TestParamsEncodedIndependently(t *testing.T) {
	type obj struct {
		Code string `json:"code"`
		Self *obj   `json:"self,omitempty"`
	}
	shared := &obj{Code: "S"}
	shared.Self = shared

	body, err := MarshalRequest("update", []any{shared, shared})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"1","jsonrpc":"2.0","method":"update","params":[{"code":"S","self":{"$ref":"$"}},{"code":"S","self":{"$ref":"$"}}]}`,
		string(body))
}

func TestCallDecodesResult(t *testing.T) {
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","result":{"k1":{"rights":["UPDATE"]},"k2":{"rights":[]}}}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

	got, err := c.Call(context.Background(), "getRights", []any{"tok", []string{"k1", "k2"}, nil},
		codec.MapOf(codec.Scalar("String"), codec.Scalar("Rights")))
	require.NoError(t, err)

	m := got.(map[string]*rights)
	assert.Len(t, m, 2)
	assert.Equal(t, []string{"UPDATE"}, m["k1"].Rights)
	assert.JSONEq(t, `{"id":"1","jsonrpc":"2.0","method":"getRights","params":["tok",["k1","k2"],null]}`, string(tr.last))
}

func TestServerErrorSkipsDecoding(t *testing.T) {
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","error":{"message":"X","code":0,"data":{"exceptionTypeName":"UserFailureException"}}}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

	// An undeclared return type would fail with a DecodeError if decoding ran.
	got, err := c.Call(context.Background(), "searchSamples", []any{"tok"}, codec.Scalar("Undeclared"))
	assert.Nil(t, got)

	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "X", err.Error())
	assert.Equal(t, map[string]any{"exceptionTypeName": "UserFailureException"}, serr.Data)

	var derr *codec.DecodeError
	assert.False(t, errors.As(err, &derr))
}

func TestServerErrorKeepsUnusualMembers(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		msg    string
		code   int
		fields map[string]string
	}{
		{
			name:   "string code",
			body:   `{"message":"X","code":"E1","exceptionTypeName":"UserFailureException"}`,
			msg:    "X",
			fields: map[string]string{"code": `"E1"`, "exceptionTypeName": `"UserFailureException"`},
		},
		{
			name: "integer code",
			body: `{"message":"Y","code":-32000}`,
			msg:  "Y",
			code: -32000,
		},
		{
			name: "bare string",
			body: `"Session token is invalid"`,
			msg:  "Session token is invalid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","error":` + tt.body + `}`}
			c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

			_, err := c.Call(context.Background(), "m", nil, codec.Opaque())
			var serr *ServerError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.msg, serr.Message)
			assert.Equal(t, tt.code, serr.Code)
			got := map[string]string{}
			for k, v := range serr.Fields {
				got[k] = string(v)
			}
			if tt.fields == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.fields, got)
			}
		})
	}
}

func TestDecodeErrorSurfaces(t *testing.T) {
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","result":[1,2]}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

	_, err := c.Call(context.Background(), "getRights", nil, codec.Scalar("Rights"))
	var derr *codec.DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestTransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		tr     *fixedTransport
		status int
	}{
		{"network", &fixedTransport{err: errors.New("connection refused")}, 0},
		{"not json", &fixedTransport{body: `<html>gateway</html>`}, 0},
		{"neither result nor error", &fixedTransport{body: `{"id":"1","jsonrpc":"2.0"}`}, 0},
		{"wrapped status", &fixedTransport{err: &TransportError{URL: "u", Status: 502}}, 502},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient("http://as/rpc", testDecoder(), WithTransport(tt.tr))
			_, err := c.Call(context.Background(), "m", nil, codec.Opaque())
			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.status, terr.Status)
		})
	}
}

func TestNullErrorMemberIsIgnored(t *testing.T) {
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","result":"ok","error":null}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

	got, err := c.Call(context.Background(), "m", nil, codec.Scalar("String"))
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestGoCompletesOnce(t *testing.T) {
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","result":"v"}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))

	call := c.Go(context.Background(), "m", nil, codec.Scalar("String"), nil)
	select {
	case done := <-call.Done:
		assert.Same(t, call, done)
		require.NoError(t, done.Error)
		assert.Equal(t, "v", done.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("call did not complete")
	}

	call.done()
	select {
	case <-call.Done:
		t.Fatal("call completed twice")
	default:
	}
}

func TestGoRejectsUnbufferedDone(t *testing.T) {
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(&fixedTransport{}))
	assert.Panics(t, func() {
		c.Go(context.Background(), "m", nil, codec.Opaque(), make(chan *Call))
	})
}

func TestLoggingIsObservational(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr := &fixedTransport{body: `{"id":"1","jsonrpc":"2.0","error":{"message":"denied"}}`}
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr), WithLogger(logger), WithRedactedMethods("login"))

	_, err := c.Call(context.Background(), "login", []any{"admin", "hunter2"}, codec.Scalar("String"))
	require.Error(t, err)
	assert.Equal(t, "denied", err.Error())

	out := buf.String()
	assert.Contains(t, out, `"outcome":"server_error"`)
	assert.Contains(t, out, `"method":"login"`)
	assert.Contains(t, out, `"call_id"`)
	assert.NotContains(t, out, "hunter2")

	buf.Reset()
	tr.body = `{"id":"1","jsonrpc":"2.0","result":"t"}`
	_, err = c.Call(context.Background(), "searchSpaces", []any{"tok"}, codec.Scalar("String"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"outcome":"ok"`)
	assert.Contains(t, buf.String(), `searchSpaces`)
}

func TestWithURLSharesTransport(t *testing.T) {
	var urls []string
	tr := TransportFunc(func(ctx context.Context, url string, body []byte) ([]byte, error) {
		urls = append(urls, url)
		return []byte(`{"result":null}`), nil
	})
	c := NewClient("http://as/rpc", testDecoder(), WithTransport(tr))
	dss := c.WithURL("http://dss/rpc")

	_, err := c.Call(context.Background(), "a", nil, codec.Opaque())
	require.NoError(t, err)
	_, err = dss.Call(context.Background(), "b", nil, codec.Opaque())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://as/rpc", "http://dss/rpc"}, urls)
	assert.Equal(t, "http://dss/rpc", dss.URL())
	assert.Same(t, c.Decoder(), dss.Decoder())
}

func TestHTTPTransportStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-Test") != "yes" {
			http.Error(w, "bad headers", http.StatusBadRequest)
			return
		}
		if strings.Contains(string(b), "fail") {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"1","jsonrpc":"2.0","result":42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testDecoder(), WithTransport(NewHTTPTransport(WithHeader("X-Test", "yes"))))

	got, err := c.Call(context.Background(), "ok", nil, codec.Scalar("Long"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = c.Call(context.Background(), "fail", nil, codec.Opaque())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusInternalServerError, terr.Status)
	assert.Contains(t, terr.Body, "upstream exploded")
}

func TestHTTPTransportBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(WithBreaker(BreakerConfig{MaxFailures: 2, Timeout: time.Minute}))
	for i := 0; i < 4; i++ {
		_, err := tr.Post(context.Background(), srv.URL, []byte(`{}`))
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPTransportRateLimitHonorsContext(t *testing.T) {
	tr := NewHTTPTransport(WithRateLimit(0.001, 1), WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`{}`)), Header: http.Header{}}, nil
		}),
	}))

	_, err := tr.Post(context.Background(), "http://as/rpc", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = tr.Post(ctx, "http://as/rpc", nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
