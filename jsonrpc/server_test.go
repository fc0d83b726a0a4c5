package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnehpets/openbis/endpoint"
)

func serveRPC(s *Server, processors ...endpoint.Processor) http.Handler {
	return endpoint.Handler(s.Endpoint, processors...)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return resp
}

type loginParams struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type sessionParams struct {
	Token string `json:"sessionToken"`
}

type codesParams struct {
	Token string   `json:"sessionToken"`
	Codes []string `json:"codes"`
}

type renamedParams struct {
	_     struct{} `jsonrpc:"get_server_information"`
	Token string   `json:"sessionToken"`
}

type testMethods struct {
	pinged bool
}

func (m *testMethods) Login(ctx context.Context, p loginParams) (string, error) {
	if p.Password != "secret" {
		return "", nil
	}
	return p.User + "-token", nil
}

func (m *testMethods) Logout(ctx context.Context, p sessionParams) (any, error) {
	return nil, nil
}

func (m *testMethods) CountCodes(ctx context.Context, p codesParams) (int, error) {
	if p.Token == "" {
		return 0, &ServerError{Code: -1, Message: "Session token is invalid"}
	}
	return len(p.Codes), nil
}

func (m *testMethods) Info(ctx context.Context, p renamedParams) (map[string]string, error) {
	return map[string]string{"api-version": "3.6"}, nil
}

func (m *testMethods) Ping(ctx context.Context, p struct{}) (any, error) {
	m.pinged = true
	return nil, nil
}

func (m *testMethods) Boom(ctx context.Context, p struct{}) (any, error) {
	panic("boom")
}

func (m *testMethods) Plain(ctx context.Context, p struct{}) (any, error) {
	return nil, errors.New("plain failure")
}

func (m *testMethods) notRegistered(ctx context.Context, p struct{}) (any, error) {
	return nil, nil
}

func (m *testMethods) WrongSignature(s string) string {
	return s
}

func TestPOSTOnlyEnforcement(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	tests := []struct {
		method   string
		wantCode int
	}{
		{http.MethodGet, http.StatusMethodNotAllowed},
		{http.MethodPut, http.StatusMethodNotAllowed},
		{http.MethodPost, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", bytes.NewReader([]byte(`{"id":"1","jsonrpc":"2.0","method":"login","params":["u","secret"]}`)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			serveRPC(s).ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestContentTypeEnforcement(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	serveRPC(s).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
}

func TestLowerCamelMethodNames(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	// WrongSignature and notRegistered are skipped.
	if got := s.Methods(); got != 7 {
		t.Errorf("got %d methods, want 7", got)
	}

	resp := decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"login","params":["admin","secret"]}`))
	if resp["result"] != "admin-token" {
		t.Errorf("got result %v, want admin-token", resp["result"])
	}
	if resp["id"] != "1" {
		t.Errorf("got id %v, want \"1\"", resp["id"])
	}

	resp = decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"Login","params":["admin","secret"]}`))
	if resp["error"] == nil {
		t.Error("expected method not found for upper-case name")
	}
}

func TestMethodNameOverride(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	resp := decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"get_server_information","params":["tok"]}`))
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("got %v, want object result", resp)
	}
	if result["api-version"] != "3.6" {
		t.Errorf("got %v", result)
	}
}

func TestNamespace(t *testing.T) {
	s := NewServer()
	s.Register("dss", &testMethods{})

	resp := decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"dss.countCodes","params":["tok",["A","B"]]}`))
	if resp["result"].(float64) != 2 {
		t.Errorf("got result %v, want 2", resp["result"])
	}
}

func TestNullResultIsPresent(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	rec := post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"logout","params":["tok"]}`)
	resp := decodeObject(t, rec)
	if _, ok := resp["result"]; !ok {
		t.Errorf("result member missing from %s", rec.Body.String())
	}
	if _, ok := resp["error"]; ok {
		t.Errorf("unexpected error member in %s", rec.Body.String())
	}
}

func TestNamedParams(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	resp := decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"countCodes","params":{"sessionToken":"t","codes":["A"]}}`))
	if resp["result"].(float64) != 1 {
		t.Errorf("got result %v, want 1", resp["result"])
	}

	resp = decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"countCodes","params":{"sessionToken":"t"}}`))
	errObj := resp["error"].(map[string]interface{})
	if errObj["message"] != "missing param: codes" {
		t.Errorf("got %v", errObj["message"])
	}
}

func TestErrorCodes(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"ParseError", `{invalid`, CodeParseError, "parse error"},
		{"InvalidRequest", `{"jsonrpc":"1.0","method":"login","id":"1"}`, CodeInvalidRequest, "invalid request"},
		{"MethodRequired", `{"jsonrpc":"2.0","id":"1"}`, CodeInvalidRequest, "method required"},
		{"MethodNotFound", `{"jsonrpc":"2.0","method":"unknown","id":"1"}`, CodeMethodNotFound, "method not found: unknown"},
		{"TooManyParams", `{"jsonrpc":"2.0","method":"login","params":[1,2,3],"id":"1"}`, CodeInvalidParams, "invalid number of params"},
		{"WrongParamType", `{"jsonrpc":"2.0","method":"login","params":[1,2],"id":"1"}`, CodeInvalidParams, "invalid params: user"},
		{"MethodError", `{"jsonrpc":"2.0","method":"countCodes","params":[null,[]],"id":"1"}`, -1, "Session token is invalid"},
		{"PlainError", `{"jsonrpc":"2.0","method":"plain","params":[],"id":"1"}`, CodeInternalError, "plain failure"},
		{"Panic", `{"jsonrpc":"2.0","method":"boom","params":[],"id":"1"}`, CodeInternalError, "internal error"},
		{"EmptyBatch", `[]`, CodeInvalidRequest, "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeObject(t, post(t, serveRPC(s), tt.body))
			errObj, ok := resp["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected error, got %v", resp)
			}
			if int(errObj["code"].(float64)) != tt.wantCode {
				t.Errorf("got error code %v, want %d", errObj["code"], tt.wantCode)
			}
			if errObj["message"] != tt.wantMsg {
				t.Errorf("got message %q, want %q", errObj["message"], tt.wantMsg)
			}
		})
	}
}

func TestBatchWithNotifications(t *testing.T) {
	s := NewServer()
	m := &testMethods{}
	s.Register("", m)

	body := `[
		{"jsonrpc":"2.0","method":"ping","params":[]},
		{"jsonrpc":"2.0","method":"login","params":["u","secret"],"id":1},
		{"jsonrpc":"2.0","method":"nonexistent","params":[],"id":2}
	]`
	rec := post(t, serveRPC(s), body)

	if !m.pinged {
		t.Error("notification should have been called")
	}

	var resp []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("got %d responses, want 2", len(resp))
	}
	if resp[0]["result"] != "u-token" {
		t.Errorf("first result should be u-token, got %v", resp[0])
	}
	if resp[1]["error"] == nil {
		t.Errorf("second result should be an error")
	}
}

func TestOnlyNotifications(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	rec := post(t, serveRPC(s), `{"jsonrpc":"2.0","method":"ping","params":[]}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestParamDecoderAndResultEncoder(t *testing.T) {
	var decoded int
	s := NewServer(
		WithParamDecoder(func(data []byte, v any) error {
			decoded++
			return json.Unmarshal(data, v)
		}),
		WithResultEncoder(func(v any) (any, error) {
			return map[string]any{"wrapped": v}, nil
		}),
	)
	s.Register("", &testMethods{})

	resp := decodeObject(t, post(t, serveRPC(s), `{"id":"1","jsonrpc":"2.0","method":"login","params":["u","secret"]}`))
	if decoded != 2 {
		t.Errorf("param decoder called %d times, want 2", decoded)
	}
	if resp["result"].(map[string]interface{})["wrapped"] != "u-token" {
		t.Errorf("got %v", resp["result"])
	}
}

func TestProcessorErrorReturnsHTTPError(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})

	deny := endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		return endpoint.Error(http.StatusForbidden, "forbidden", nil)
	})
	rec := post(t, serveRPC(s, deny), `{"id":"1","jsonrpc":"2.0","method":"ping","params":[]}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestMethodNameCollisionPanics(t *testing.T) {
	s := NewServer()
	s.Register("", &testMethods{})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	s.Register("", &testMethods{})
}
