package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"
)

type fakeIssuer struct {
	srv    *httptest.Server
	tokens atomic.Int32
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	f := &fakeIssuer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 f.srv.URL,
			"authorization_endpoint": f.srv.URL + "/auth",
			"token_endpoint":         f.srv.URL + "/token",
			"jwks_uri":               f.srv.URL + "/keys",
		})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "cli" || secret != "s3cret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + r.PostForm.Get("scope") + "-" + r.PostForm.Get("audience"),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /api", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("Authorization")))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func get(t *testing.T, c *http.Client, url string) string {
	t.Helper()
	resp, err := c.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf [256]byte
	n, _ := resp.Body.Read(buf[:])
	return string(buf[:n])
}

func TestHTTPClient_TokenURL(t *testing.T) {
	f := newFakeIssuer(t)
	cfg := Config{
		TokenURL:     f.srv.URL + "/token",
		ClientID:     "cli",
		ClientSecret: "s3cret",
		Scopes:       []string{"openbis"},
	}

	c, err := HTTPClient(context.Background(), cfg, f.srv.Client())
	if err != nil {
		t.Fatalf("HTTPClient: %v", err)
	}
	for range 3 {
		if got := get(t, c, f.srv.URL+"/api"); got != "Bearer tok-openbis-" {
			t.Fatalf("Authorization: got %q", got)
		}
	}
	if n := f.tokens.Load(); n != 1 {
		t.Errorf("expected one token request, got %d", n)
	}
}

func TestHTTPClient_Discovery(t *testing.T) {
	f := newFakeIssuer(t)
	cfg := Config{
		Issuer:       f.srv.URL,
		TokenURL:     "http://ignored.invalid/token",
		ClientID:     "cli",
		ClientSecret: "s3cret",
		Audience:     "lab",
	}

	ep, err := Endpoint(context.WithValue(context.Background(), oauth2.HTTPClient, f.srv.Client()), cfg)
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if ep.TokenURL != f.srv.URL+"/token" {
		t.Errorf("TokenURL: got %q", ep.TokenURL)
	}

	c, err := HTTPClient(context.Background(), cfg, f.srv.Client())
	if err != nil {
		t.Fatalf("HTTPClient: %v", err)
	}
	if got := get(t, c, f.srv.URL+"/api"); got != "Bearer tok--lab" {
		t.Fatalf("Authorization: got %q", got)
	}
}

func TestHTTPClient_BadCredentials(t *testing.T) {
	f := newFakeIssuer(t)
	cfg := Config{TokenURL: f.srv.URL + "/token", ClientID: "cli", ClientSecret: "wrong"}

	c, err := HTTPClient(context.Background(), cfg, f.srv.Client())
	if err != nil {
		t.Fatalf("HTTPClient: %v", err)
	}
	if _, err := c.Post(f.srv.URL+"/api", "application/json", nil); err == nil {
		t.Fatal("expected token error")
	}
}

func TestEndpoint_Errors(t *testing.T) {
	if _, err := Endpoint(context.Background(), Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty config: got %v want ErrNotConfigured", err)
	}
	if (Config{}).Enabled() {
		t.Error("empty config reported enabled")
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := Endpoint(context.Background(), Config{Issuer: srv.URL}); err == nil {
		t.Error("expected discovery error")
	}
}
