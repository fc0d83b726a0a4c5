// Package auth obtains OAuth2 access tokens for openBIS servers that sit
// behind an authenticating reverse proxy.
//
// The proxy expects a bearer token on every request; openBIS itself still
// wants its own session token inside the JSON-RPC parameters. HTTPClient
// returns a client that adds the bearer token, to be passed to
// openbis.WithHTTPClient.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotConfigured is returned when a Config names neither an issuer nor a
// token URL.
var ErrNotConfigured = errors.New("auth: no issuer or token url configured")

// Config describes a client-credentials grant. When Issuer is set the token
// endpoint is found through OIDC discovery and TokenURL is ignored.
type Config struct {
	Issuer       string   `mapstructure:"issuer" yaml:"issuer" toml:"issuer"`
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url" toml:"token_url"`
	ClientID     string   `mapstructure:"client_id" yaml:"client_id" toml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret" toml:"client_secret"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes" toml:"scopes"`

	// Audience is sent as the "audience" parameter when non-empty.
	Audience string `mapstructure:"audience" yaml:"audience" toml:"audience"`
}

// Enabled reports whether c names a token endpoint.
func (c Config) Enabled() bool {
	return c.Issuer != "" || c.TokenURL != ""
}

// Endpoint resolves the token endpoint of c. Discovery requests use the
// *http.Client stored in ctx under oauth2.HTTPClient, if any.
func Endpoint(ctx context.Context, c Config) (oauth2.Endpoint, error) {
	if c.Issuer == "" {
		if c.TokenURL == "" {
			return oauth2.Endpoint{}, ErrNotConfigured
		}
		return oauth2.Endpoint{TokenURL: c.TokenURL}, nil
	}
	if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok {
		ctx = oidc.ClientContext(ctx, hc)
	}
	provider, err := oidc.NewProvider(ctx, c.Issuer)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to query provider %q: %w", c.Issuer, err)
	}
	ep := provider.Endpoint()
	if ep.TokenURL == "" {
		return oauth2.Endpoint{}, fmt.Errorf("provider %q publishes no token endpoint", c.Issuer)
	}
	return ep, nil
}

// NewTokenSource returns a caching token source for c. Tokens are fetched
// with the client stored in ctx under oauth2.HTTPClient, so ctx must outlive
// the source.
func NewTokenSource(ctx context.Context, c Config) (oauth2.TokenSource, error) {
	ep, err := Endpoint(ctx, c)
	if err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     ep.TokenURL,
		Scopes:       c.Scopes,
		AuthStyle:    ep.AuthStyle,
	}
	if c.Audience != "" {
		cc.EndpointParams = map[string][]string{"audience": {c.Audience}}
	}
	return cc.TokenSource(ctx), nil
}

// HTTPClient wraps base so that every request carries a bearer token from
// c. A nil base means http.DefaultClient. Tokens are fetched with base too.
func HTTPClient(ctx context.Context, c Config, base *http.Client) (*http.Client, error) {
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts, err := NewTokenSource(ctx, c)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		Timeout:   base.Timeout,
		Jar:       base.Jar,
	}, nil
}
