package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mnehpets/openbis/auth"
	"github.com/mnehpets/openbis/jsonrpc"
	"github.com/mnehpets/openbis/openbis"
	"github.com/mnehpets/openbis/sessionstore"
)

const connTimeout = 10 * time.Second

var (
	errNoURL       = errors.New("no server URL; set --url, url in the config file or OPENBIS_URL")
	errNotLoggedIn = errors.New("not logged in; run openbis login")
)

// facade builds a logged-out facade for the configured server.
func (a *app) facade(ctx context.Context) (*openbis.Facade, error) {
	if a.cfg.URL == "" {
		return nil, errNoURL
	}
	hc := &http.Client{
		Transport: jsonrpc.NewPooledTransport(connTimeout),
		Timeout:   a.cfg.Timeout,
	}
	if a.cfg.Auth.Enabled() {
		var err error
		if hc, err = auth.HTTPClient(ctx, a.cfg.Auth, hc); err != nil {
			return nil, err
		}
	}

	topts := []jsonrpc.HTTPOption{
		jsonrpc.WithHTTPClient(hc),
		jsonrpc.WithTransportLogger(a.log),
	}
	if t := a.cfg.Transport; t.RateLimit > 0 {
		topts = append(topts, jsonrpc.WithRateLimit(t.RateLimit, t.Burst))
	}
	if b := a.cfg.Transport.Breaker; b.MaxFailures > 0 {
		topts = append(topts, jsonrpc.WithBreaker(b))
	}
	return openbis.New(a.cfg.URL,
		openbis.WithHTTPClient(hc),
		openbis.WithTransport(jsonrpc.NewHTTPTransport(topts...)),
		openbis.WithLogger(a.log),
	)
}

// store opens the session cache. The key comes from the configured
// passphrase, or from a key file when there is none.
func (a *app) store() (*sessionstore.Store, error) {
	dir := a.cfg.Session.Dir
	var key []byte
	if pass := a.cfg.Session.Passphrase; pass != "" {
		salt, err := sessionstore.Salt(dir)
		if err != nil {
			return nil, err
		}
		key = sessionstore.KeyFromPassphrase(pass, salt)
	} else {
		var err error
		if key, err = sessionstore.KeyFile(dir); err != nil {
			return nil, err
		}
	}
	sealer, err := sessionstore.NewSealer(a.cfg.Session.KeyID, map[string][]byte{a.cfg.Session.KeyID: key}, nil)
	if err != nil {
		return nil, err
	}
	return sessionstore.New(dir, sealer)
}

// resume returns a facade carrying the saved session.
func (a *app) resume(ctx context.Context) (*openbis.Facade, *sessionstore.Store, *sessionstore.Record, error) {
	f, err := a.facade(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := a.store()
	if err != nil {
		return nil, nil, nil, err
	}
	rec, err := st.Load(a.cfg.URL)
	switch {
	case errors.Is(err, sessionstore.ErrNotFound), errors.Is(err, sessionstore.ErrInvalid):
		a.log.Debug("no usable saved session", "url", a.cfg.URL, "error", err)
		return nil, nil, nil, errNotLoggedIn
	case err != nil:
		return nil, nil, nil, err
	}
	f.UseSession(rec.Token, rec.User)
	return f, st, rec, nil
}

func password() (string, bool) {
	return os.LookupEnv("OPENBIS_PASSWORD")
}
