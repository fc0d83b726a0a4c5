package openbis_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/jsonrpc"
	"github.com/mnehpets/openbis/openbis"
	"github.com/mnehpets/openbis/openbistest"
)

func newFacade(t *testing.T, srv *openbistest.Server) *openbis.Facade {
	t.Helper()
	f, err := openbis.New(srv.URL, openbis.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return f
}

func loggedIn(t *testing.T, opts ...openbistest.Option) (*openbistest.Server, *openbis.Facade) {
	t.Helper()
	srv := openbistest.NewServer(append([]openbistest.Option{openbistest.WithUser("alice", "secret")}, opts...)...)
	t.Cleanup(srv.Close)
	f := newFacade(t, srv)
	_, err := f.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	return srv, f
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://lab.example.org", "https://lab.example.org/openbis/openbis/rmi-application-server-v3.json"},
		{"https://lab.example.org/", "https://lab.example.org/openbis/openbis/rmi-application-server-v3.json"},
		{"https://lab.example.org/prefix?x=1", "https://lab.example.org/prefix/openbis/openbis/rmi-application-server-v3.json"},
		{"http://localhost:8888/custom/api.json", "http://localhost:8888/custom/api.json"},
	}
	for _, tc := range cases {
		got, err := openbis.EndpointURL(tc.in, openbis.DefaultAPIPath)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := openbis.EndpointURL("lab.example.org", openbis.DefaultAPIPath)
	assert.Error(t, err)
}

func TestLoginStoresSession(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()

	s := f.Session()
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.User)
	assert.Contains(t, f.SessionToken(), "alice")

	active, err := f.IsSessionActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)

	info, err := f.GetSessionInformation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserName)
	assert.Same(t, info.Person, info.CreatorPerson)

	server, err := f.GetServerInformation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.6", server["api-version"])

	// Credentials are positional and the token is never sent to login.
	calls := srv.CallsTo("login")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"alice", "secret"}, calls[0].Params)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		srv := openbistest.NewServer(openbistest.WithUser("alice", "secret"))
		defer srv.Close()
		f := newFacade(t, srv)

		_, err := f.Login(ctx, "alice", "nope")
		var le *openbis.LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "alice", le.User)
		assert.Nil(t, f.Session())
	})

	t.Run("token of another user", func(t *testing.T) {
		srv := openbistest.NewServer(
			openbistest.WithUser("alice", "secret"),
			openbistest.WithTokenFunc(func(string) string { return "mallory-1" }),
		)
		defer srv.Close()
		f := newFacade(t, srv)

		_, err := f.Login(ctx, "alice", "secret")
		var le *openbis.LoginError
		require.ErrorAs(t, err, &le)
		assert.Empty(t, f.SessionToken())
	})

	t.Run("loginAs needs an admin", func(t *testing.T) {
		srv := openbistest.NewServer(openbistest.WithUser("alice", "secret"), openbistest.WithUser("bob", "pw"))
		defer srv.Close()
		f := newFacade(t, srv)

		_, err := f.LoginAs(ctx, "alice", "secret", "bob")
		var se *jsonrpc.ServerError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Message, "not an instance admin")
	})
}

func TestLoginAsAndAnonymous(t *testing.T) {
	ctx := context.Background()
	srv := openbistest.NewServer(
		openbistest.WithAdmin("admin", "root"),
		openbistest.WithUser("bob", "pw"),
		openbistest.WithAnonymousUser("guest"),
	)
	defer srv.Close()
	f := newFacade(t, srv)

	token, err := f.LoginAs(ctx, "admin", "root", "bob")
	require.NoError(t, err)
	assert.Contains(t, token, "bob")
	assert.Equal(t, "bob", f.Session().User)

	token, err = f.LoginAsAnonymousUser(ctx)
	require.NoError(t, err)
	assert.Contains(t, token, "guest")
	assert.Equal(t, "", f.Session().User)
}

func TestLogoutClearsSession(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()
	token := f.SessionToken()

	require.NoError(t, f.Logout(ctx))
	assert.Nil(t, f.Session())
	assert.Equal(t, 0, srv.Sessions())

	logouts := srv.CallsTo("logout")
	require.Len(t, logouts, 1)
	assert.Equal(t, []any{token}, logouts[0].Params)

	active, err := f.IsSessionActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, srv.CallsTo("isSessionActive"))

	_, err = f.SearchSpaces(ctx, dto.SpaceSearch(), nil)
	var se *jsonrpc.ServerError
	require.ErrorAs(t, err, &se)
	searches := srv.CallsTo("searchSpaces")
	require.Len(t, searches, 1)
	assert.Nil(t, searches[0].Params[0])
}

func TestExpiredSessionReportsServerError(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()
	srv.Expire(f.SessionToken())

	active, err := f.IsSessionActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.GetSessionInformation(ctx)
	var se *jsonrpc.ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "is invalid")
	// The facade keeps the token; only Logout or Login replace it.
	assert.NotEmpty(t, f.SessionToken())
}

func TestUseSession(t *testing.T) {
	srv, f := loggedIn(t)
	other := newFacade(t, srv)

	other.UseSession(f.SessionToken(), "alice")
	info, err := other.GetSessionInformation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserName)

	other.UseSession("", "")
	assert.Nil(t, other.Session())
}

func TestConcurrentCallsShareSession(t *testing.T) {
	srv := openbistest.NewServer(openbistest.WithUser("alice", "secret"))
	defer srv.Close()
	f := newFacade(t, srv)
	ctx := context.Background()
	_, err := f.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	srv.AddSpace("LAB")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.SearchSpaces(ctx, dto.SpaceSearch().WithCode("LAB"), nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, srv.CallsTo("searchSpaces"), 8)
}

func TestCallsUseRecordedTransport(t *testing.T) {
	var bodies []map[string]any
	transport := jsonrpc.TransportFunc(func(ctx context.Context, url string, body []byte) ([]byte, error) {
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		bodies = append(bodies, req)
		switch req["method"] {
		case "login":
			return []byte(`{"jsonrpc":"2.0","id":"1","result":"alice-42"}`), nil
		case "createCodes":
			return []byte(`{"jsonrpc":"2.0","id":"1","result":["S1","S2"]}`), nil
		}
		return nil, errors.New("unexpected call")
	})
	f, err := openbis.New("https://lab.example.org", openbis.WithTransport(transport))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	codes, err := f.CreateCodes(ctx, "S", dto.KindSample, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, codes)

	require.Len(t, bodies, 2)
	assert.Equal(t, "2.0", bodies[1]["jsonrpc"])
	assert.Equal(t, []any{"alice-42", "S", "SAMPLE", float64(2)}, bodies[1]["params"])

	_, err = f.GetRights(ctx, nil, nil)
	var te *jsonrpc.TransportError
	assert.ErrorAs(t, err, &te)
}
