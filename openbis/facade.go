// Package openbis is a client for the openBIS v3 application server and its
// data store servers.
//
// A Facade holds one session and exposes one method per server operation:
//
//	f, err := openbis.New("https://openbis.example.org")
//	if _, err := f.Login(ctx, "admin", password); err != nil { ... }
//	res, err := f.SearchSamples(ctx, dto.SampleSearch().WithSpace("LAB"),
//	    dto.SampleFetch().With("parents", "properties"))
//
// Every call except the logins sends the session token as its first
// parameter. The token is read once when the call starts, so a concurrent
// Login or Logout never changes a call already in flight. Calls made while
// logged out send a null token and fail on the server.
package openbis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/jsonrpc"
)

// DefaultAPIPath is the application server endpoint below the server URL.
const DefaultAPIPath = "/openbis/openbis/rmi-application-server-v3.json"

const defaultConnTimeout = 10 * time.Second

// Session is the state of a successful login. It is never modified; login
// and logout replace it.
type Session struct {
	Token string
	User  string
}

// Facade is a session-bound application server client. It is safe for
// concurrent use.
type Facade struct {
	client  *jsonrpc.Client
	http    *http.Client
	logger  *slog.Logger
	session atomic.Pointer[Session]
}

type options struct {
	apiPath    string
	registry   *codec.Registry
	logger     *slog.Logger
	httpClient *http.Client
	transport  jsonrpc.Transport
	clientOpts []jsonrpc.ClientOption
}

// Option configures a Facade.
type Option func(*options)

// WithAPIPath replaces DefaultAPIPath.
func WithAPIPath(path string) Option {
	return func(o *options) { o.apiPath = path }
}

// WithRegistry decodes results against reg instead of dto.NewRegistry().
func WithRegistry(reg *codec.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithLogger sets the logger of the facade and its RPC clients.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sends requests and uploads with c. Unless WithTransport is
// also given, calls go through a plain HTTPTransport over c.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTransport sets the transport shared by the application server and
// data store clients.
func WithTransport(t jsonrpc.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithClientOptions passes extra options to the underlying jsonrpc.Client.
func WithClientOptions(opts ...jsonrpc.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New returns a logged-out Facade for the server at serverURL. A URL whose
// path already ends in ".json" is used as the endpoint unchanged.
func New(serverURL string, opts ...Option) (*Facade, error) {
	o := options{apiPath: DefaultAPIPath}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = dto.NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	endpoint, err := EndpointURL(serverURL, o.apiPath)
	if err != nil {
		return nil, err
	}

	copts := []jsonrpc.ClientOption{
		jsonrpc.WithLogger(o.logger),
		jsonrpc.WithRedactedMethods("login", "loginAs"),
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Transport: jsonrpc.NewPooledTransport(defaultConnTimeout)}
	}
	if o.transport == nil {
		o.transport = jsonrpc.NewHTTPTransport(jsonrpc.WithHTTPClient(o.httpClient))
	}
	copts = append(copts, jsonrpc.WithTransport(o.transport))
	copts = append(copts, o.clientOpts...)

	return &Facade{
		client: jsonrpc.NewClient(endpoint, codec.NewDecoder(o.registry), copts...),
		http:   o.httpClient,
		logger: o.logger,
	}, nil
}

// EndpointURL joins apiPath to serverURL unless serverURL already names a
// ".json" endpoint.
func EndpointURL(serverURL, apiPath string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("openbis: server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("openbis: server url %q: scheme and host required", serverURL)
	}
	if strings.HasSuffix(u.Path, ".json") {
		return u.String(), nil
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(apiPath, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// URL returns the application server endpoint.
func (f *Facade) URL() string {
	return f.client.URL()
}

// Client returns the underlying JSON-RPC client.
func (f *Facade) Client() *jsonrpc.Client {
	return f.client
}

// Session returns the current session, or nil when logged out.
func (f *Facade) Session() *Session {
	return f.session.Load()
}

// SessionToken returns the current token, or "" when logged out.
func (f *Facade) SessionToken() string {
	if s := f.session.Load(); s != nil {
		return s.Token
	}
	return ""
}

// UseSession adopts a token obtained elsewhere, for example from a token
// cache. The token is not checked; see IsSessionActive.
func (f *Facade) UseSession(token, user string) {
	if token == "" {
		f.session.Store(nil)
		return
	}
	f.session.Store(&Session{Token: token, User: user})
}

// token is the first parameter of authenticated calls: the current token,
// or nil to send JSON null.
func (f *Facade) token() any {
	if s := f.session.Load(); s != nil {
		return s.Token
	}
	return nil
}

// call performs one call on the application server and asserts the decoded
// result to T.
func call[T any](ctx context.Context, f *Facade, method string, rt codec.ReturnType, params ...any) (T, error) {
	return invoke[T](ctx, f.client, method, rt, params...)
}

func invoke[T any](ctx context.Context, c *jsonrpc.Client, method string, rt codec.ReturnType, params ...any) (T, error) {
	var zero T
	if params == nil {
		params = []any{}
	}
	v, err := c.Call(ctx, method, params, rt)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &codec.DecodeError{Path: "$", Name: rt.String(), Reason: fmt.Sprintf("decoded %T, want %T", v, zero)}
	}
	return t, nil
}

// authed is call with the session token prepended.
func authed[T any](ctx context.Context, f *Facade, method string, rt codec.ReturnType, params ...any) (T, error) {
	return call[T](ctx, f, method, rt, append([]any{f.token()}, params...)...)
}

// Login opens a session for user and stores it.
func (f *Facade) Login(ctx context.Context, user, password string) (string, error) {
	token, err := call[string](ctx, f, "login", codec.Scalar(codec.String), user, password)
	if err != nil {
		return "", err
	}
	return f.storeSession(ctx, token, user)
}

// LoginAs opens a session for asUser, authenticating as user, who must be
// an instance admin.
func (f *Facade) LoginAs(ctx context.Context, user, password, asUser string) (string, error) {
	token, err := call[string](ctx, f, "loginAs", codec.Scalar(codec.String), user, password, asUser)
	if err != nil {
		return "", err
	}
	return f.storeSession(ctx, token, asUser)
}

// LoginAsAnonymousUser opens a session for the server's anonymous user, if
// one is configured.
func (f *Facade) LoginAsAnonymousUser(ctx context.Context) (string, error) {
	token, err := call[string](ctx, f, "loginAsAnonymousUser", codec.Scalar(codec.String))
	if err != nil {
		return "", err
	}
	return f.storeSession(ctx, token, "")
}

// storeSession checks that token looks like a session of user: openBIS
// tokens start with the user id. This only catches misbehaving servers.
func (f *Facade) storeSession(ctx context.Context, token, user string) (string, error) {
	if token == "" {
		return "", &LoginError{User: user, Reason: "no session token returned"}
	}
	if user != "" && !strings.Contains(token, user) {
		return "", &LoginError{User: user, Reason: "session token does not belong to the user"}
	}
	f.session.Store(&Session{Token: token, User: user})
	f.logger.InfoContext(ctx, "openbis login", "user", user, "url", f.client.URL())
	return token, nil
}

// Logout ends the session on the server and forgets it. On failure the
// session is kept.
func (f *Facade) Logout(ctx context.Context) error {
	s := f.session.Load()
	var token any
	if s != nil {
		token = s.Token
	}
	if _, err := call[any](ctx, f, "logout", codec.Scalar(codec.Void), token); err != nil {
		return err
	}
	f.session.CompareAndSwap(s, nil)
	f.logger.InfoContext(ctx, "openbis logout", "url", f.client.URL())
	return nil
}

// IsSessionActive asks the server whether the current session is still
// valid. It reports false without a call when logged out.
func (f *Facade) IsSessionActive(ctx context.Context) (bool, error) {
	if f.session.Load() == nil {
		return false, nil
	}
	return authed[bool](ctx, f, "isSessionActive", codec.Scalar(codec.Boolean))
}

func (f *Facade) GetSessionInformation(ctx context.Context) (*dto.SessionInformation, error) {
	return authed[*dto.SessionInformation](ctx, f, "getSessionInformation", codec.Scalar("SessionInformation"))
}

// GetServerInformation returns server settings such as "api-version" and
// "project-samples-enabled".
func (f *Facade) GetServerInformation(ctx context.Context) (map[string]string, error) {
	return authed[map[string]string](ctx, f, "getServerInformation",
		codec.MapOf(codec.Scalar(codec.String), codec.Scalar(codec.String)))
}

// CreatePermIDStrings reserves count perm ids.
func (f *Facade) CreatePermIDStrings(ctx context.Context, count int) ([]string, error) {
	return authed[[]string](ctx, f, "createPermIdStrings", codec.ListOf(codec.Scalar(codec.String)), count)
}

// CreateCodes reserves count codes with prefix for entities of kind.
func (f *Facade) CreateCodes(ctx context.Context, prefix string, kind dto.EntityKind, count int) ([]string, error) {
	return authed[[]string](ctx, f, "createCodes", codec.ListOf(codec.Scalar(codec.String)), prefix, kind, count)
}

// GetRights returns, per id string, what the session user may do.
func (f *Facade) GetRights(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Rights, error) {
	if fo == nil {
		fo = dto.RightsFetch()
	}
	return authed[map[string]*dto.Rights](ctx, f, "getRights",
		codec.MapOf(codec.Scalar("IObjectId"), codec.Scalar("Rights")), ids, fo)
}

// ExecuteOperations runs several operations in one transaction. Nil options
// run them synchronously.
func (f *Facade) ExecuteOperations(ctx context.Context, ops []*dto.Operation, opts *dto.OperationExecutionOptions) (*dto.OperationExecutionResults, error) {
	if opts == nil {
		opts = dto.SynchronousExecution()
	}
	return authed[*dto.OperationExecutionResults](ctx, f, "executeOperations",
		codec.Scalar("OperationExecutionResults"), ops, opts)
}

// SearchGlobally runs a full text search over all entity kinds.
func (f *Facade) SearchGlobally(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.GlobalSearchObject], error) {
	if fo == nil {
		fo = dto.GlobalSearchFetch()
	}
	return authed[*dto.SearchResult[*dto.GlobalSearchObject]](ctx, f, "searchGlobally",
		codec.Scalar("SearchResult[GlobalSearchObject]"), c, fo)
}

func (f *Facade) SearchCustomASServices(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.CustomASService], error) {
	if fo == nil {
		fo = dto.CustomASServiceFetch()
	}
	return authed[*dto.SearchResult[*dto.CustomASService]](ctx, f, "searchCustomASServices",
		codec.Scalar("SearchResult[CustomASService]"), c, fo)
}

// ExecuteCustomASService runs a custom service. Its result has no declared
// type and is returned as generic JSON.
func (f *Facade) ExecuteCustomASService(ctx context.Context, code string, opts *dto.CustomASServiceExecutionOptions) (any, error) {
	if opts == nil {
		opts = &dto.CustomASServiceExecutionOptions{}
	}
	return authed[any](ctx, f, "executeCustomASService", codec.Opaque(), dto.NewCustomASServiceCode(code), opts)
}

// Call invokes method with the session token prepended and decodes the
// result with rt.
func (f *Facade) Call(ctx context.Context, method string, rt codec.ReturnType, params ...any) (any, error) {
	return authed[any](ctx, f, method, rt, params...)
}

// CallOpaque invokes a method without a declared result type.
func (f *Facade) CallOpaque(ctx context.Context, method string, params ...any) (any, error) {
	return authed[any](ctx, f, method, codec.Opaque(), params...)
}
