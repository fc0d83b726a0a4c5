// Package openbistest runs an in-memory openBIS for tests: an application
// server with spaces, samples, sessions and rights, plus any number of data
// store servers with files and uploads.
//
// Both speak JSON-RPC on the same paths as a real installation, so a
// Facade pointed at Server.URL works unchanged:
//
//	srv := openbistest.NewServer(
//		openbistest.WithUser("alice", "secret"),
//		openbistest.WithDataStore("DSS1", openbistest.File{DataSet: "20240101-1", Path: "original/a.txt"}),
//	)
//	defer srv.Close()
//	f, _ := openbis.New(srv.URL)
package openbistest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/decycle"
	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/endpoint"
	"github.com/mnehpets/openbis/jsonrpc"
)

// Paths served. They match a default openBIS installation.
const (
	APIPath       = "/openbis/openbis/rmi-application-server-v3.json"
	DataStorePath = "/datastore_server/rmi-data-store-server-v3.json"
	UploadPath    = "/datastore_server/store_share_file_upload"
)

// Call is one JSON-RPC request received by the server.
type Call struct {
	// Endpoint is "AS" for the application server, or the data store code.
	Endpoint string
	Method   string
	Params   []any
}

// File is a file stored in a data store.
type File struct {
	DataSet   string
	Path      string
	Size      int64
	Directory bool
}

// Server is a running fake openBIS. All methods are safe for concurrent use.
type Server struct {
	// URL is the base URL, without the API path.
	URL string

	srv    *httptest.Server
	reg    *codec.Registry
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	users      map[string]string
	admins     map[string]bool
	anonymous  string
	tokenFunc  func(user string) string
	sessions   map[string]string
	serverInfo map[string]string
	spaces     []*space
	samples    []*sample
	deletions  []*deletion
	stores     []*store
	rights     map[string][]dto.Right
	calls      []Call
	seq        int
}

// Option configures a Server.
type Option func(*Server)

// WithUser adds a user who can log in with password.
func WithUser(user, password string) Option {
	return func(s *Server) { s.users[user] = password }
}

// WithAdmin adds an instance admin, who may also use loginAs.
func WithAdmin(user, password string) Option {
	return func(s *Server) {
		s.users[user] = password
		s.admins[user] = true
	}
}

// WithAnonymousUser enables loginAsAnonymousUser, logging in as user.
func WithAnonymousUser(user string) Option {
	return func(s *Server) { s.anonymous = user }
}

// WithDataStore adds a data store holding files. Stores are listed in the
// order they are added.
func WithDataStore(code string, files ...File) Option {
	return func(s *Server) {
		s.stores = append(s.stores, &store{
			code:    code,
			files:   append([]File(nil), files...),
			uploads: make(map[string][]File),
		})
	}
}

// WithTokenFunc replaces how session tokens are made for a user.
func WithTokenFunc(fn func(user string) string) Option {
	return func(s *Server) { s.tokenFunc = fn }
}

// WithServerInformation adds entries to the getServerInformation reply.
func WithServerInformation(key, value string) Option {
	return func(s *Server) { s.serverInfo[key] = value }
}

// WithLogger sets the logger of the JSON-RPC servers.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer starts a server. Without WithDataStore it has one data store,
// "DSS1", with no files.
func NewServer(opts ...Option) *Server {
	s := &Server{
		reg:      dto.NewRegistry(),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		users:    make(map[string]string),
		admins:   make(map[string]bool),
		sessions: make(map[string]string),
		serverInfo: map[string]string{
			"api-version":             "3.6",
			"project-samples-enabled": "true",
		},
		rights: make(map[string][]dto.Right),
	}
	s.tokenFunc = func(user string) string {
		return user + "-" + ulid.Make().String()
	}
	for _, o := range opts {
		o(s)
	}
	if len(s.stores) == 0 {
		WithDataStore("DSS1")(s)
	}

	mux := http.NewServeMux()
	as := s.rpcServer()
	as.Register("", &appServer{s: s})
	mux.Handle("POST "+APIPath, endpoint.Handler(as.Endpoint, s.recorder("AS")))
	for _, st := range s.stores {
		dss := s.rpcServer()
		dss.Register("", &dataStoreServer{s: s, code: st.code})
		mux.Handle("POST /"+st.code+DataStorePath, endpoint.Handler(dss.Endpoint, s.recorder(st.code)))
	}
	mux.Handle("POST /{store}"+UploadPath, endpoint.Handler(s.upload, s.requireSession()))

	s.srv = httptest.NewServer(mux)
	s.URL = s.srv.URL
	return s
}

func (s *Server) rpcServer() *jsonrpc.Server {
	return jsonrpc.NewServer(
		jsonrpc.WithParamDecoder(func(data []byte, v any) error { return codec.Unmarshal(s.reg, data, v) }),
		jsonrpc.WithResultEncoder(decycle.Encode),
		jsonrpc.WithServerLogger(s.logger),
	)
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Client returns an HTTP client for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// DataStoreURL returns the download URL of the data store with code.
func (s *Server) DataStoreURL(code string) string {
	return s.URL + "/" + code
}

// recorder notes every JSON-RPC request before it is served.
func (s *Server) recorder(name string) endpoint.Processor {
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return endpoint.Error(http.StatusBadRequest, "unreadable body", err)
		}
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if json.Unmarshal(body, &req) == nil {
			s.mu.Lock()
			s.calls = append(s.calls, Call{Endpoint: name, Method: req.Method, Params: req.Params})
			s.mu.Unlock()
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		return next(w, r)
	})
}

// Calls returns the requests received so far, oldest first.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests for method, oldest first.
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Expire ends a session as if it timed out.
func (s *Server) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// SetRights sets what users may do with the object whose id string is id.
func (s *Server) SetRights(id string, rights ...dto.Right) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rights[id] = rights
}

// FailDataStore makes every call to the data store fail with message.
// An empty message heals it.
func (s *Server) FailDataStore(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.store(code); st != nil {
		st.failure = message
	}
}

// Files returns the files of the data store with code.
func (s *Server) Files(code string) []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.store(code); st != nil {
		return append([]File(nil), st.files...)
	}
	return nil
}

// session returns the user of token. Callers hold s.mu.
func (s *Server) session(token string) (string, error) {
	if user, ok := s.sessions[token]; ok {
		return user, nil
	}
	return "", &jsonrpc.ServerError{
		Message: "Session token '" + token + "' is invalid: user is not logged in.",
		Data:    map[string]any{"exceptionTypeName": "ch.systemsx.cisd.common.exceptions.InvalidSessionException"},
	}
}

// nextID returns a fresh perm id in the openBIS date-counter form. Callers
// hold s.mu.
func (s *Server) nextID() string {
	s.seq++
	return s.now().UTC().Format("20060102150405000") + "-" + strconv.Itoa(s.seq)
}

func (s *Server) store(code string) *store {
	for _, st := range s.stores {
		if strings.EqualFold(st.code, code) {
			return st
		}
	}
	return nil
}

func invalidArgument(message string) error {
	return &jsonrpc.ServerError{
		Message: message,
		Data:    map[string]any{"exceptionTypeName": "ch.systemsx.cisd.common.exceptions.UserFailureException"},
	}
}
