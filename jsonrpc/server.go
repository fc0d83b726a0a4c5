package jsonrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mnehpets/openbis/endpoint"
)

// ParamDecoder decodes one JSON value into the value pointed to by v.
type ParamDecoder func(data []byte, v any) error

// ResultEncoder converts a method result before it is written as JSON.
type ResultEncoder func(v any) (any, error)

// rpcMethod holds reflection data for a registered RPC method.
type rpcMethod struct {
	receiver    reflect.Value
	method      reflect.Method
	paramType   reflect.Type
	paramNames  []string // JSON tag names for validation and named params
	paramFields []int    // Field indices for positional params unmarshaling
	methodName  string
}

func (s *Server) call(ctx context.Context, m *rpcMethod, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "jsonrpc panic", "method", m.methodName, "panic", r)
			result = nil
			err = NewError(CodeInternalError, "internal error")
		}
	}()

	args := make([]reflect.Value, 0, 3)
	args = append(args, m.receiver)
	args = append(args, reflect.ValueOf(ctx))

	if params == nil {
		params = json.RawMessage("null")
	}

	param := reflect.New(m.paramType)

	var paramList []json.RawMessage
	if err := json.Unmarshal(params, &paramList); err == nil {
		// Positional params: array elements map to struct fields by declaration order.
		// Trailing params may be omitted.
		if len(paramList) > len(m.paramFields) {
			return nil, NewError(CodeInvalidParams, "invalid number of params")
		}
		for i, rawElem := range paramList {
			field := param.Elem().Field(m.paramFields[i])
			if err := s.decode(rawElem, field.Addr().Interface()); err != nil {
				return nil, &ServerError{Code: CodeInvalidParams, Message: "invalid params: " + m.paramNames[i], Data: err.Error()}
			}
		}
	} else {
		// Named params: JSON object keys map to struct fields by json tags.
		var paramMap map[string]json.RawMessage
		if err := json.Unmarshal(params, &paramMap); err != nil {
			return nil, NewError(CodeInvalidParams, "invalid params")
		}
		for i, name := range m.paramNames {
			rawElem, ok := paramMap[name]
			if !ok {
				return nil, NewError(CodeInvalidParams, "missing param: "+name)
			}
			field := param.Elem().Field(m.paramFields[i])
			if err := s.decode(rawElem, field.Addr().Interface()); err != nil {
				return nil, &ServerError{Code: CodeInvalidParams, Message: "invalid params: " + name, Data: err.Error()}
			}
		}
	}
	args = append(args, param.Elem())

	results := m.method.Func.Call(args)

	retResult := results[0].Interface()
	if !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	if s.encodeResult != nil {
		return s.encodeResult(retResult)
	}
	return retResult, nil
}

// Server is a registry of JSON-RPC methods served over HTTP.
// Use endpoint.Handler(s.Endpoint, processors...) to create an http.Handler.
type Server struct {
	mu           sync.RWMutex
	methods      map[string]*rpcMethod
	decode       ParamDecoder
	encodeResult ResultEncoder
	logger       *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithParamDecoder replaces json.Unmarshal for decoding each parameter.
func WithParamDecoder(d ParamDecoder) ServerOption {
	return func(s *Server) { s.decode = d }
}

// WithResultEncoder converts every successful result before rendering.
func WithResultEncoder(e ResultEncoder) ServerOption {
	return func(s *Server) { s.encodeResult = e }
}

// WithServerLogger sets the logger used for recovered panics.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new JSON-RPC method registry.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		methods: make(map[string]*rpcMethod),
		decode:  json.Unmarshal,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds methods from a receiver struct to the server.
// The namespace prefixes all method names (e.g., "math" + "add" -> "math.add").
// Use empty string for no namespace (method names used directly).
// Only exported methods with valid signatures are registered.
func (s *Server) Register(namespace string, receiver any) {
	val := reflect.ValueOf(receiver)
	typ := val.Type()

	for i := 0; i < val.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}

		handler, methodName := parseMethod(val, method)
		if handler == nil {
			continue
		}

		name := methodName
		if namespace != "" {
			name = namespace + "." + methodName
		}

		s.mu.Lock()
		if _, exists := s.methods[name]; exists {
			s.mu.Unlock()
			panic("jsonrpc: method name collision: " + name)
		}
		s.methods[name] = handler
		s.mu.Unlock()
	}
}

// Methods returns the number of registered methods.
func (s *Server) Methods() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.methods)
}

// rpcParams captures the raw JSON-RPC request body.
// We defer parsing until inside the endpoint handler,
// as json-rpc requires different handling of json parsing
// errors than the default body parser.
type rpcParams struct {
	Body []byte `body:"" maxLength:""`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (s *Server) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	// JSON-RPC over HTTP requires Content-Type application/json.
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
	}

	return s.handleBody(r.Context(), params.Body)
}

// handleBody processes the JSON-RPC request body and returns a renderer.
func (s *Server) handleBody(ctx context.Context, body []byte) (endpoint.Renderer, error) {
	var reqs []json.RawMessage
	var single bool

	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			return &jsonrpcRenderer{err: NewError(CodeParseError, "parse error")}, nil
		}
	} else {
		reqs = []json.RawMessage{body}
		single = true
	}

	if len(reqs) == 0 {
		return &jsonrpcRenderer{err: NewError(CodeInvalidRequest, "invalid request")}, nil
	}

	responses := make([]response, 0, len(reqs))
	for _, rawReq := range reqs {
		var req request
		if err := json.Unmarshal(rawReq, &req); err != nil {
			responses = append(responses, response{
				JSONRPC: Version,
				Error:   NewError(CodeParseError, "parse error"),
			})
			continue
		}

		if req.JSONRPC != Version {
			responses = append(responses, response{
				JSONRPC: Version,
				Error:   NewError(CodeInvalidRequest, "invalid request"),
				ID:      req.ID,
			})
			continue
		}

		if req.Method == "" {
			responses = append(responses, response{
				JSONRPC: Version,
				Error:   NewError(CodeInvalidRequest, "method required"),
				ID:      req.ID,
			})
			continue
		}

		// Notification: no id means no response expected.
		if req.ID == nil {
			s.invokeMethod(ctx, req.Method, req.Params)
			continue
		}

		result, err := s.invokeMethod(ctx, req.Method, req.Params)
		resp := response{
			JSONRPC: Version,
			ID:      req.ID,
		}
		if err != nil {
			resp.Error = mapError(err)
		} else {
			resp.Result = result
		}
		responses = append(responses, resp)
	}

	// No responses means all requests were notifications.
	if len(responses) == 0 {
		return &endpoint.NoContentRenderer{}, nil
	}

	return &jsonrpcRenderer{responses: responses, single: single}, nil
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

// response always carries exactly one of result and error; a nil result is
// written as "result": null.
type response struct {
	JSONRPC string
	Result  any
	Error   *ServerError
	ID      any
}

func (r response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			ID      any          `json:"id"`
			JSONRPC string       `json:"jsonrpc"`
			Error   *ServerError `json:"error"`
		}{r.ID, r.JSONRPC, r.Error})
	}
	return json.Marshal(struct {
		ID      any    `json:"id"`
		JSONRPC string `json:"jsonrpc"`
		Result  any    `json:"result"`
	}{r.ID, r.JSONRPC, r.Result})
}

// jsonrpcRenderer renders JSON-RPC responses.
type jsonrpcRenderer struct {
	responses []response
	single    bool
	err       *ServerError
}

func (r *jsonrpcRenderer) Render(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	if r.err != nil {
		w.WriteHeader(http.StatusOK)
		return json.NewEncoder(w).Encode(response{
			JSONRPC: Version,
			Error:   r.err,
		})
	}

	w.WriteHeader(http.StatusOK)
	if r.single {
		return json.NewEncoder(w).Encode(r.responses[0])
	}
	return json.NewEncoder(w).Encode(r.responses)
}

// parseMethod extracts method signature information via reflection.
// Valid signature: func(ctx context.Context, params...) (result, error)
// Returns nil for invalid signatures.
func parseMethod(receiver reflect.Value, method reflect.Method) (*rpcMethod, string) {
	ft := method.Func.Type()

	if ft.NumIn() != 3 {
		return nil, ""
	}
	if ft.In(1) != reflect.TypeFor[context.Context]() {
		return nil, ""
	}
	if ft.NumOut() != 2 {
		return nil, ""
	}
	if ft.Out(1) != reflect.TypeFor[error]() {
		return nil, ""
	}

	paramType := ft.In(2)
	if paramType.Kind() != reflect.Struct {
		return nil, ""
	}

	rpc := &rpcMethod{
		receiver:   receiver,
		method:     method,
		paramType:  paramType,
		methodName: lowerFirst(method.Name),
	}

	for i := 0; i < paramType.NumField(); i++ {
		field := paramType.Field(i)
		if field.Name == "_" {
			if tag := field.Tag.Get("jsonrpc"); tag != "" {
				rpc.methodName = tag
			}
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			rpc.paramNames = append(rpc.paramNames, field.Name)
			rpc.paramFields = append(rpc.paramFields, i)
		} else {
			name := strings.Split(jsonTag, ",")[0]
			if name == "" || name == "-" {
				continue
			}
			rpc.paramNames = append(rpc.paramNames, name)
			rpc.paramFields = append(rpc.paramFields, i)
		}
	}

	return rpc, rpc.methodName
}

// lowerFirst maps Go method names onto openBIS style names:
// SearchSamples -> searchSamples.
func lowerFirst(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

func (s *Server) invokeMethod(ctx context.Context, name string, params json.RawMessage) (any, error) {
	s.mu.RLock()
	method, ok := s.methods[name]
	s.mu.RUnlock()

	if !ok {
		return nil, NewError(CodeMethodNotFound, "method not found: "+name)
	}

	return s.call(ctx, method, params)
}

// mapError converts any error to a JSON-RPC error.
// ServerError values preserve their code; other errors become InternalError.
func mapError(err error) *ServerError {
	if rpcErr, ok := err.(*ServerError); ok {
		return rpcErr
	}
	return &ServerError{
		Code:    CodeInternalError,
		Message: err.Error(),
	}
}
