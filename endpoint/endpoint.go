// Package endpoint serves HTTP requests in three steps: a chain of
// Processors sees the request first, then the request is decoded into a
// typed params struct (see Unmarshal) and handed to an EndpointFunc, and
// finally the Renderer returned by the EndpointFunc writes the response.
//
// An error from any step ends the request. An *EndpointError chooses the
// status and message; any other error is a 500.
//
// jsonrpc.Server plugs its Endpoint method into this chain, and the fake
// openBIS in openbistest serves its data store upload servlet with it.
package endpoint

import (
	"errors"
	"io"
	"net/http"
)

// EndpointError is an error with the HTTP status it should be reported with.
type EndpointError struct {
	Status int
	// Message is the response body. Empty means the status text.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		if msg = http.StatusText(e.Status); msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error returns an *EndpointError, or err itself when it already is one.
func Error(status int, message string, err error) error {
	return newEndpointError(status, message, err)
}

func newEndpointError(status int, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Status: status, Message: message, Cause: err}
}

// Renderer writes a response: status, headers and body. An error means the
// response could not be written. A Renderer that is also an io.Closer is
// closed after rendering.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Processor runs before decoding. It passes the request on by calling next,
// possibly with a replaced request, or stops it by returning an error. It
// may set response headers but must not write the status or body.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc handles a request whose params have been decoded. It returns
// the Renderer for the response instead of writing it.
type EndpointFunc[P any] func(w http.ResponseWriter, r *http.Request, params P) (Renderer, error)

// EndpointHandler is an http.Handler running Processors, then Endpoint.
type EndpointHandler[P any] struct {
	Endpoint   EndpointFunc[P]
	Processors []Processor
}

// Handler returns an EndpointHandler for fn. P is inferred from fn and must
// be a struct type.
func Handler[P any](fn EndpointFunc[P], processors ...Processor) *EndpointHandler[P] {
	return &EndpointHandler[P]{Endpoint: fn, Processors: processors}
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		http.Error(w, "endpoint: nil EndpointFunc", http.StatusInternalServerError)
		return
	}
	if err := h.next(0)(w, r); err != nil {
		writeError(w, err)
	}
}

// next returns the step after processor i-1: processor i, or the endpoint
// once every processor has passed the request on.
func (h *EndpointHandler[P]) next(i int) func(w http.ResponseWriter, r *http.Request) error {
	if i < len(h.Processors) {
		return func(w http.ResponseWriter, r *http.Request) error {
			p := h.Processors[i]
			if p == nil {
				return errors.New("endpoint: nil processor")
			}
			return p.Process(w, r, h.next(i+1))
		}
	}
	return h.serve
}

func (h *EndpointHandler[P]) serve(w http.ResponseWriter, r *http.Request) error {
	var params P
	if err := Unmarshal(r, &params); err != nil {
		return err
	}
	renderer, err := h.Endpoint(w, r, params)
	if err != nil {
		return err
	}
	if renderer == nil {
		return errors.New("endpoint: nil renderer")
	}
	if c, ok := renderer.(io.Closer); ok {
		defer c.Close()
	}
	return renderer.Render(w, r)
}

func writeError(w http.ResponseWriter, err error) {
	var ee *EndpointError
	if !errors.As(err, &ee) || ee == nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status := ee.Status
	if status < 100 || status > 999 {
		status = http.StatusInternalServerError
	}
	msg := ee.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	http.Error(w, msg, status)
}
