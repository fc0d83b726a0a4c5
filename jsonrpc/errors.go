package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ServerError is the "error" member of a JSON-RPC response. Servers return
// it from methods to choose the code; clients receive it verbatim.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	// Fields holds the other members of a received error, and a code
	// that is not an integer.
	Fields map[string]json.RawMessage `json:"-"`
}

func (e *ServerError) Error() string {
	return e.Message
}

// UnmarshalJSON accepts any error object that carries a message, whatever
// the type of its code.
func (e *ServerError) UnmarshalJSON(b []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return err
	}
	if members == nil {
		return fmt.Errorf("jsonrpc: error member is %s, not an object", bytes.TrimSpace(b))
	}
	*e = ServerError{}
	if raw, ok := members["message"]; ok {
		if err := json.Unmarshal(raw, &e.Message); err != nil {
			e.Message = string(bytes.TrimSpace(raw))
		}
		delete(members, "message")
	}
	if raw, ok := members["code"]; ok {
		if code, err := strconv.Atoi(string(bytes.TrimSpace(raw))); err == nil {
			e.Code = code
			delete(members, "code")
		}
	}
	if raw, ok := members["data"]; ok {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&e.Data); err != nil {
			return err
		}
		delete(members, "data")
	}
	if len(members) > 0 {
		e.Fields = members
	}
	return nil
}

func NewError(code int, message string) *ServerError {
	return &ServerError{Code: code, Message: message}
}

// TransportError reports a call that produced no usable JSON-RPC response:
// the request could not be sent, the server answered with a non-2xx status,
// or the body was not a response envelope.
type TransportError struct {
	URL string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Body holds the start of an unexpected response body.
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	msg := "jsonrpc: transport: " + e.URL
	if e.Status != 0 {
		msg += fmt.Sprintf(": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
