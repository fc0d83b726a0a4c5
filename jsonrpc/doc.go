// Package jsonrpc implements the JSON-RPC 2.0 dialect spoken by openBIS
// application and data store servers, as a client and as a test server.
//
// # Client
//
// A Client posts one request per call and decodes the result through a
// codec.Decoder:
//
//	c := jsonrpc.NewClient(url, codec.NewDecoder(reg))
//	v, err := c.Call(ctx, "searchSpaces", []any{token, criteria, fetch},
//	    codec.Scalar("SearchResult"))
//
// Every request carries "id":"1" and "jsonrpc":"2.0". Each parameter is
// encoded by its own decycle.Encoder, so cyclic object graphs are sent with
// "$ref" markers. Errors are one of *TransportError, *ServerError or
// *codec.DecodeError; calls are never retried.
//
// Go starts a call asynchronously and reports completion on a channel, once.
//
// # Server
//
// A Server maps exported methods of a receiver onto lower-camel method names
// and serves them via the endpoint package:
//
//	s := jsonrpc.NewServer()
//	s.Register("", &Methods{})
//	http.Handle("/rpc", endpoint.Handler(s.Endpoint))
//
// Methods have this signature:
//
//	func(ctx context.Context, params <StructType>) (result, error)
//
// The params struct lists the positional parameters in field order; trailing
// parameters may be omitted. Named (object) parameters match json tags.
// Use a `_` field with a `jsonrpc` tag to override the method name:
//
//	type GetInfoParams struct {
//	    _ struct{} `jsonrpc:"getServerInformation"`
//	    Token string `json:"sessionToken"`
//	}
//
// Return a *ServerError to control the error code and data; any other error
// is reported as CodeInternalError with its message.
//
// Processors passed to endpoint.Handler run before the method and fail with
// plain HTTP errors, not JSON-RPC errors.
package jsonrpc
