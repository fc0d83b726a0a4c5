package codec

import "fmt"

// DecodeError reports a result that does not match its declared type.
type DecodeError struct {
	// Path locates the offending node, "$" being the result itself.
	Path string
	// Name is the declared or "@type" name involved, if any.
	Name   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("codec: decode %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
