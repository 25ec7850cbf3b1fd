// Error types raised while fetching and parsing the event stream
package eventsource

import (
	"errors"
	"fmt"
)

// ErrInvalidUTF8 is wrapped by errors reported when the byte stream is not
// valid UTF-8. The failure is not recoverable for the current stream.
var ErrInvalidUTF8 = errors.New("event source: invalid UTF-8 in stream")

// ErrStreamEnded reports that the underlying byte source terminated
var ErrStreamEnded = errors.New("event source: stream ended")

// InvalidStatusCodeError is returned by NewEventSource when the response
// status is not the single accepted success code. It is raised before any
// byte of the body has been read.
type InvalidStatusCodeError struct {
	StatusCode int
	Status     string
}

func (e *InvalidStatusCodeError) Error() string {
	return fmt.Sprintf("event source: invalid status code %d", e.StatusCode)
}

// InvalidContentTypeError is returned by NewEventSource when the response
// content type is missing or not a recognized streaming media type.
type InvalidContentTypeError struct {
	ContentType string
}

func (e *InvalidContentTypeError) Error() string {
	if e.ContentType == "" {
		return "event source: missing content type"
	}
	return fmt.Sprintf("event source: invalid content type %q", e.ContentType)
}

// TransportError wraps a failure of the underlying byte source
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("event source: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
