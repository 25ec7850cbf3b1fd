// Shared provider plumbing: an event-source-backed ChatStream
package llm

import (
	"errors"

	"github.com/durablestream/go-llm/pkg/eventsource"
)

// EventDecoder maps one transport message event into zero or more domain
// stream events. Implementations are provider-dialect specific; returning
// an empty batch suppresses the frame (degenerate deltas never reach the
// caller).
type EventDecoder func(ev *eventsource.MessageEvent) ([]StreamEvent, error)

var streamDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// decodedStream pulls message events from an EventSource and runs them
// through a protocol decoder. A transport or decode failure terminates the
// stream with an Error event; it is never skipped or retried.
type decodedStream struct {
	source *eventsource.EventSource
	decode EventDecoder

	failure   *Error
	delivered bool
	finished  bool
}

// NewDecodedStream builds a live ChatStream from a validated event source
// and a protocol decoder.
func NewDecodedStream(source *eventsource.EventSource, decode EventDecoder) ChatStream {
	return &decodedStream{source: source, decode: decode}
}

// NewFailedStream builds a ChatStream that delivers a single Error event.
// Providers use it for request-level failures so streaming callers always
// observe a uniform shape.
func NewFailedStream(failure *Error) ChatStream {
	return &decodedStream{failure: failure}
}

func (s *decodedStream) GetNext() ([]StreamEvent, bool) {
	if s.failure != nil {
		if s.delivered {
			return nil, true
		}
		s.delivered = true
		return []StreamEvent{NewErrorEvent(s.failure)}, true
	}
	if s.finished {
		return nil, true
	}

	var events []StreamEvent
	for {
		state, ev, err := s.source.PollNext()
		if state == eventsource.Pending {
			if len(events) > 0 {
				return events, true
			}
			return nil, false
		}
		if err != nil {
			return append(events, NewErrorEvent(streamError(err))), s.terminate()
		}
		if ev == nil {
			// the byte source ended; without a terminal event the response
			// was cut short
			s.finished = true
			return append(events, NewErrorEvent(&Error{
				Code:    ErrCodeUnknown,
				Message: eventsource.ErrStreamEnded.Error(),
			})), true
		}

		decoded, err := s.decode(ev)
		if err != nil {
			return append(events, NewErrorEvent(streamError(err))), s.terminate()
		}
		events = append(events, decoded...)
		for _, e := range decoded {
			if e.IsTerminal() {
				return events, s.terminate()
			}
		}
	}
}

// terminate marks the stream finished and releases the transport. It
// returns true so call sites can tail-call it in a GetNext return.
func (s *decodedStream) terminate() bool {
	s.finished = true
	s.source.Close()
	return true
}

func (s *decodedStream) ReadyChan() <-chan struct{} {
	if s.failure != nil || s.finished {
		return streamDone
	}
	return s.source.ReadyChan()
}

func (s *decodedStream) Close() {
	s.finished = true
	s.delivered = true
	if s.source != nil {
		s.source.Close()
	}
}

// streamError converts a transport or decode failure into the Error
// carried by the terminal stream event, preserving a provider-supplied
// *Error as is.
func streamError(err error) *Error {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return &Error{Code: ErrCodeInternalError, Message: err.Error()}
}
