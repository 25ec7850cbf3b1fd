package eventsource

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// Poll is the progress state of one non-blocking pull
type Poll int

const (
	// Pending means no result is available yet; block on a readiness
	// handle and poll again
	Pending Poll = iota
	// Ready means the poll produced an event, an error, or end-of-stream
	Ready
)

// ReadyState is the lifecycle state of an EventSource
type ReadyState int

const (
	// ReadyStateConnecting means the source is waiting on a response
	ReadyStateConnecting ReadyState = iota
	// ReadyStateOpen means the source is connected and emitting events
	ReadyStateOpen
	// ReadyStateClosed means the source is closed and emits no more events
	ReadyStateClosed
)

const readChunkSize = 4096

// byteSource pumps a response body into an internal chunk queue from one
// reader goroutine, so polling never blocks on the network.
type byteSource struct {
	body io.ReadCloser

	mu     sync.Mutex
	chunks [][]byte
	err    error
	eof    bool
	notify chan struct{}
}

func newByteSource(body io.ReadCloser) *byteSource {
	s := &byteSource{
		body:   body,
		notify: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *byteSource) pump() {
	for {
		buf := make([]byte, readChunkSize)
		n, err := s.body.Read(buf)

		s.mu.Lock()
		if n > 0 {
			s.chunks = append(s.chunks, buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				s.eof = true
			} else {
				s.err = err
			}
		}
		close(s.notify)
		s.notify = make(chan struct{})
		s.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// poll returns the next buffered chunk. A nil chunk with ready=true and a
// nil error means the source reached end-of-stream.
func (s *byteSource) poll() (chunk []byte, state Poll, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) > 0 {
		chunk = s.chunks[0]
		s.chunks = s.chunks[1:]
		return chunk, Ready, nil
	}
	if s.err != nil {
		return nil, Ready, s.err
	}
	if s.eof {
		return nil, Ready, nil
	}
	return nil, Pending, nil
}

func (s *byteSource) ReadyChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) > 0 || s.eof || s.err != nil {
		return closedChan
	}
	return s.notify
}

func (s *byteSource) close() {
	_ = s.body.Close()
}

// EventSource adapts a streaming HTTP response into a pull-based sequence
// of MessageEvents. The response status and content type are validated
// before any byte of the body is read, and the framing variant (SSE or
// NDJSON) is chosen once from the content type.
type EventSource struct {
	source  *byteSource
	decoder UTF8Decoder
	parser  frameParser
	logger  *slog.Logger

	closed  bool
	ended   bool
	termErr error
}

// NewEventSource validates the response and constructs the source. Exactly
// one status code is accepted (200 OK); the content type must be
// text/event-stream or an ndjson media type. On failure the response body
// has not been touched, so the caller can still read an error payload.
func NewEventSource(resp *http.Response) (*EventSource, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, &InvalidStatusCodeError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, &InvalidContentTypeError{}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &InvalidContentTypeError{ContentType: contentType}
	}

	var parser frameParser
	switch {
	case strings.Contains(subtype(mediaType), "ndjson"):
		parser = &ndjsonParser{}
	case mediaType == "text/event-stream":
		parser = &sseParser{}
	default:
		return nil, &InvalidContentTypeError{ContentType: contentType}
	}

	return &EventSource{
		source: newByteSource(resp.Body),
		parser: parser,
		logger: slog.Default(),
	}, nil
}

func subtype(mediaType string) string {
	if slash := strings.IndexByte(mediaType, '/'); slash >= 0 {
		return mediaType[slash+1:]
	}
	return mediaType
}

// PollNext performs one non-blocking pull. Outcomes:
//
//	(Pending, nil, nil)  no complete frame yet; wait and poll again
//	(Ready, event, nil)  one complete frame
//	(Ready, nil, err)    terminal decode or transport failure
//	(Ready, nil, nil)    end of stream
//
// The terminal state is sticky: polling again re-observes it.
func (es *EventSource) PollNext() (Poll, *MessageEvent, error) {
	if es.closed {
		return Ready, nil, nil
	}
	if es.ended {
		return Ready, nil, es.termErr
	}

	if ev, ok := es.parser.next(); ok {
		return Ready, ev, nil
	}

	for {
		chunk, state, err := es.source.poll()
		if state == Pending {
			return Pending, nil, nil
		}
		if err != nil {
			es.terminate(&TransportError{Err: err})
			return Ready, nil, es.termErr
		}
		if chunk == nil {
			es.ended = true
			if es.decoder.Pending() {
				es.terminate(ErrInvalidUTF8)
				return Ready, nil, es.termErr
			}
			if ev := es.parser.finish(); ev != nil {
				return Ready, ev, nil
			}
			return Ready, nil, nil
		}

		text, err := es.decoder.Decode(chunk)
		if err != nil {
			es.terminate(err)
			return Ready, nil, es.termErr
		}
		es.parser.feed(text)
		if ev, ok := es.parser.next(); ok {
			return Ready, ev, nil
		}
	}
}

func (es *EventSource) terminate(err error) {
	es.ended = true
	es.termErr = err
	es.logger.Debug("event source terminated", "error", err)
	es.source.close()
}

// ReadyChan reports transport readiness. Callers are expected to poll
// until Pending before blocking, so a buffered-but-incomplete frame never
// hides behind an idle channel.
func (es *EventSource) ReadyChan() <-chan struct{} {
	if es.closed || es.ended {
		return closedChan
	}
	return es.source.ReadyChan()
}

// LastEventID returns the stream's resumption cursor: the last "id:" field
// seen on an SSE stream, or the value seeded by SetLastEventID.
func (es *EventSource) LastEventID() string {
	return es.parser.lastEventID()
}

// SetLastEventID seeds the resumption cursor
func (es *EventSource) SetLastEventID(id string) {
	es.parser.setLastEventID(id)
}

// State returns the current ready state
func (es *EventSource) State() ReadyState {
	if es.closed {
		return ReadyStateClosed
	}
	return ReadyStateOpen
}

// Close marks the source logically closed and releases the transport.
// Further polls immediately report end-of-stream.
func (es *EventSource) Close() {
	if es.closed {
		return
	}
	es.closed = true
	es.source.close()
}
