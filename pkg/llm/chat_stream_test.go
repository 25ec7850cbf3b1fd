package llm

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablestream/go-llm/pkg/eventsource"
)

// echoDecoder turns every frame into one text delta, and treats the frame
// "DONE" as the terminal finish event.
func echoDecoder(ev *eventsource.MessageEvent) ([]StreamEvent, error) {
	if ev.Data == "DONE" {
		return []StreamEvent{NewFinishEvent(ResponseMetadata{})}, nil
	}
	if ev.Data == "BOOM" {
		return nil, NewError(ErrCodeInvalidRequest, "provider rejected the frame")
	}
	return []StreamEvent{NewDeltaEvent(StreamDelta{Content: []ContentPart{TextPart(ev.Data)}})}, nil
}

func openTestStream(t *testing.T, body string) ChatStream {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	source, err := eventsource.NewEventSource(resp)
	require.NoError(t, err)

	stream := NewDecodedStream(source, echoDecoder)
	t.Cleanup(stream.Close)
	return stream
}

// collect drives the stream to exhaustion and returns everything it emitted
func collect(stream ChatStream) []StreamEvent {
	var all []StreamEvent
	for {
		batch := BlockingGetNext(stream)
		if batch == nil {
			return all
		}
		all = append(all, batch...)
	}
}

func TestDecodedStreamDeliversEventsThenExhausts(t *testing.T) {
	stream := openTestStream(t, "data: hello\n\ndata: world\n\ndata: DONE\n\n")

	events := collect(stream)
	require.Len(t, events, 3)
	assert.Equal(t, "hello", TextFromParts(events[0].Delta.Content))
	assert.Equal(t, "world", TextFromParts(events[1].Delta.Content))
	assert.True(t, events[2].IsFinish())

	// exhausted after the terminal event
	batch, ok := stream.GetNext()
	assert.True(t, ok)
	assert.Empty(t, batch)
}

func TestDecodedStreamEndWithoutTerminalEventIsAnError(t *testing.T) {
	stream := openTestStream(t, "data: partial\n\n")

	events := collect(stream)
	require.Len(t, events, 2)
	assert.True(t, events[0].IsDelta())
	require.True(t, events[1].IsError())
	assert.Equal(t, ErrCodeUnknown, events[1].Error.Code)
}

func TestDecodedStreamDecodeFailureTerminates(t *testing.T) {
	stream := openTestStream(t, "data: ok\n\ndata: BOOM\n\ndata: never\n\n")

	events := collect(stream)
	require.Len(t, events, 2)
	assert.True(t, events[0].IsDelta())
	require.True(t, events[1].IsError())
	// the decoder's own error classification is preserved
	assert.Equal(t, ErrCodeInvalidRequest, events[1].Error.Code)

	batch, ok := stream.GetNext()
	assert.True(t, ok)
	assert.Empty(t, batch)
}

func TestFailedStreamDeliversSingleErrorEvent(t *testing.T) {
	stream := NewFailedStream(NewError(ErrCodeAuthenticationFailed, "bad key"))

	events, ok := stream.GetNext()
	require.True(t, ok)
	require.Len(t, events, 1)
	require.True(t, events[0].IsError())
	assert.Equal(t, ErrCodeAuthenticationFailed, events[0].Error.Code)

	events, ok = stream.GetNext()
	assert.True(t, ok)
	assert.Empty(t, events)

	// a failed stream is always ready, so blocking callers never hang
	select {
	case <-stream.ReadyChan():
	default:
		t.Fatal("failed stream must report ready")
	}
}

func TestDecodedStreamCloseIsIdempotent(t *testing.T) {
	stream := openTestStream(t, "data: hello\n\n")
	stream.Close()
	stream.Close()

	batch, ok := stream.GetNext()
	assert.True(t, ok)
	assert.Empty(t, batch)
}
