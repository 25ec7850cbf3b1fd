// Package mock provides a scripted llm.Client for tests. Streams and
// completions are enqueued ahead of time and played back in order, and
// every call records the messages it received so tests can assert on
// continuation prompts and call counts.
package mock

import (
	"context"
	"sync"

	"github.com/durablestream/go-llm/pkg/llm"
)

// Client is a scripted provider. The zero value is usable; enqueue
// responses before handing it to the code under test.
type Client struct {
	mu sync.Mutex

	streams []*Stream
	sends   []llm.ChatEvent

	// Prompts records the messages passed to each Stream call, in order
	Prompts [][]llm.Message
	// Configs records the config passed to each Stream call, in order
	Configs []llm.Config
	// StreamCalls counts Stream invocations
	StreamCalls int
	// SendCalls counts Send and Continue invocations
	SendCalls int
}

// EnqueueStream schedules the batches the next Stream call will deliver.
// Each batch is returned by one GetNext pull; a nil batch plays back as a
// pending pull (GetNext returns no result).
func (c *Client) EnqueueStream(batches ...[]llm.StreamEvent) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	stream := &Stream{batches: batches}
	c.streams = append(c.streams, stream)
	return stream
}

// EnqueueSend schedules the event the next Send or Continue call returns
func (c *Client) EnqueueSend(event llm.ChatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, event)
}

// Send plays back the next enqueued completion
func (c *Client) Send(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SendCalls++
	if len(c.sends) == 0 {
		return llm.NewChatErrorEvent(llm.NewError(llm.ErrCodeInternalError, "mock: no completion enqueued"))
	}
	event := c.sends[0]
	c.sends = c.sends[1:]
	return event
}

// Continue plays back the next enqueued completion
func (c *Client) Continue(ctx context.Context, messages []llm.Message, toolResults []llm.ToolResult, config llm.Config) llm.ChatEvent {
	return c.Send(ctx, messages, config)
}

// Stream plays back the next enqueued stream and records the prompt
func (c *Client) Stream(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StreamCalls++
	c.Prompts = append(c.Prompts, messages)
	c.Configs = append(c.Configs, config)
	if len(c.streams) == 0 {
		return llm.NewFailedStream(llm.NewError(llm.ErrCodeInternalError, "mock: no stream enqueued"))
	}
	stream := c.streams[0]
	c.streams = c.streams[1:]
	return stream
}

var alwaysReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Stream is a scripted ChatStream. It is always ready: every GetNext pull
// consumes the next scripted batch.
type Stream struct {
	mu       sync.Mutex
	batches  [][]llm.StreamEvent
	finished bool
	closed   bool

	// Pulls counts GetNext invocations
	Pulls int
}

// GetNext plays back the next scripted batch. A nil scripted batch is
// reported as pending; after the script is exhausted or a terminal event
// was delivered, pulls report exhaustion.
func (s *Stream) GetNext() ([]llm.StreamEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pulls++
	if s.finished || s.closed || len(s.batches) == 0 {
		return nil, true
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	if batch == nil {
		return nil, false
	}
	for _, ev := range batch {
		if ev.IsTerminal() {
			s.finished = true
		}
	}
	return batch, true
}

// ReadyChan reports the stream as always ready
func (s *Stream) ReadyChan() <-chan struct{} {
	return alwaysReady
}

// Close marks the stream closed. IsClosed lets tests assert cleanup.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// IsClosed reports whether Close was called
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
