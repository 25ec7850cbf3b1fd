// Client interfaces and core streaming contracts
package llm

import (
	"context"

	"github.com/durablestream/go-llm/pkg/eventsource"
)

// ChatStream is one live streaming chat response. It is pull-based and
// non-blocking: GetNext never waits for the network, and the embedded
// readiness handle tells the caller when another pull is likely to make
// progress.
type ChatStream interface {
	eventsource.Readiness

	// GetNext performs one non-blocking pull. It returns (nil, false) when
	// no batch is available yet; the caller should block on a readiness
	// handle and try again. It returns (batch, true) when events were
	// produced. A terminal Finish or Error event arrives inside a batch;
	// after that the stream is exhausted and GetNext returns (nil, true)
	// with an empty batch.
	GetNext() ([]StreamEvent, bool)

	// Close releases the underlying transport. Further pulls report the
	// stream as exhausted without touching the network.
	Close()
}

// Client defines the core interface that all LLM providers implement
type Client interface {
	// Send performs a non-streaming chat completion
	Send(ctx context.Context, messages []Message, config Config) ChatEvent

	// Continue resumes a conversation after tool execution
	Continue(ctx context.Context, messages []Message, toolResults []ToolResult, config Config) ChatEvent

	// Stream opens a streaming chat completion. It never returns an error:
	// request-level failures are delivered as an Error event on the stream
	// so the streaming and durable layers see a uniform shape.
	Stream(ctx context.Context, messages []Message, config Config) ChatStream
}

// BlockingGetNext loops over a stream's readiness handle and GetNext until
// a non-empty batch is produced or the stream is exhausted. It returns nil
// on exhaustion.
func BlockingGetNext(stream ChatStream) []StreamEvent {
	pollable := eventsource.NewPollableFor(stream)
	for {
		pollable.Block()
		events, ok := stream.GetNext()
		if !ok {
			continue
		}
		if len(events) == 0 {
			return nil
		}
		return events
	}
}
