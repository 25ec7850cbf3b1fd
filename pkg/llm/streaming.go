// Package llm provides abstractions for Large Language Model clients
// streaming.go defines types for streaming chat completions

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StreamDelta represents one incremental update to the assistant message.
// Content parts and tool calls preserve the order the provider emitted them.
type StreamDelta struct {
	Content   []ContentPart `json:"content,omitempty"`
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
}

// IsEmpty returns true if the delta carries neither content nor tool calls
func (d StreamDelta) IsEmpty() bool {
	return len(d.Content) == 0 && len(d.ToolCalls) == 0
}

// StreamEvent is the tagged union delivered to streaming callers: exactly
// one of Delta, Finish and Error is set.
type StreamEvent struct {
	Delta  *StreamDelta      `json:"-"`
	Finish *ResponseMetadata `json:"-"`
	Error  *Error            `json:"-"`
}

// NewDeltaEvent creates a new delta stream event
func NewDeltaEvent(delta StreamDelta) StreamEvent {
	return StreamEvent{Delta: &delta}
}

// NewFinishEvent creates a new finish stream event
func NewFinishEvent(metadata ResponseMetadata) StreamEvent {
	return StreamEvent{Finish: &metadata}
}

// NewErrorEvent creates a new error stream event
func NewErrorEvent(err *Error) StreamEvent {
	return StreamEvent{Error: err}
}

// IsDelta returns true if this is a delta event
func (e StreamEvent) IsDelta() bool { return e.Delta != nil }

// IsFinish returns true if this is a finish event
func (e StreamEvent) IsFinish() bool { return e.Finish != nil }

// IsError returns true if this is an error event
func (e StreamEvent) IsError() bool { return e.Error != nil }

// IsTerminal returns true for events that end the stream
func (e StreamEvent) IsTerminal() bool { return e.Finish != nil || e.Error != nil }

// streamEventJSON is the tagged wire form of StreamEvent used by the
// durable journal. Replay requires exact structural equality with what a
// live call produced, so every field must round-trip losslessly.
type streamEventJSON struct {
	Type   string            `json:"type"`
	Delta  *StreamDelta      `json:"delta,omitempty"`
	Finish *ResponseMetadata `json:"finish,omitempty"`
	Error  *Error            `json:"error,omitempty"`
}

const (
	streamEventDelta  = "delta"
	streamEventFinish = "finish"
	streamEventError  = "error"
)

// MarshalJSON implements tagged-union JSON encoding for StreamEvent
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch {
	case e.Delta != nil:
		return json.Marshal(streamEventJSON{Type: streamEventDelta, Delta: e.Delta})
	case e.Finish != nil:
		return json.Marshal(streamEventJSON{Type: streamEventFinish, Finish: e.Finish})
	case e.Error != nil:
		return json.Marshal(streamEventJSON{Type: streamEventError, Error: e.Error})
	}
	return nil, errors.New("stream event has no variant set")
}

// UnmarshalJSON implements tagged-union JSON decoding for StreamEvent
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var wire streamEventJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = StreamEvent{}
	switch wire.Type {
	case streamEventDelta:
		if wire.Delta == nil {
			return errors.New("delta stream event without delta payload")
		}
		e.Delta = wire.Delta
	case streamEventFinish:
		if wire.Finish == nil {
			return errors.New("finish stream event without metadata payload")
		}
		e.Finish = wire.Finish
	case streamEventError:
		if wire.Error == nil {
			return errors.New("error stream event without error payload")
		}
		e.Error = wire.Error
	default:
		return fmt.Errorf("unknown stream event type %q", wire.Type)
	}
	return nil
}
