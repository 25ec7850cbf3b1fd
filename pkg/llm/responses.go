// Response types shared by the streaming and non-streaming paths
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FinishReason classifies why the model stopped generating
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
	FinishReasonOther         FinishReason = "other"
)

// MapFinishReason maps a provider finish-reason string onto the closed
// FinishReason set, best effort, with Other for anything unrecognized.
func MapFinishReason(raw string) FinishReason {
	switch raw {
	case "stop", "end_turn", "done":
		return FinishReasonStop
	case "length", "max_tokens":
		return FinishReasonLength
	case "tool_calls", "function_call", "tool_use":
		return FinishReasonToolCalls
	case "content_filter":
		return FinishReasonContentFilter
	case "error":
		return FinishReasonError
	default:
		return FinishReasonOther
	}
}

// Usage carries token accounting when the provider reports it. Pointers
// distinguish "not reported" from zero.
type Usage struct {
	InputTokens  *uint32 `json:"input_tokens,omitempty"`
	OutputTokens *uint32 `json:"output_tokens,omitempty"`
	TotalTokens  *uint32 `json:"total_tokens,omitempty"`
}

// ResponseMetadata is delivered with the finish event of every response
type ResponseMetadata struct {
	FinishReason         *FinishReason `json:"finish_reason,omitempty"`
	Usage                *Usage        `json:"usage,omitempty"`
	ProviderID           *string       `json:"provider_id,omitempty"`
	Timestamp            *string       `json:"timestamp,omitempty"`
	ProviderMetadataJSON *string       `json:"provider_metadata_json,omitempty"`
}

// CompleteResponse is the result of a non-streaming chat completion
type CompleteResponse struct {
	ID        string           `json:"id"`
	Content   []ContentPart    `json:"content"`
	ToolCalls []ToolCall       `json:"tool_calls"`
	Metadata  ResponseMetadata `json:"metadata"`
}

// ChatEvent is the tagged union returned by non-streaming chat operations:
// exactly one of Message, ToolRequest and Error is set.
type ChatEvent struct {
	Message     *CompleteResponse `json:"-"`
	ToolRequest []ToolCall        `json:"-"`
	Error       *Error            `json:"-"`
}

// NewMessageEvent creates a ChatEvent carrying a complete response
func NewMessageEvent(response CompleteResponse) ChatEvent {
	return ChatEvent{Message: &response}
}

// NewToolRequestEvent creates a ChatEvent carrying tool call requests
func NewToolRequestEvent(calls []ToolCall) ChatEvent {
	return ChatEvent{ToolRequest: calls}
}

// NewChatErrorEvent creates a ChatEvent carrying an error
func NewChatErrorEvent(err *Error) ChatEvent {
	return ChatEvent{Error: err}
}

// IsError returns true if this event carries an error
func (e ChatEvent) IsError() bool { return e.Error != nil }

type chatEventJSON struct {
	Type        string            `json:"type"`
	Message     *CompleteResponse `json:"message,omitempty"`
	ToolRequest []ToolCall        `json:"tool_request,omitempty"`
	Error       *Error            `json:"error,omitempty"`
}

// MarshalJSON implements tagged-union JSON encoding for ChatEvent
func (e ChatEvent) MarshalJSON() ([]byte, error) {
	switch {
	case e.Message != nil:
		return json.Marshal(chatEventJSON{Type: "message", Message: e.Message})
	case e.ToolRequest != nil:
		return json.Marshal(chatEventJSON{Type: "tool_request", ToolRequest: e.ToolRequest})
	case e.Error != nil:
		return json.Marshal(chatEventJSON{Type: "error", Error: e.Error})
	}
	return nil, errors.New("chat event has no variant set")
}

// UnmarshalJSON implements tagged-union JSON decoding for ChatEvent
func (e *ChatEvent) UnmarshalJSON(data []byte) error {
	var wire chatEventJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = ChatEvent{}
	switch wire.Type {
	case "message":
		e.Message = wire.Message
	case "tool_request":
		e.ToolRequest = wire.ToolRequest
	case "error":
		e.Error = wire.Error
	default:
		return fmt.Errorf("unknown chat event type %q", wire.Type)
	}
	return nil
}
