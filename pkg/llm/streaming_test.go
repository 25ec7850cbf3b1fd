package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip pushes an event through its journal encoding and back
func roundTrip(t *testing.T, event StreamEvent) StreamEvent {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded StreamEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func TestStreamEventRoundTrip(t *testing.T) {
	t.Run("delta_with_text_and_tool_calls", func(t *testing.T) {
		event := NewDeltaEvent(StreamDelta{
			Content: []ContentPart{TextPart("hello")},
			ToolCalls: []ToolCall{
				{ID: "call-1", Name: "get_weather", ArgumentsJSON: `{"city":"Paris"}`},
			},
		})

		decoded := roundTrip(t, event)
		require.True(t, decoded.IsDelta())
		assert.Equal(t, "hello", TextFromParts(decoded.Delta.Content))
		require.Len(t, decoded.Delta.ToolCalls, 1)
		assert.Equal(t, `{"city":"Paris"}`, decoded.Delta.ToolCalls[0].ArgumentsJSON)
	})

	t.Run("delta_with_inline_image", func(t *testing.T) {
		event := NewDeltaEvent(StreamDelta{
			Content: []ContentPart{InlineImagePart([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png", ImageDetailAuto)},
		})

		decoded := roundTrip(t, event)
		require.True(t, decoded.IsDelta())
		require.Len(t, decoded.Delta.Content, 1)
		part := decoded.Delta.Content[0]
		require.True(t, part.IsImage())
		require.NotNil(t, part.Image.Inline)
		assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, part.Image.Inline.Data)
		assert.Equal(t, "image/png", part.Image.Inline.MimeType)
	})

	t.Run("finish_with_usage", func(t *testing.T) {
		reason := FinishReasonStop
		input, output, total := uint32(10), uint32(20), uint32(30)
		event := NewFinishEvent(ResponseMetadata{
			FinishReason: &reason,
			Usage:        &Usage{InputTokens: &input, OutputTokens: &output, TotalTokens: &total},
		})

		decoded := roundTrip(t, event)
		require.True(t, decoded.IsFinish())
		assert.Equal(t, FinishReasonStop, *decoded.Finish.FinishReason)
		assert.Equal(t, uint32(30), *decoded.Finish.Usage.TotalTokens)
	})

	t.Run("error_with_provider_payload", func(t *testing.T) {
		raw := `{"error":"quota"}`
		event := NewErrorEvent(&Error{
			Code:              ErrCodeRateLimitExceeded,
			Message:           "slow down",
			ProviderErrorJSON: &raw,
		})

		decoded := roundTrip(t, event)
		require.True(t, decoded.IsError())
		assert.Equal(t, ErrCodeRateLimitExceeded, decoded.Error.Code)
		assert.Equal(t, raw, *decoded.Error.ProviderErrorJSON)
	})

	t.Run("unknown_type_fails", func(t *testing.T) {
		var decoded StreamEvent
		err := json.Unmarshal([]byte(`{"type":"mystery"}`), &decoded)
		assert.Error(t, err)
	})

	t.Run("event_without_variant_fails_to_marshal", func(t *testing.T) {
		_, err := json.Marshal(StreamEvent{})
		assert.Error(t, err)
	})
}

func TestStreamEventPredicates(t *testing.T) {
	delta := NewDeltaEvent(StreamDelta{Content: []ContentPart{TextPart("x")}})
	finish := NewFinishEvent(ResponseMetadata{})
	failure := NewErrorEvent(NewError(ErrCodeUnknown, "x"))

	assert.True(t, delta.IsDelta())
	assert.False(t, delta.IsTerminal())
	assert.True(t, finish.IsFinish())
	assert.True(t, finish.IsTerminal())
	assert.True(t, failure.IsError())
	assert.True(t, failure.IsTerminal())
}

func TestStreamDeltaIsEmpty(t *testing.T) {
	assert.True(t, StreamDelta{}.IsEmpty())
	assert.False(t, StreamDelta{Content: []ContentPart{TextPart("")}}.IsEmpty())
	assert.False(t, StreamDelta{ToolCalls: []ToolCall{{ID: "1"}}}.IsEmpty())
}

func TestMapFinishReason(t *testing.T) {
	cases := map[string]FinishReason{
		"stop":           FinishReasonStop,
		"end_turn":       FinishReasonStop,
		"done":           FinishReasonStop,
		"length":         FinishReasonLength,
		"max_tokens":     FinishReasonLength,
		"tool_calls":     FinishReasonToolCalls,
		"function_call":  FinishReasonToolCalls,
		"tool_use":       FinishReasonToolCalls,
		"content_filter": FinishReasonContentFilter,
		"error":          FinishReasonError,
		"anything_else":  FinishReasonOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapFinishReason(raw), "raw=%s", raw)
	}
}

func TestChatEventRoundTrip(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		event := NewMessageEvent(CompleteResponse{
			ID:      "resp-1",
			Content: []ContentPart{TextPart("answer")},
		})
		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded ChatEvent
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.NotNil(t, decoded.Message)
		assert.Equal(t, "resp-1", decoded.Message.ID)
		assert.Equal(t, "answer", TextFromParts(decoded.Message.Content))
	})

	t.Run("tool_request", func(t *testing.T) {
		event := NewToolRequestEvent([]ToolCall{{ID: "c1", Name: "f", ArgumentsJSON: "{}"}})
		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded ChatEvent
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded.ToolRequest, 1)
		assert.Equal(t, "c1", decoded.ToolRequest[0].ID)
	})

	t.Run("error", func(t *testing.T) {
		event := NewChatErrorEvent(NewError(ErrCodeInvalidRequest, "bad"))
		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded ChatEvent
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.True(t, decoded.IsError())
		assert.Equal(t, ErrCodeInvalidRequest, decoded.Error.Code)
	})
}
