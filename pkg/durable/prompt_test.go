package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablestream/go-llm/pkg/llm"
)

func TestContinuationPromptShape(t *testing.T) {
	original := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "be brief"),
		llm.NewTextMessage(llm.RoleUser, "tell me a story"),
	}
	partial := []llm.StreamDelta{
		{Content: []llm.ContentPart{llm.TextPart("Once upon ")}},
		{Content: []llm.ContentPart{llm.TextPart("a time")}},
	}

	extended := ContinuationPrompt(original, partial)
	require.Len(t, extended, 5)

	assert.Equal(t, llm.RoleSystem, extended[0].Role)
	assert.Contains(t, extended[0].GetText(), "interrupted before completion")

	assert.Equal(t, llm.RoleUser, extended[1].Role)
	assert.Equal(t, "Here is the original question:", extended[1].GetText())

	// the original messages are carried verbatim
	assert.Equal(t, original[0], extended[2])
	assert.Equal(t, original[1], extended[3])

	last := extended[len(extended)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Contains(t, last.GetText(), "partial response that was successfully received")
	assert.Contains(t, last.GetText(), "Once upon a time")
}

func TestContinuationPromptSerializesToolCalls(t *testing.T) {
	partial := []llm.StreamDelta{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: "lookup", ArgumentsJSON: `{"q":"x"}`},
		}},
		{Content: []llm.ContentPart{llm.TextPart("and then")}},
	}

	extended := ContinuationPrompt(nil, partial)
	last := extended[len(extended)-1]
	assert.Contains(t, last.GetText(), `<tool-call id="call-1" name="lookup" arguments="{"q":"x"}"/>`)
	assert.Contains(t, last.GetText(), "and then")
}

func TestContinuationPromptEmptyPartial(t *testing.T) {
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}

	extended := ContinuationPrompt(original, nil)
	require.Len(t, extended, 4)
	// the partial-response section is present but carries only its note
	assert.Equal(t, "Here is the partial response that was successfully received:",
		extended[3].GetText())
}

func TestContinuationPromptIsDeterministic(t *testing.T) {
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")}
	partial := []llm.StreamDelta{
		{Content: []llm.ContentPart{llm.TextPart("a")}},
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "f", ArgumentsJSON: "{}"}}},
	}

	first := ContinuationPrompt(original, partial)
	second := ContinuationPrompt(original, partial)
	assert.Equal(t, first, second)
}
