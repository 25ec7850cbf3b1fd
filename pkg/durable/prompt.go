// Continuation prompt construction
package durable

import (
	"fmt"

	"github.com/durablestream/go-llm/pkg/llm"
)

const (
	continuationSystemNote = "You were asked the same question previously, but the response was " +
		"interrupted before completion. Please continue your response from where you left off. " +
		"Do not include the part of the response that was already seen."
	continuationOriginalNote = "Here is the original question:"
	continuationPartialNote  = "Here is the partial response that was successfully received:"
)

// ContinuationPrompt builds the message list used to resume an interrupted
// streaming response: a system note explaining the interruption, the
// original messages verbatim, and everything already delivered to the
// caller. Tool-call fragments are serialized as inline tagged text so the
// model sees them as prior actions.
//
// The function is pure: identical inputs always yield identical prompts,
// because the call that uses the prompt is itself subject to journal
// replay.
func ContinuationPrompt(original []llm.Message, partial []llm.StreamDelta) []llm.Message {
	extended := make([]llm.Message, 0, len(original)+3)
	extended = append(extended, llm.NewTextMessage(llm.RoleSystem, continuationSystemNote))
	extended = append(extended, llm.NewTextMessage(llm.RoleUser, continuationOriginalNote))
	extended = append(extended, original...)

	partialContent := []llm.ContentPart{llm.TextPart(continuationPartialNote)}
	for _, delta := range partial {
		partialContent = append(partialContent, delta.Content...)
		for _, call := range delta.ToolCalls {
			partialContent = append(partialContent, llm.TextPart(fmt.Sprintf(
				`<tool-call id="%s" name="%s" arguments="%s"/>`,
				call.ID, call.Name, call.ArgumentsJSON,
			)))
		}
	}
	extended = append(extended, llm.Message{
		Role:    llm.RoleUser,
		Content: partialContent,
	})
	return extended
}
