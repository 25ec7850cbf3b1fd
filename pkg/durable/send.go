// Durable wrappers for the non-streaming chat operations
package durable

import (
	"context"

	"github.com/durablestream/go-llm/pkg/llm"
)

// Send performs a journaled non-streaming chat completion: live calls are
// recorded before their result is returned, and replayed calls are served
// from the journal without contacting the backend.
func Send(ctx context.Context, client llm.Client, journal Journal, messages []llm.Message, config llm.Config) llm.ChatEvent {
	return journaled(journal, fnSend, func() llm.ChatEvent {
		return client.Send(ctx, messages, config)
	})
}

// Continue performs a journaled continuation after tool execution
func Continue(ctx context.Context, client llm.Client, journal Journal, messages []llm.Message, toolResults []llm.ToolResult, config llm.Config) llm.ChatEvent {
	return journaled(journal, fnContinue, func() llm.ChatEvent {
		return client.Continue(ctx, messages, toolResults, config)
	})
}

func journaled(journal Journal, function string, call func() llm.ChatEvent) llm.ChatEvent {
	if journal.IsLive() {
		event := call()
		if err := journal.Persist(function, event); err != nil {
			return llm.NewChatErrorEvent(&llm.Error{
				Code:    llm.ErrCodeInternalError,
				Message: "failed to record chat result: " + err.Error(),
			})
		}
		return event
	}

	var event llm.ChatEvent
	ok, err := journal.Replay(function, &event)
	if err != nil {
		return llm.NewChatErrorEvent(&llm.Error{
			Code:    llm.ErrCodeInternalError,
			Message: "journal replay failed: " + err.Error(),
		})
	}
	if !ok {
		return llm.NewChatErrorEvent(&llm.Error{
			Code:    llm.ErrCodeInternalError,
			Message: ErrJournalExhausted.Error(),
		})
	}
	return event
}
