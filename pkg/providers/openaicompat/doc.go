// Package openaicompat implements llm.Client against any server exposing
// the OpenAI chat-completions API, such as vLLM, LiteLLM or OpenAI itself.
//
// Streaming responses arrive as server-sent events over the shared
// event-source transport. Each data frame carries a chat.completion.chunk
// object; the sentinel frame "[DONE]" closes the stream. Finish reasons and
// usage arrive on separate chunks ahead of the sentinel, so the decoder
// stashes them and emits a single finish event when the sentinel lands.
package openaicompat
