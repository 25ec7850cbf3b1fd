// Package llm provides the provider-agnostic types and interfaces for
// durable, resumable chat completions.
//
// The main components include:
//
// - Client interface: chat completion and streaming against one provider
// - ChatStream interface: non-blocking, pull-based streaming responses
// - Message types: multi-modal message support (text, images)
// - StreamEvent: the tagged union delivered to streaming callers
// - Configuration: provider-agnostic per-request configuration
// - Error handling: standardized error types and codes
//
// Provider implementations are located in separate packages under
// /pkg/providers/ to maintain clean separation of concerns and avoid import
// cycles. The crash-tolerant record/replay layer lives in /pkg/durable.
package llm
