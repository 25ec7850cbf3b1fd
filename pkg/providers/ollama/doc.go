// Package ollama provides an Ollama client implementation for the
// durable streaming library.
//
// Ollama streams chat completions as newline-delimited JSON over its local
// /api/chat endpoint. The client implements the llm.Client interface on
// top of the shared event-source transport, so streams opened here can be
// wrapped by the durable replay layer.
//
// The client connects to a local Ollama instance on localhost:11434 by
// default, but can be configured to use any Ollama endpoint.
package ollama
