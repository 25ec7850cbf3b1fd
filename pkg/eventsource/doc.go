// Package eventsource turns a raw, chunked HTTP response body into a
// sequence of discrete message events.
//
// It is the transport half of the streaming pipeline: bytes are decoded
// incrementally as UTF-8, framed as either Server-Sent-Events blocks or
// newline-delimited JSON lines (chosen once from the response content
// type), and surfaced one MessageEvent per complete frame. Partial frames
// split across network reads are buffered until completed.
//
// The package is pull-based and cooperative: PollNext never blocks, and a
// Pollable readiness handle tells the caller when another poll is likely
// to make progress. An EventSource is exclusively owned by a single caller
// and is not safe for concurrent use.
package eventsource
