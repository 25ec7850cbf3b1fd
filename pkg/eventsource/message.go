package eventsource

import "time"

// MessageEvent is the parser's normalized output for one complete frame,
// before any domain interpretation. Immutable once produced.
type MessageEvent struct {
	// Event is the event name; "message" when the frame did not carry one
	Event string
	// Data is the frame payload; for SSE, multi-line data joined with "\n"
	Data string
	// ID is the last event id seen on the stream when this frame completed
	ID string
	// Retry is the reconnection delay requested by the server, if any
	Retry *time.Duration
}
