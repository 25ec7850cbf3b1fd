// Journal capability interface
package durable

import (
	"errors"

	"github.com/durablestream/go-llm/pkg/llm"
)

var (
	// ErrJournalClosed is returned when operations are called on a closed journal
	ErrJournalClosed = errors.New("journal is closed")

	// ErrJournalMismatch is returned when a replayed entry was recorded for a
	// different function than the one replaying it, which means the replayed
	// execution diverged from the recorded one
	ErrJournalMismatch = errors.New("journal entry does not match replayed call")

	// ErrJournalExhausted is returned by replay helpers when no recorded
	// entries remain
	ErrJournalExhausted = errors.New("journal has no more recorded entries")
)

// Journal is an append-only, ordered record-and-replay facility supplied by
// the host. One journal instance is scoped to one conversation and has a
// single writer for its whole lifetime.
//
// While live, Persist appends the output of each observable call in
// chronological order. After a restart the same calls run again in the same
// order; Replay hands back the recorded outputs until they are exhausted,
// at which point IsLive flips to true and execution continues forward.
type Journal interface {
	// IsLive reports whether the recorded entries have been exhausted and
	// new calls should execute against the real backend
	IsLive() bool

	// Persist appends the output of one call. output must round-trip
	// losslessly through JSON; a serialization failure is fatal for the
	// call being recorded.
	Persist(function string, output any) error

	// Replay decodes the next recorded entry into output. It returns
	// ok=false when the journal is exhausted, and an error when the entry
	// exists but was recorded for a different function or cannot be
	// decoded.
	Replay(function string, output any) (ok bool, err error)
}

// journaled function names, stable across releases because recorded
// journals must replay on newer builds
const (
	fnStream   = "stream"
	fnGetNext  = "get_next"
	fnSend     = "send"
	fnContinue = "continue"
)

// noOutput is recorded for calls whose only observable effect is that they
// happened (stream construction).
type noOutput struct{}

// getNextRecord is the journaled shape of one GetNext result. Ready=false
// records a poll that found nothing; it is replayed as-is so the caller
// observes the same pending states in the same order.
type getNextRecord struct {
	Ready  bool              `json:"ready"`
	Events []llm.StreamEvent `json:"events,omitempty"`
}
