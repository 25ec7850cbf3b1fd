// Durable chat stream state machine
package durable

import (
	"context"
	"log/slog"

	"github.com/durablestream/go-llm/pkg/eventsource"
	"github.com/durablestream/go-llm/pkg/llm"
)

// Streamer opens live chat streams against a backend. llm.Client satisfies
// it; the durable layer needs nothing else from a provider.
type Streamer interface {
	Stream(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatStream
}

// streamMode is the Stream's current state
type streamMode int

const (
	// modeLive: actively talking to the backend through a transport session
	modeLive streamMode = iota
	// modeReplay: reconstructing prior events from the journal
	modeReplay
)

// replayReady is handed to readiness handles created during replay:
// recorded entries are in local storage, so a poll always makes progress.
var replayReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type replayReadiness struct{}

func (replayReadiness) ReadyChan() <-chan struct{} { return replayReady }

// Stream is a streaming chat response that survives a process restart.
//
// In live mode it pulls from a provider stream and records every GetNext
// result in the journal before handing it to the caller, so a crash right
// after recording is indistinguishable, on restart, from the caller never
// having seen the batch. In replay mode it returns the recorded batches
// verbatim, accumulating the deltas already delivered; if the journal runs
// out before a Finish or Error was recorded, it resumes the conversation
// with a fresh live call built from a continuation prompt.
//
// A Stream is exclusively owned by one caller and is not safe for
// concurrent use.
type Stream struct {
	ctx      context.Context
	streamer Streamer
	journal  Journal
	logger   *slog.Logger

	mode    streamMode
	session llm.ChatStream // live mode only

	// replay mode only
	original []llm.Message
	config   llm.Config
	partial  []llm.StreamDelta
	finished bool

	// handles issued during replay, re-pointed at the live session when
	// the replay-to-live transition happens
	pollables []*eventsource.Pollable

	subscription *eventsource.Pollable
	closed       bool
}

// OpenStream starts or resumes a streaming conversation. With a live
// journal it opens a live backend call immediately; with a journal that
// still holds recorded entries it enters replay mode and issues no backend
// call at all until the entries are exhausted.
func OpenStream(ctx context.Context, streamer Streamer, journal Journal, messages []llm.Message, config llm.Config) (*Stream, error) {
	if journal.IsLive() {
		return NewLiveStream(ctx, streamer, journal, messages, config)
	}
	return NewReplayStream(ctx, streamer, journal, messages, config)
}

// NewLiveStream opens a live backend call and records the stream creation
// in the journal. Most callers should use OpenStream instead, which picks
// live or replay construction from the journal state.
func NewLiveStream(ctx context.Context, streamer Streamer, journal Journal, messages []llm.Message, config llm.Config) (*Stream, error) {
	s := newStream(ctx, streamer, journal, messages, config)
	s.mode = modeLive
	s.session = streamer.Stream(ctx, messages, config)
	if err := journal.Persist(fnStream, noOutput{}); err != nil {
		s.session.Close()
		return nil, err
	}
	return s, nil
}

// NewReplayStream resumes a recorded conversation from the journal. No
// backend call is issued until the recorded entries are exhausted.
func NewReplayStream(ctx context.Context, streamer Streamer, journal Journal, messages []llm.Message, config llm.Config) (*Stream, error) {
	s := newStream(ctx, streamer, journal, messages, config)
	ok, err := s.journal.Replay(fnStream, &noOutput{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJournalExhausted
	}
	s.mode = modeReplay
	return s, nil
}

func newStream(ctx context.Context, streamer Streamer, journal Journal, messages []llm.Message, config llm.Config) *Stream {
	return &Stream{
		ctx:      ctx,
		streamer: streamer,
		journal:  journal,
		logger:   slog.Default(),
		original: messages,
		config:   config,
	}
}

// GetNext performs one non-blocking pull, with the same contract as
// llm.ChatStream: (nil, false) means nothing yet, a terminal Finish or
// Error arrives inside a batch, and after that (nil, true) signals
// exhaustion.
func (s *Stream) GetNext() ([]llm.StreamEvent, bool) {
	if s.closed {
		return nil, true
	}

	if s.journal.IsLive() {
		return s.liveNext()
	}
	return s.replayNext()
}

// liveNext handles both live-mode pulls and the replay-to-live transition
// that fires when the journal was exhausted before the recorded
// conversation finished.
func (s *Stream) liveNext() ([]llm.StreamEvent, bool) {
	if s.mode == modeReplay {
		if s.finished {
			// the recorded conversation completed; no backend call is
			// ever issued again
			return nil, true
		}
		s.resumeLive()
	}

	events, ok := s.session.GetNext()
	if err := s.journal.Persist(fnGetNext, getNextRecord{Ready: ok, Events: events}); err != nil {
		s.logger.Error("failed to record stream progress", "error", err)
		return []llm.StreamEvent{llm.NewErrorEvent(&llm.Error{
			Code:    llm.ErrCodeInternalError,
			Message: "failed to record stream progress: " + err.Error(),
		})}, true
	}
	return events, ok
}

// resumeLive is the replay-to-live transition: it happens at most once per
// journal exhaustion, re-registers every previously issued readiness
// handle against the new session, and continues the conversation without
// re-emitting anything already replayed.
func (s *Stream) resumeLive() {
	extended := ContinuationPrompt(s.original, s.partial)
	s.logger.Debug("resuming interrupted stream",
		"replayed_deltas", len(s.partial),
		"continuation_messages", len(extended))

	s.session = s.streamer.Stream(s.ctx, extended, s.config)
	for _, p := range s.pollables {
		p.Attach(s.session)
	}
	s.mode = modeLive
}

// replayNext returns the next recorded batch verbatim and tracks the
// partial result in case the log turns out to be truncated.
func (s *Stream) replayNext() ([]llm.StreamEvent, bool) {
	var rec getNextRecord
	ok, err := s.journal.Replay(fnGetNext, &rec)
	if err != nil {
		s.finished = true
		return []llm.StreamEvent{llm.NewErrorEvent(&llm.Error{
			Code:    llm.ErrCodeInternalError,
			Message: "journal replay failed: " + err.Error(),
		})}, true
	}
	if !ok {
		// raced past the end between IsLive and Replay; take the live path
		return s.liveNext()
	}

	if !rec.Ready {
		return nil, false
	}
	for _, event := range rec.Events {
		switch {
		case event.Delta != nil:
			s.partial = append(s.partial, *event.Delta)
		case event.Finish != nil, event.Error != nil:
			s.finished = true
		}
	}
	return rec.Events, true
}

// Subscribe returns a readiness handle for this stream. Handles issued
// during replay stay valid across the replay-to-live transition: the
// stream holds a back-reference and re-points them at the new live
// session, so a caller already blocked on one observes the new session
// without re-subscribing.
func (s *Stream) Subscribe() *eventsource.Pollable {
	if s.mode == modeLive {
		return eventsource.NewPollableFor(s.session)
	}
	p := eventsource.NewPollableFor(replayReadiness{})
	s.pollables = append(s.pollables, p)
	return p
}

// ReadyChan implements eventsource.Readiness for the current mode
func (s *Stream) ReadyChan() <-chan struct{} {
	if s.mode == modeLive && !s.closed {
		return s.session.ReadyChan()
	}
	return replayReady
}

// GetNextBlocking loops over the stream's readiness handle until a
// non-empty batch is produced or the stream is exhausted. It returns nil
// on exhaustion.
func (s *Stream) GetNextBlocking() []llm.StreamEvent {
	if s.subscription == nil {
		s.subscription = s.Subscribe()
	}
	for {
		s.subscription.Block()
		events, ok := s.GetNext()
		if !ok {
			continue
		}
		if len(events) == 0 {
			return nil
		}
		return events
	}
}

// Close releases the live transport session and detaches every readiness
// handle. Teardown is a local-only effect: it is never recorded in the
// journal. Close is idempotent and safe on every exit path.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.session != nil {
		s.session.Close()
	}
	s.pollables = nil
	s.subscription = nil
}
