package eventsource

import "sync"

// Readiness is implemented by stream stages that can report when another
// poll is likely to make progress.
type Readiness interface {
	// ReadyChan returns a channel that is closed once the next poll may
	// make progress. The channel is a snapshot: a caller that wakes up,
	// polls, and finds the stream still pending must fetch a fresh one.
	ReadyChan() <-chan struct{}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Pollable is a readiness handle handed to callers waiting for stream
// progress. It holds only a back-reference to its source, never ownership,
// and the source can be swapped out from under it: a handle created while
// a stream was replaying keeps working after the stream switches to a new
// live transport, without the caller re-subscribing.
//
// A Pollable created by NewPollable starts detached; Block waits until a
// source is attached and reports readiness.
type Pollable struct {
	mu      sync.Mutex
	source  Readiness
	changed chan struct{} // closed and replaced whenever source changes
}

// NewPollable creates a detached (lazily initialized) readiness handle
func NewPollable() *Pollable {
	return &Pollable{changed: make(chan struct{})}
}

// NewPollableFor creates a readiness handle attached to the given source
func NewPollableFor(source Readiness) *Pollable {
	p := NewPollable()
	p.Attach(source)
	return p
}

// Attach points the handle at a source, waking any blocked waiters so they
// re-evaluate readiness against it.
func (p *Pollable) Attach(source Readiness) {
	p.mu.Lock()
	p.source = source
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Ready returns the current readiness channel. Detached handles return a
// channel that wakes on attachment.
func (p *Pollable) Ready() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return p.changed
	}
	return p.source.ReadyChan()
}

// Block waits until the attached source reports readiness
func (p *Pollable) Block() {
	for {
		p.mu.Lock()
		source := p.source
		changed := p.changed
		p.mu.Unlock()

		if source == nil {
			<-changed
			continue
		}
		select {
		case <-source.ReadyChan():
			return
		case <-changed:
			// source was swapped; re-evaluate against the new one
		}
	}
}
