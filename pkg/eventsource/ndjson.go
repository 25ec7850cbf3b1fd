package eventsource

import "strings"

// ndjsonParser parses newline-delimited JSON framing: every non-blank,
// "\n"-terminated line is one MessageEvent carrying the raw line as data.
// NDJSON has no native event name or id, so events are synthesized with
// the "message" name and the last known cursor.
type ndjsonParser struct {
	buf    string
	lastID string
}

func (p *ndjsonParser) feed(text string) {
	p.buf += text
}

func (p *ndjsonParser) next() (*MessageEvent, bool) {
	for {
		nl := strings.IndexByte(p.buf, '\n')
		if nl < 0 {
			return nil, false
		}
		line := strings.TrimSpace(p.buf[:nl])
		p.buf = p.buf[nl+1:]
		if line == "" {
			continue
		}
		return p.event(line), true
	}
}

// finish salvages a trailing line that arrived without its newline. Unlike
// an SSE block, an NDJSON line is one self-contained JSON document and is
// worth emitting; whether it parses is the protocol decoder's problem.
func (p *ndjsonParser) finish() *MessageEvent {
	line := strings.TrimSpace(p.buf)
	p.buf = ""
	if line == "" {
		return nil
	}
	return p.event(line)
}

func (p *ndjsonParser) event(line string) *MessageEvent {
	return &MessageEvent{
		Event: "message",
		Data:  line,
		ID:    p.lastID,
	}
}

func (p *ndjsonParser) lastEventID() string      { return p.lastID }
func (p *ndjsonParser) setLastEventID(id string) { p.lastID = id }
