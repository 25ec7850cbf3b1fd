package eventsource

import (
	"strconv"
	"strings"
	"time"
)

// frameParser consumes decoded text incrementally and emits one
// MessageEvent per complete frame. It is a closed set with exactly two
// implementations, SSE blocks and NDJSON lines, selected once from the
// response content type.
type frameParser interface {
	// feed appends decoded text to the internal buffer
	feed(text string)
	// next extracts the next complete frame, if one is buffered
	next() (*MessageEvent, bool)
	// finish handles end-of-stream: it may salvage a final frame from the
	// remaining buffer, depending on the framing
	finish() *MessageEvent
	// lastEventID returns the stream's resumption cursor
	lastEventID() string
	setLastEventID(id string)
}

// sseParser parses Server-Sent-Events framing: "event:", "data:", "id:"
// and "retry:" fields in blank-line-terminated blocks, with multi-line
// data joined by "\n". An unterminated block is buffered across reads and
// is never emitted on end-of-stream: the end of the source is a transport
// condition, not an implicit frame terminator.
type sseParser struct {
	buf string

	// current block, reset on dispatch
	eventName string
	dataLines []string
	retry     *time.Duration

	lastID string
}

func (p *sseParser) feed(text string) {
	p.buf += text
}

func (p *sseParser) next() (*MessageEvent, bool) {
	for {
		nl := strings.IndexByte(p.buf, '\n')
		if nl < 0 {
			return nil, false
		}
		line := strings.TrimSuffix(p.buf[:nl], "\r")
		p.buf = p.buf[nl+1:]

		if line == "" {
			if ev := p.dispatch(); ev != nil {
				return ev, true
			}
			continue
		}
		p.processField(line)
	}
}

// dispatch completes the current block. Blocks without any data field are
// dropped, per the SSE processing model.
func (p *sseParser) dispatch() *MessageEvent {
	if len(p.dataLines) == 0 {
		p.eventName = ""
		p.retry = nil
		return nil
	}
	ev := &MessageEvent{
		Event: p.eventName,
		Data:  strings.Join(p.dataLines, "\n"),
		ID:    p.lastID,
		Retry: p.retry,
	}
	if ev.Event == "" {
		ev.Event = "message"
	}
	p.eventName = ""
	p.dataLines = nil
	p.retry = nil
	return ev
}

func (p *sseParser) processField(line string) {
	if strings.HasPrefix(line, ":") {
		// comment line
		return
	}

	field := line
	value := ""
	if colon := strings.IndexByte(line, ':'); colon >= 0 {
		field = line[:colon]
		value = strings.TrimPrefix(line[colon+1:], " ")
	}

	switch field {
	case "event":
		p.eventName = value
	case "data":
		p.dataLines = append(p.dataLines, value)
	case "id":
		// an id containing NUL is ignored, per the SSE processing model
		if !strings.ContainsRune(value, 0) {
			p.lastID = value
		}
	case "retry":
		if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
			d := time.Duration(ms) * time.Millisecond
			p.retry = &d
		}
	}
	// unknown fields are ignored
}

// finish never salvages: a torn SSE field cannot be safely completed, so a
// pending block is discarded whether or not it held data.
func (p *sseParser) finish() *MessageEvent {
	p.buf = ""
	p.eventName = ""
	p.dataLines = nil
	p.retry = nil
	return nil
}

func (p *sseParser) lastEventID() string      { return p.lastID }
func (p *sseParser) setLastEventID(id string) { p.lastID = id }
