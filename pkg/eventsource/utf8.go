package eventsource

import (
	"fmt"
	"unicode/utf8"
)

// UTF8Decoder decodes a byte stream into valid text chunks incrementally.
// Each call to Decode returns the longest valid decodable prefix of the
// retained bytes plus the new chunk; an incomplete trailing multi-byte
// sequence is retained for the next call. Bytes are never dropped
// silently: input that cannot continue the retained prefix fails with a
// non-recoverable error.
//
// The zero value is ready to use.
type UTF8Decoder struct {
	pending []byte
}

// Decode consumes the next chunk and returns the decoded text
func (d *UTF8Decoder) Decode(chunk []byte) (string, error) {
	if len(d.pending) == 0 && utf8.Valid(chunk) {
		return string(chunk), nil
	}

	buf := make([]byte, 0, len(d.pending)+len(chunk))
	buf = append(buf, d.pending...)
	buf = append(buf, chunk...)

	complete, rest, err := splitIncompleteTail(buf)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(complete) {
		return "", fmt.Errorf("%w: malformed byte sequence", ErrInvalidUTF8)
	}
	d.pending = rest
	return string(complete), nil
}

// Pending reports whether an incomplete multi-byte sequence is retained.
// A stream that ends with pending bytes was truncated mid-character.
func (d *UTF8Decoder) Pending() bool {
	return len(d.pending) > 0
}

// splitIncompleteTail splits buf into the portion that can be validated
// now and an incomplete trailing rune, if one is in progress. A rune is at
// most 4 bytes, so at most 3 trailing continuation bytes can belong to an
// unfinished one.
func splitIncompleteTail(buf []byte) (complete, rest []byte, err error) {
	n := len(buf)
	if n == 0 {
		return buf, nil, nil
	}

	// scan back over trailing continuation bytes, at most 3 of them
	i := n
	for i > 0 && n-i < utf8.UTFMax-1 && buf[i-1]&0xC0 == 0x80 {
		i--
	}

	if i == n {
		// the last byte is ASCII or a rune start byte
		b := buf[n-1]
		if b < utf8.RuneSelf {
			return buf, nil, nil
		}
		need := runeLen(b)
		if need < 0 {
			return nil, nil, fmt.Errorf("%w: invalid start byte 0x%02x", ErrInvalidUTF8, b)
		}
		return buf[:n-1], buf[n-1:], nil
	}
	if i == 0 {
		return nil, nil, fmt.Errorf("%w: continuation bytes without start byte", ErrInvalidUTF8)
	}

	b := buf[i-1]
	if b < utf8.RuneSelf || b&0xC0 == 0x80 {
		// the trailing continuation bytes do not follow a start byte; let
		// full validation of the buffer surface the malformed sequence
		return buf, nil, nil
	}
	need := runeLen(b)
	if need < 0 {
		return nil, nil, fmt.Errorf("%w: invalid start byte 0x%02x", ErrInvalidUTF8, b)
	}
	if n-(i-1) < need {
		return buf[:i-1], buf[i-1:], nil
	}
	return buf, nil, nil
}

// runeLen returns the encoded length implied by a UTF-8 start byte, or -1
func runeLen(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return -1
	}
}
