package framer

import (
	"bytes"
	"errors"
	"strings"
)

// ErrLineTooLong is returned by Feed when the accumulation buffer exceeds
// MaxLine without seeing a newline. The framer discards the oversized
// fragment and resumes at the next newline, so a single runaway line
// never stalls the stream.
var ErrLineTooLong = errors.New("framer: line exceeds maximum length")

// DefaultMaxLine bounds the accumulation buffer. Joystick lines are under
// 20 bytes; anything near this limit is garbage on the wire.
const DefaultMaxLine = 4096

// Framer accumulates raw bytes and splits them into complete
// newline-terminated lines, retaining the trailing partial line between
// calls to Feed.
type Framer struct {
	buf      []byte
	MaxLine  int
	overflow bool
}

// New returns a Framer with the default line length limit.
func New() *Framer {
	return &Framer{MaxLine: DefaultMaxLine}
}

// Feed appends chunk to the internal buffer and returns every complete
// line found, without the trailing newline. Carriage returns are
// stripped. The last fragment (possibly empty) is kept for the next call.
func (f *Framer) Feed(chunk []byte) ([]string, error) {
	max := f.MaxLine
	if max <= 0 {
		max = DefaultMaxLine
	}

	var lines []string
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			if f.overflow {
				return lines, nil
			}
			f.buf = append(f.buf, chunk...)
			if len(f.buf) > max {
				f.buf = f.buf[:0]
				f.overflow = true
				return lines, ErrLineTooLong
			}
			return lines, nil
		}

		if f.overflow {
			// Drop the remainder of the oversized line and resume.
			f.overflow = false
		} else {
			line := string(f.buf) + string(chunk[:i])
			f.buf = f.buf[:0]
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
		chunk = chunk[i+1:]
	}
	return lines, nil
}

// Reset discards any buffered partial line.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.overflow = false
}
