// ABOUTME: Line-oriented reader for the streamed chat response body.
// ABOUTME: Extracts complete frames from chunked delivery and strips the SSE data prefix.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// dataPrefix marks lines that carry an event payload. Lines without it
// (keep-alives, comments, blanks) carry no event.
const dataPrefix = "data:"

// Scanner extracts complete lines from a streamed response body. The body
// arrives in arbitrary chunks; bytes are buffered until a line feed appears,
// so a multi-byte UTF-8 sequence split across chunk boundaries is never
// decoded early and never produces a replacement character.
//
// An unterminated trailing line at end-of-stream is discarded. The backend
// terminates every frame with a line feed, so a missing terminator means the
// final frame was cut off mid-write and cannot be trusted.
type Scanner struct {
	reader *bufio.Reader
	done   bool
}

// NewScanner creates a Scanner reading from the given stream body.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 4096)}
}

// Next returns the next complete line from the stream, without its
// terminator. A single carriage return before the line feed is stripped.
// Returns io.EOF once the stream is exhausted; any other error is a
// transport failure.
func (s *Scanner) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	var line strings.Builder
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			s.done = true
			if err == io.EOF {
				// Unterminated trailing bytes are dropped: without the line
				// feed there is no guarantee the frame arrived whole.
				return "", io.EOF
			}
			return "", err
		}

		if b == '\n' {
			text := line.String()
			if n := len(text); n > 0 && text[n-1] == '\r' {
				text = text[:n-1]
			}
			return text, nil
		}

		line.WriteByte(b)
	}
}

// Payload reports whether the line carries an event payload and returns the
// payload with the data prefix and one optional leading space removed.
func Payload(line string) (string, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := line[len(dataPrefix):]
	if len(payload) > 0 && payload[0] == ' ' {
		payload = payload[1:]
	}
	return payload, true
}
