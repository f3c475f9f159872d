// ABOUTME: Tests for the streamed-line scanner and data-prefix extraction.
// ABOUTME: Covers chunked delivery, split multi-byte sequences, CRLF, and the dropped trailing partial line.
package sse

import (
	"io"
	"strings"
	"testing"
)

// chunkReader delivers its payload in fixed-size chunks to simulate
// arbitrary network delivery boundaries.
type chunkReader struct {
	data  []byte
	size  int
	taken int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.taken >= len(r.data) {
		return 0, io.EOF
	}
	end := r.taken + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.taken:end])
	r.taken += n
	return n, nil
}

func TestNextSingleLine(t *testing.T) {
	s := NewScanner(strings.NewReader("data: {\"type\":\"done\"}\n"))

	line, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != `data: {"type":"done"}` {
		t.Errorf("expected data line, got %q", line)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestNextSplitAcrossChunks(t *testing.T) {
	r := &chunkReader{data: []byte("data: hel" + "lo\ndata: world\n"), size: 3}
	s := NewScanner(r)

	first, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "data: hello" {
		t.Errorf("expected %q, got %q", "data: hello", first)
	}

	second, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != "data: world" {
		t.Errorf("expected %q, got %q", "data: world", second)
	}
}

func TestNextMultiByteSequenceSplitAcrossChunks(t *testing.T) {
	// Each multi-byte rune straddles a chunk boundary at size 2.
	input := "héllo ✓\n"
	for size := 1; size <= 4; size++ {
		s := NewScanner(&chunkReader{data: []byte(input), size: size})
		line, err := s.Next()
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if line != "héllo ✓" {
			t.Errorf("size %d: expected %q, got %q", size, "héllo ✓", line)
		}
		if strings.ContainsRune(line, '�') {
			t.Errorf("size %d: replacement character leaked into %q", size, line)
		}
	}
}

func TestNextStripsCarriageReturn(t *testing.T) {
	s := NewScanner(strings.NewReader("data: a\r\ndata: b\n"))

	line, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "data: a" {
		t.Errorf("expected %q, got %q", "data: a", line)
	}
}

func TestNextDropsUnterminatedTrailingLine(t *testing.T) {
	s := NewScanner(strings.NewReader("data: whole\ndata: torn-off-mid-fr"))

	line, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "data: whole" {
		t.Errorf("expected %q, got %q", "data: whole", line)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF for unterminated tail, got %v", err)
	}
}

func TestNextEmptyStream(t *testing.T) {
	s := NewScanner(strings.NewReader(""))
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	// Subsequent calls stay at EOF.
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF on repeat call, got %v", err)
	}
}

func TestNextBlankLines(t *testing.T) {
	s := NewScanner(strings.NewReader("\n\ndata: x\n\n"))

	lines := []string{}
	for {
		line, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines = append(lines, line)
	}

	expected := []string{"", "", "data: x", ""}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		payload string
		ok      bool
	}{
		{"with space", `data: {"type":"done"}`, `{"type":"done"}`, true},
		{"without space", `data:{"type":"done"}`, `{"type":"done"}`, true},
		{"blank line", "", "", false},
		{"comment", ": keep-alive", "", false},
		{"other field", "event: message", "", false},
		{"empty payload", "data:", "", true},
		{"prefix only with space", "data: ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := Payload(tt.line)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if payload != tt.payload {
				t.Errorf("expected payload %q, got %q", tt.payload, payload)
			}
		})
	}
}
