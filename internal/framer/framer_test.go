package framer

import (
	"errors"
	"strings"
	"testing"
)

func TestFeedCompleteLine(t *testing.T) {
	f := New()
	lines, err := f.Feed([]byte("512,512,0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "512,512,0" {
		t.Fatalf("got %q, want one line \"512,512,0\"", lines)
	}
}

func TestFeedSplitAcrossCalls(t *testing.T) {
	f := New()

	lines, err := f.Feed([]byte("51"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("partial line should yield nothing, got %q", lines)
	}

	lines, err = f.Feed([]byte("2,512,0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "512,512,0" {
		t.Fatalf("got %q, want exactly one line \"512,512,0\"", lines)
	}
}

func TestFeedMultipleLinesOneChunk(t *testing.T) {
	f := New()
	lines, err := f.Feed([]byte("1,2,0\n3,4,1\n5,"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1,2,0", "3,4,1"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	// trailing fragment completes later
	lines, _ = f.Feed([]byte("6,0\n"))
	if len(lines) != 1 || lines[0] != "5,6,0" {
		t.Fatalf("got %q, want \"5,6,0\"", lines)
	}
}

func TestFeedIdenticalLinesIndependent(t *testing.T) {
	f := New()
	first, _ := f.Feed([]byte("100,200,1\n"))
	second, _ := f.Feed([]byte("100,200,1\n"))
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("repeated line must parse identically: %q vs %q", first, second)
	}
}

func TestFeedStripsCarriageReturn(t *testing.T) {
	f := New()
	lines, _ := f.Feed([]byte("512,512,0\r\n"))
	if len(lines) != 1 || lines[0] != "512,512,0" {
		t.Fatalf("got %q, want CR stripped", lines)
	}
}

func TestFeedOverflowAndRecovery(t *testing.T) {
	f := New()
	f.MaxLine = 16

	_, err := f.Feed([]byte(strings.Repeat("x", 32)))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("got %v, want ErrLineTooLong", err)
	}

	// rest of the runaway line is discarded up to the next newline,
	// then framing resumes
	lines, err := f.Feed([]byte("yyyy\n512,512,0\n"))
	if err != nil {
		t.Fatalf("unexpected error after overflow: %v", err)
	}
	if len(lines) != 1 || lines[0] != "512,512,0" {
		t.Fatalf("got %q, want recovery line \"512,512,0\"", lines)
	}
}

func TestReset(t *testing.T) {
	f := New()
	f.Feed([]byte("partial"))
	f.Reset()
	lines, _ := f.Feed([]byte("1,2,0\n"))
	if len(lines) != 1 || lines[0] != "1,2,0" {
		t.Fatalf("got %q, buffered fragment should be gone after Reset", lines)
	}
}
