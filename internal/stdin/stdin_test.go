package stdin

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"rustybus/internal/logging"
)

func waitDone(t *testing.T, s *Sniffer) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sniffer did not finish")
	}
}

func TestSnifferKeepsNewlines(t *testing.T) {
	s := Start(context.Background(), strings.NewReader("hello\nworld\npartial"), logging.NewNop())
	defer s.Stop()
	waitDone(t, s)

	in := s.Drain()
	if !in.Present() || in.Lines() != 3 {
		t.Fatalf("expected three lines, got %d", in.Lines())
	}
	if in.text != "hello\nworld\npartial" {
		t.Fatalf("unexpected text %q", in.text)
	}
}

func TestDrainKeepsEveryLine(t *testing.T) {
	const n = 5000
	line := "  \"k\": 1,\n"
	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < n; i++ {
			if _, err := io.WriteString(pw, line); err != nil {
				return
			}
		}
		pw.Close()
	}()

	s := Start(context.Background(), pr, logging.NewNop())
	defer s.Stop()
	waitDone(t, s)

	in := s.Drain()
	if in.Lines() != n {
		t.Fatalf("expected %d lines, got %d", n, in.Lines())
	}
	if in.Message() != strings.Repeat(line, n) {
		t.Fatalf("message truncated to %d bytes", len(in.Message()))
	}
}

func TestDrainWithNothingReadDoesNotBlock(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := Start(context.Background(), pr, logging.NewNop())
	defer s.Stop()

	done := make(chan Input, 1)
	go func() { done <- s.Drain() }()

	select {
	case in := <-done:
		if in.Present() {
			t.Fatal("expected no input")
		}
		if in.Message() != Sentinel {
			t.Fatalf("expected sentinel, got %q", in.Message())
		}
	case <-time.After(time.Second):
		t.Fatal("Drain blocked with nothing read")
	}
}

func TestDrainTakesOnlyNewLines(t *testing.T) {
	s := Start(context.Background(), strings.NewReader("a\n"), logging.NewNop())
	waitDone(t, s)

	if in := s.Drain(); in.Message() != "a\n" {
		t.Fatalf("unexpected message %q", in.Message())
	}
	if again := s.Drain(); again.Present() {
		t.Fatal("expected second drain to be empty")
	}
}

func TestPipedSentinelTextIsPresent(t *testing.T) {
	s := Start(context.Background(), strings.NewReader("Empty"), logging.NewNop())
	waitDone(t, s)
	in := s.Drain()
	if !in.Present() || in.Message() != "Empty" {
		t.Fatalf("unexpected input %+v", in)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestSnifferStopsOnReadError(t *testing.T) {
	s := Start(context.Background(), failingReader{}, logging.NewNop())
	waitDone(t, s)
	if in := s.Drain(); in.Present() {
		t.Fatal("expected no input after read error")
	}
}

func TestSnifferStopsWhenCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	s := Start(context.Background(), pr, logging.NewNop())
	s.Stop()
	// The reader is parked in Read; one more line lets it observe the cancel.
	go io.WriteString(pw, "late\n")
	waitDone(t, s)
	if in := s.Drain(); in.Present() {
		t.Fatalf("expected line after cancel to be discarded, got %q", in.text)
	}
}

func TestNilReaderClosesImmediately(t *testing.T) {
	s := Start(context.Background(), nil, logging.NewNop())
	waitDone(t, s)
	if in := s.Drain(); in.Present() {
		t.Fatal("expected no input")
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if IsTerminal(strings.NewReader("x")) {
		t.Fatal("string reader is not a terminal")
	}
}
