package stdin

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"rustybus/internal/logging"
)

// Sniffer collects lines read from an io.Reader in the background. Lines
// keep their trailing newline; a final line without one is kept as read.
// Nothing read is ever dropped: Drain hands over everything collected so far.
type Sniffer struct {
	mu    sync.Mutex
	text  strings.Builder
	lines int

	done   chan struct{}
	cancel context.CancelFunc
}

// Start launches the reader goroutine. It exits on EOF, on a read error, or
// when ctx is cancelled. When r is a terminal nothing is read.
func Start(ctx context.Context, r io.Reader, logger *slog.Logger) *Sniffer {
	ctx, cancel := context.WithCancel(ctx)
	s := &Sniffer{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	logger = logging.NewComponentLogger(logger, "stdin")

	if r == nil || IsTerminal(r) {
		logger.Debug("stdin is interactive; not reading")
		close(s.done)
		return s
	}

	go s.run(ctx, r, logger)
	return s
}

// Drain takes every line collected so far without blocking. Later calls
// return only lines read since the previous one.
func (s *Sniffer) Drain() Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := Input{text: s.text.String(), lines: s.lines}
	s.text.Reset()
	s.lines = 0
	return in
}

// Stop cancels the reader. A goroutine blocked inside Read cannot be
// interrupted; it exits after its current read returns.
func (s *Sniffer) Stop() {
	s.cancel()
}

func (s *Sniffer) run(ctx context.Context, r io.Reader, logger *slog.Logger) {
	defer close(s.done)

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if ctx.Err() != nil {
			return
		}
		if line != "" {
			s.mu.Lock()
			s.text.WriteString(line)
			s.lines++
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("failed to read from stdin", logging.Error(err))
			}
			return
		}
	}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
