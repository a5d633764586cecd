package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind classifies a failure for reporting and exit status.
type Kind int

const (
	KindUnknown Kind = iota
	KindArguments
	KindConfiguration
	KindTransport
)

// Process exit statuses.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitTransport     = 3
)

func (k Kind) String() string {
	switch k {
	case KindArguments:
		return "arguments"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Message is the user-facing text; Err is
// the cause and is appended for transport failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Kind != KindTransport {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var derr *Error
	if !errors.As(err, &derr) {
		return ExitFailure
	}
	switch derr.Kind {
	case KindConfiguration:
		return ExitConfiguration
	case KindTransport:
		return ExitTransport
	default:
		return ExitFailure
	}
}

// Report prints err to the stream its kind belongs on and returns the exit
// status. Argument errors go to stdout; everything else goes to stderr.
// Cancellation is silent.
func Report(stdout, stderr io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitFailure
	}
	var derr *Error
	if errors.As(err, &derr) && derr.Kind == KindArguments {
		fmt.Fprintln(stdout, derr.Error())
		return ExitCode(err)
	}
	fmt.Fprintln(stderr, strings.TrimSpace(err.Error()))
	return ExitCode(err)
}
