// Package invocation validates the positional arguments of a rustybus run.
package invocation

import "errors"

// Usage is the one-line usage string shown on argument errors.
const Usage = "rustybus <send/receive/peek> <queue name>"

// ErrMissingArguments is returned when the action or queue name is absent.
var ErrMissingArguments = errors.New("Missing arguments. Usage: " + Usage)

// Action is the verbatim action argument.
type Action string

// Known actions.
const (
	ActionSend    Action = "send"
	ActionReceive Action = "receive"
	ActionPeek    Action = "peek"
)

// Known reports whether a is one of the supported actions. Matching is
// exact and case-sensitive.
func (a Action) Known() bool {
	switch a {
	case ActionSend, ActionReceive, ActionPeek:
		return true
	default:
		return false
	}
}

// Config is the parsed command: which action to run against which queue.
type Config struct {
	Action Action
	Queue  string
}

// Parse reads the action and queue from args, where args[0] is the program
// name. Extra arguments are ignored. The action is not validated here; an
// unknown action is reported by the dispatcher.
func Parse(args []string) (Config, error) {
	if len(args) < 3 {
		return Config{}, ErrMissingArguments
	}
	return Config{Action: Action(args[1]), Queue: args[2]}, nil
}
