package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"rustybus/internal/logging"
	"rustybus/internal/queue"
)

// User-facing result lines.
const (
	MsgSent          = "Message sent!"
	MsgNoMessages    = "No messages in queue"
	MsgUnlockFailed  = "Unable to unlock message"
	MsgSendFailed    = "Failed to send message"
	MsgReceiveFailed = "Failed to receive message"
)

// DefaultPeekTimeout is the wait budget for a peek-lock request.
const DefaultPeekTimeout = 3 * time.Second

// Error is a transport failure. Message is the user-facing summary and Err
// the underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes flows against one client.
type Runner struct {
	Client queue.Client
	Out    io.Writer
	Logger *slog.Logger
	// PeekTimeout bounds how long Peek waits for a message.
	PeekTimeout time.Duration
	// ShowProperties prints broker properties after a received message.
	ShowProperties bool
}

// Send strips every newline from message and enqueues it.
func (r *Runner) Send(ctx context.Context, message string) error {
	body := strings.ReplaceAll(message, "\n", "")
	r.logger().Debug("sending message", logging.Int("bytes", len(body)))
	if err := r.Client.Send(ctx, body); err != nil {
		return &Error{Message: MsgSendFailed, Err: err}
	}
	r.println(MsgSent)
	return nil
}

// Receive removes one message and prints it when the body is JSON.
func (r *Runner) Receive(ctx context.Context) error {
	msg, err := r.Client.ReceiveAndDelete(ctx)
	if err != nil {
		return &Error{Message: MsgReceiveFailed, Err: err}
	}
	r.printMessage("Message", msg)
	return nil
}

// Peek locks one message, prints it when the body is JSON, and releases the
// lock before returning on every path.
func (r *Runner) Peek(ctx context.Context) error {
	timeout := r.PeekTimeout
	if timeout <= 0 {
		timeout = DefaultPeekTimeout
	}
	locked, err := r.Client.PeekLock(ctx, timeout)
	if err != nil {
		return &Error{Message: MsgReceiveFailed, Err: err}
	}
	defer func() {
		if unlockErr := locked.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			r.logger().Warn("unlock failed; message stays hidden until its lock expires",
				logging.Error(unlockErr),
				logging.String("lock_token", locked.Properties.LockToken),
			)
			r.println(MsgUnlockFailed)
		}
	}()

	r.printMessage("Peek message", locked.Message)
	return nil
}

func (r *Runner) printMessage(label string, msg queue.Message) {
	formatted, err := compactJSON(msg.Body)
	if err != nil {
		if !msg.Empty() {
			r.logger().Debug("message body is not JSON", logging.Error(err), logging.Int("bytes", len(msg.Body)))
		}
		r.println(MsgNoMessages)
		return
	}
	r.println(label + ": " + formatted)
	if r.ShowProperties {
		if rendered := renderTable([]string{"Property", "Value"}, msg.Properties.Rows()); rendered != "" {
			r.println(rendered)
		}
	}
}

func (r *Runner) println(line string) {
	if r.Out == nil {
		return
	}
	fmt.Fprintln(r.Out, line)
}

func (r *Runner) logger() *slog.Logger {
	return logging.NewComponentLogger(r.Logger, "operations")
}
