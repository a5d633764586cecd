// Package dispatch sequences a single rustybus run: collect piped input,
// parse the invocation, open the configured queue client, and route to one
// queue operation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rustybus/internal/config"
	"rustybus/internal/invocation"
	"rustybus/internal/logging"
	"rustybus/internal/operations"
	"rustybus/internal/queueaccess"
	"rustybus/internal/stdin"
)

// DefaultGracePeriod is how long Run waits for piped input before draining.
const DefaultGracePeriod = time.Second

// MsgInvalidCommand is printed for an unrecognized action.
const MsgInvalidCommand = "Invalid command"

// ConfigLoader returns the configuration for this run.
type ConfigLoader func() (*config.Config, error)

// ClientOpener opens the queue client for queueName.
type ClientOpener func(ctx context.Context, cfg *config.Config, queueName string) (queueaccess.Session, error)

// Dispatcher runs one invocation. Zero-valued fields fall back to process
// defaults where noted.
type Dispatcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger
	// GracePeriod is how long to wait for piped input. Negative means zero.
	GracePeriod time.Duration
	// ResolveGracePeriod, when set, replaces GracePeriod. It is called after
	// the sniffer has started.
	ResolveGracePeriod func() time.Duration
	LoadConfig         ConfigLoader
	// Open defaults to queueaccess.Open.
	Open           ClientOpener
	ShowProperties bool
}

// Run executes the invocation described by args, where args[0] is the
// program name.
func (d *Dispatcher) Run(ctx context.Context, args []string) error {
	logger := logging.NewComponentLogger(d.Logger, "dispatch")
	err := d.run(ctx, args, logger)
	var derr *Error
	if errors.As(err, &derr) {
		logger.Debug("invocation failed", logging.String("kind", derr.Kind.String()), logging.Error(derr.Err))
	}
	return err
}

func (d *Dispatcher) run(ctx context.Context, args []string, logger *slog.Logger) error {
	sniffer := stdin.Start(ctx, d.Stdin, d.Logger)
	defer sniffer.Stop()

	grace := d.GracePeriod
	if d.ResolveGracePeriod != nil {
		grace = d.ResolveGracePeriod()
	}
	logger.Debug("waiting for piped input", logging.Duration("grace_period", grace))
	if err := sleepContext(ctx, grace); err != nil {
		return err
	}

	input := sniffer.Drain()
	logger.Debug("piped input collected",
		logging.Bool("present", input.Present()),
		logging.Int("lines", input.Lines()),
	)
	if !input.Present() {
		logger.Debug("no piped input; using placeholder message", logging.String("message", stdin.Sentinel))
	}

	inv, err := invocation.Parse(args)
	if err != nil {
		return &Error{Kind: KindArguments, Message: "Problem parsing arguments: " + err.Error(), Err: err}
	}
	ctx = logging.WithInvocation(ctx, string(inv.Action), inv.Queue)
	logger = logging.WithContext(ctx, logger)

	if d.LoadConfig == nil {
		return &Error{Kind: KindConfiguration, Message: "configuration loader not set"}
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return &Error{Kind: KindConfiguration, Message: err.Error(), Err: err}
	}

	open := d.Open
	if open == nil {
		open = queueaccess.Open
	}
	session, err := open(ctx, cfg, inv.Queue)
	if err != nil {
		logger.Debug("client construction failed", logging.Error(err))
		return &Error{Kind: KindConfiguration, Message: "Failed to create client", Err: err}
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("failed to close queue client", logging.Error(closeErr))
		}
	}()
	logger.Debug("queue client ready", logging.String(logging.FieldBackend, session.Backend))

	runner := &operations.Runner{
		Client:         session.Client,
		Out:            d.Stdout,
		Logger:         logging.WithContext(ctx, d.Logger),
		PeekTimeout:    cfg.PeekTimeout(),
		ShowProperties: d.ShowProperties,
	}

	if !inv.Action.Known() {
		logger.Debug("unrecognized action")
		if d.Stdout != nil {
			fmt.Fprintln(d.Stdout, MsgInvalidCommand)
		}
		return nil
	}

	switch inv.Action {
	case invocation.ActionSend:
		err = runner.Send(ctx, input.Message())
	case invocation.ActionReceive:
		err = runner.Receive(ctx)
	case invocation.ActionPeek:
		err = runner.Peek(ctx)
	}
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var opErr *operations.Error
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, context.Canceled) {
			return opErr.Err
		}
		return &Error{Kind: KindTransport, Message: opErr.Message, Err: opErr.Err}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
