// Package queueaccess opens the queue client selected by configuration.
package queueaccess

import (
	"context"
	"errors"
	"fmt"

	"rustybus/internal/config"
	"rustybus/internal/queue"
)

// Opener builds a client for one backend.
type Opener func(ctx context.Context, cfg *config.Config, queueName string) (queue.Client, error)

// Session represents an open queue client and its cleanup function.
type Session struct {
	Client  queue.Client
	Backend string
	close   func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open builds the client for cfg.Backend using the built-in transports.
func Open(ctx context.Context, cfg *config.Config, queueName string) (Session, error) {
	return OpenWith(ctx, cfg, queueName, DefaultOpeners())
}

// OpenWith builds the client for cfg.Backend from openers.
func OpenWith(ctx context.Context, cfg *config.Config, queueName string, openers map[string]Opener) (Session, error) {
	if cfg == nil {
		return Session{}, errors.New("open queue client: configuration is required")
	}
	open, ok := openers[cfg.Backend]
	if !ok || open == nil {
		return Session{}, fmt.Errorf("open queue client: no opener for backend %q", cfg.Backend)
	}
	client, err := open(ctx, cfg, queueName)
	if err != nil {
		return Session{}, fmt.Errorf("open %s client: %w", cfg.Backend, err)
	}
	return Session{
		Client:  client,
		Backend: cfg.Backend,
		close:   client.Close,
	}, nil
}
