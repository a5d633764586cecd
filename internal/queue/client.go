package queue

import (
	"context"
	"errors"
	"time"
)

// ErrLockLost reports that a peek lock expired or was claimed by someone else
// before it could be released.
var ErrLockLost = errors.New("message lock lost")

// Client is the transport contract the operations run against. Each
// invocation owns exactly one Client and uses it from a single goroutine.
type Client interface {
	// Send enqueues body as a single message.
	Send(ctx context.Context, body string) error
	// ReceiveAndDelete removes and returns at most one message. An empty
	// queue yields a zero Message rather than an error.
	ReceiveAndDelete(ctx context.Context) (Message, error)
	// PeekLock waits up to timeout for a message and locks it without
	// removing it. An empty queue yields a LockedMessage with no lock.
	PeekLock(ctx context.Context, timeout time.Duration) (*LockedMessage, error)
	Close() error
}

// UnlockFunc releases a peek lock.
type UnlockFunc func(ctx context.Context) error

// LockedMessage is a peeked message together with the lock that keeps other
// consumers away from it until Unlock is called or the lock expires.
type LockedMessage struct {
	Message
	unlock UnlockFunc
}

// NewLockedMessage pairs msg with its release function. A nil unlock means
// no lock is held.
func NewLockedMessage(msg Message, unlock UnlockFunc) *LockedMessage {
	return &LockedMessage{Message: msg, unlock: unlock}
}

// Locked reports whether a lock is still held.
func (m *LockedMessage) Locked() bool {
	return m != nil && m.unlock != nil
}

// Unlock releases the lock. It is safe to call more than once and on a
// message that never held a lock.
func (m *LockedMessage) Unlock(ctx context.Context) error {
	if !m.Locked() {
		return nil
	}
	fn := m.unlock
	m.unlock = nil
	return fn(ctx)
}
