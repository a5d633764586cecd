package sqlitequeue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rustybus/internal/queue"
)

var _ queue.Client = (*Store)(nil)

type row struct {
	seq           int64
	id            string
	body          string
	enqueuedAt    string
	deliveryCount int
}

func (r row) message() queue.Message {
	enqueued, _ := time.Parse(time.RFC3339Nano, r.enqueuedAt)
	return queue.Message{
		Body: r.body,
		Properties: queue.Properties{
			MessageID:      r.id,
			SequenceNumber: r.seq,
			EnqueuedAt:     enqueued,
			DeliveryCount:  r.deliveryCount,
		},
	}
}

// Send appends body to the queue.
func (s *Store) Send(ctx context.Context, body string) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO messages (id, queue, body, enqueued_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(),
		s.queue,
		body,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ReceiveAndDelete removes the oldest unlocked message. An empty queue
// returns a zero Message.
func (s *Store) ReceiveAndDelete(ctx context.Context) (queue.Message, error) {
	var msg queue.Message
	err := s.withFileLock(ctx, func(ctx context.Context) error {
		return retryOnBusy(ctx, func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			r, found, err := s.oldestUnlocked(ctx, tx)
			if err != nil || !found {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE seq = ?`, r.seq); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			r.deliveryCount++
			msg = r.message()
			return nil
		})
	})
	if err != nil {
		return queue.Message{}, fmt.Errorf("receive message: %w", err)
	}
	return msg, nil
}

// PeekLock waits up to timeout for an unlocked message and locks it in place.
func (s *Store) PeekLock(ctx context.Context, timeout time.Duration) (*queue.LockedMessage, error) {
	deadline := s.now().Add(timeout)
	for {
		locked, err := s.claim(ctx)
		if err != nil {
			return nil, fmt.Errorf("peek message: %w", err)
		}
		if locked != nil {
			return locked, nil
		}
		if !s.now().Before(deadline) {
			return queue.NewLockedMessage(queue.Message{}, nil), nil
		}
		wait := s.pollInterval
		if remaining := deadline.Sub(s.now()); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *Store) claim(ctx context.Context) (*queue.LockedMessage, error) {
	var locked *queue.LockedMessage
	err := s.withFileLock(ctx, func(ctx context.Context) error {
		return retryOnBusy(ctx, func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			r, found, err := s.oldestUnlocked(ctx, tx)
			if err != nil || !found {
				return err
			}
			token := uuid.NewString()
			until := s.now().Add(s.lockDuration)
			if _, err := tx.ExecContext(ctx,
				`UPDATE messages
                    SET lock_token = ?, locked_until = ?, delivery_count = delivery_count + 1
                  WHERE seq = ?`,
				token, until.UnixMilli(), r.seq,
			); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}

			r.deliveryCount++
			msg := r.message()
			msg.Properties.LockToken = token
			msg.Properties.LockedUntil = until
			seq := r.seq
			locked = queue.NewLockedMessage(msg, func(ctx context.Context) error {
				return s.unlock(ctx, seq, token)
			})
			return nil
		})
	})
	return locked, err
}

func (s *Store) unlock(ctx context.Context, seq int64, token string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE messages SET lock_token = NULL, locked_until = 0 WHERE seq = ? AND lock_token = ?`,
		seq, token,
	)
	if err != nil {
		return fmt.Errorf("unlock message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlock message: %w", err)
	}
	if affected == 0 {
		return queue.ErrLockLost
	}
	return nil
}

func (s *Store) oldestUnlocked(ctx context.Context, tx *sql.Tx) (row, bool, error) {
	var r row
	err := tx.QueryRowContext(ctx,
		`SELECT seq, id, body, enqueued_at, delivery_count
           FROM messages
          WHERE queue = ? AND (lock_token IS NULL OR locked_until <= ?)
          ORDER BY seq
          LIMIT 1`,
		s.queue, s.now().UnixMilli(),
	).Scan(&r.seq, &r.id, &r.body, &r.enqueuedAt, &r.deliveryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return row{}, false, nil
	}
	if err != nil {
		return row{}, false, err
	}
	return r, true, nil
}
