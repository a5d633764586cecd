package sqlitequeue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	defaultLockDuration = 30 * time.Second
	defaultPollInterval = 100 * time.Millisecond
	claimLockRetryDelay = 10 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// Path is the database file; its directory is created when missing.
	Path string
	// Queue names the logical queue every operation targets.
	Queue string
	// LockDuration bounds how long a peek lock survives without Unlock.
	LockDuration time.Duration
	// PollInterval is the delay between claim attempts while PeekLock waits.
	PollInterval time.Duration
}

// Store is a queue.Client backed by SQLite.
type Store struct {
	db           *sql.DB
	queue        string
	fileLock     *flock.Flock
	lockDuration time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

// Open initializes or connects to the queue database.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("sqlite queue path is required")
	}
	queueName := strings.TrimSpace(opts.Queue)
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:           db,
		queue:        queueName,
		fileLock:     flock.New(path + ".lock"),
		lockDuration: opts.LockDuration,
		pollInterval: opts.PollInterval,
		now:          time.Now,
	}
	if store.lockDuration <= 0 {
		store.lockDuration = defaultLockDuration
	}
	if store.pollInterval <= 0 {
		store.pollInterval = defaultPollInterval
	}

	if err := store.withFileLock(ctx, store.initSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withFileLock runs fn while holding the exclusive lock file beside the database.
func (s *Store) withFileLock(ctx context.Context, fn func(context.Context) error) error {
	locked, err := s.fileLock.TryLockContext(ctx, claimLockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire queue lock %s: %w", s.fileLock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("acquire queue lock %s: lock unavailable", s.fileLock.Path())
	}
	defer func() { _ = s.fileLock.Unlock() }()
	return fn(ctx)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
