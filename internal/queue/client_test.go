package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rustybus/internal/queue"
)

func TestLockedMessageUnlockRunsOnce(t *testing.T) {
	calls := 0
	msg := queue.NewLockedMessage(queue.Message{Body: "{}"}, func(context.Context) error {
		calls++
		return nil
	})
	if !msg.Locked() {
		t.Fatal("expected message to hold a lock")
	}
	for i := 0; i < 3; i++ {
		if err := msg.Unlock(context.Background()); err != nil {
			t.Fatalf("Unlock returned error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected unlock to run once, ran %d times", calls)
	}
	if msg.Locked() {
		t.Fatal("expected lock to be released")
	}
}

func TestLockedMessageWithoutLock(t *testing.T) {
	msg := queue.NewLockedMessage(queue.Message{}, nil)
	if msg.Locked() {
		t.Fatal("expected no lock")
	}
	if err := msg.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	var nilMsg *queue.LockedMessage
	if err := nilMsg.Unlock(context.Background()); err != nil {
		t.Fatalf("nil Unlock returned error: %v", err)
	}
}

func TestLockedMessageUnlockPropagatesError(t *testing.T) {
	msg := queue.NewLockedMessage(queue.Message{Body: "x"}, func(context.Context) error {
		return queue.ErrLockLost
	})
	if err := msg.Unlock(context.Background()); !errors.Is(err, queue.ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestPropertiesRowsSkipsUnknownValues(t *testing.T) {
	props := queue.Properties{
		MessageID:     "abc",
		EnqueuedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DeliveryCount: 2,
	}
	rows := props.Rows()
	want := [][]string{
		{"Message ID", "abc"},
		{"Enqueued", "2024-05-01T12:00:00Z"},
		{"Deliveries", "2"},
	}
	if len(rows) != len(want) {
		t.Fatalf("unexpected rows: %v", rows)
	}
	for i := range want {
		if rows[i][0] != want[i][0] || rows[i][1] != want[i][1] {
			t.Fatalf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
	if len((queue.Properties{}).Rows()) != 0 {
		t.Fatal("expected no rows for zero properties")
	}
}
