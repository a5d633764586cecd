package redisq

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"rustybus/internal/queue"
)

func TestDecodeEnvelopeSkipsForeignEntries(t *testing.T) {
	if _, ok := decodeEnvelope("plain text"); ok {
		t.Fatal("expected plain text to be skipped")
	}
	if _, ok := decodeEnvelope(`{"body":"no id"}`); ok {
		t.Fatal("expected envelope without id to be skipped")
	}
	env, ok := decodeEnvelope(`{"id":"m-1","seq":4,"body":"hi","enqueued_at":"2024-05-01T12:00:00Z"}`)
	if !ok {
		t.Fatal("expected envelope to decode")
	}
	msg := env.message()
	if msg.Body != "hi" || msg.Properties.MessageID != "m-1" || msg.Properties.SequenceNumber != 4 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestNewClientKeys(t *testing.T) {
	c := newClient(nil, "", "orders", 0, 0)
	if c.listKey != "rustybus:orders" {
		t.Fatalf("unexpected list key %q", c.listKey)
	}
	if got := c.lockKey("abc"); got != "rustybus:orders:lock:abc" {
		t.Fatalf("unexpected lock key %q", got)
	}
	if c.lockDuration != defaultLockDuration || c.pollInterval != defaultPollInterval {
		t.Fatal("expected defaults to apply")
	}
}

func TestOpenRejectsMissingFields(t *testing.T) {
	if _, err := Open(context.Background(), Options{Addr: "localhost:6379"}); err == nil {
		t.Fatal("expected error for missing queue")
	}
	if _, err := Open(context.Background(), Options{Queue: "q"}); err == nil {
		t.Fatal("expected error for missing address")
	}
}

func TestOpenDefersConnection(t *testing.T) {
	client, err := Open(context.Background(), Options{Addr: "127.0.0.1:1", Queue: "orders"})
	if err != nil {
		t.Fatalf("Open should not dial, got %v", err)
	}
	defer client.Close()

	err = client.Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "connect to redis at 127.0.0.1:1") {
		t.Fatalf("expected connection error on first use, got %v", err)
	}
}

func openIntegrationClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	addr := os.Getenv("RUSTYBUS_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := Open(context.Background(), Options{
		Addr:         addr,
		Prefix:       "rustybus-test-" + uuid.NewString(),
		Queue:        "orders",
		LockDuration: time.Minute,
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := client.connect(context.Background()); err != nil {
		_ = client.Close()
		t.Skipf("redis not available, skipping test: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.rdb.Keys(ctx, client.listKey+"*").Result()
		if len(keys) > 0 {
			_ = client.rdb.Del(ctx, keys...).Err()
		}
		_ = client.Close()
	})
	return client
}

func TestRedisQueueIntegration(t *testing.T) {
	client := openIntegrationClient(t)
	ctx := context.Background()

	t.Run("fifo receive", func(t *testing.T) {
		for _, body := range []string{"one", "two"} {
			if err := client.Send(ctx, body); err != nil {
				t.Fatalf("Send: %v", err)
			}
		}
		first, err := client.ReceiveAndDelete(ctx)
		if err != nil {
			t.Fatalf("ReceiveAndDelete: %v", err)
		}
		second, err := client.ReceiveAndDelete(ctx)
		if err != nil {
			t.Fatalf("ReceiveAndDelete: %v", err)
		}
		if first.Body != "one" || second.Body != "two" {
			t.Fatalf("unexpected order %q, %q", first.Body, second.Body)
		}
		if second.Properties.SequenceNumber <= first.Properties.SequenceNumber {
			t.Fatal("expected increasing sequence numbers")
		}
	})

	t.Run("peek lock hides and unlock restores", func(t *testing.T) {
		if err := client.Send(ctx, "locked"); err != nil {
			t.Fatalf("Send: %v", err)
		}
		peeked, err := client.PeekLock(ctx, time.Second)
		if err != nil {
			t.Fatalf("PeekLock: %v", err)
		}
		if !peeked.Locked() || peeked.Body != "locked" {
			t.Fatalf("unexpected peek %+v", peeked.Message)
		}
		hidden, err := client.ReceiveAndDelete(ctx)
		if err != nil {
			t.Fatalf("ReceiveAndDelete: %v", err)
		}
		if !hidden.Empty() {
			t.Fatalf("locked message delivered: %q", hidden.Body)
		}
		if err := peeked.Unlock(ctx); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		again, err := client.ReceiveAndDelete(ctx)
		if err != nil {
			t.Fatalf("ReceiveAndDelete: %v", err)
		}
		if again.Body != "locked" {
			t.Fatalf("expected message after unlock, got %q", again.Body)
		}
	})

	t.Run("stale unlock reports lock lost", func(t *testing.T) {
		if err := client.Send(ctx, "stale"); err != nil {
			t.Fatalf("Send: %v", err)
		}
		peeked, err := client.PeekLock(ctx, time.Second)
		if err != nil {
			t.Fatalf("PeekLock: %v", err)
		}
		if err := client.rdb.Del(ctx, client.lockKey(peeked.Properties.MessageID)).Err(); err != nil {
			t.Fatalf("Del: %v", err)
		}
		if err := peeked.Unlock(ctx); !errors.Is(err, queue.ErrLockLost) {
			t.Fatalf("expected ErrLockLost, got %v", err)
		}
		_, _ = client.ReceiveAndDelete(ctx)
	})

	t.Run("receive skips foreign entries", func(t *testing.T) {
		if err := client.rdb.RPush(ctx, client.listKey, "not an envelope").Err(); err != nil {
			t.Fatalf("RPush: %v", err)
		}
		if err := client.Send(ctx, "mine"); err != nil {
			t.Fatalf("Send: %v", err)
		}
		got, err := client.ReceiveAndDelete(ctx)
		if err != nil {
			t.Fatalf("ReceiveAndDelete: %v", err)
		}
		if got.Body != "mine" {
			t.Fatalf("expected own envelope, got %q", got.Body)
		}
		if n, _ := client.rdb.LLen(ctx, client.listKey).Result(); n != 1 {
			t.Fatalf("expected foreign entry to remain, list length %d", n)
		}
		_ = client.rdb.Del(ctx, client.listKey).Err()
	})

	t.Run("empty peek waits for timeout", func(t *testing.T) {
		start := time.Now()
		peeked, err := client.PeekLock(ctx, 30*time.Millisecond)
		if err != nil {
			t.Fatalf("PeekLock: %v", err)
		}
		if time.Since(start) < 30*time.Millisecond {
			t.Fatal("returned before timeout")
		}
		if peeked.Locked() || !peeked.Empty() {
			t.Fatalf("expected empty result, got %+v", peeked.Message)
		}
	})
}
