package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rustybus/internal/queue"
)

const (
	defaultPrefix       = "rustybus"
	defaultLockDuration = 30 * time.Second
	defaultPollInterval = 100 * time.Millisecond
	connectTimeout      = 5 * time.Second
)

// receiveScript removes the oldest envelope whose lock key is absent and
// returns it. Entries without an id are left alone. ARGV[1] is the lock key
// prefix.
var receiveScript = redis.NewScript(`
local entries = redis.call("LRANGE", KEYS[1], 0, -1)
for i = #entries, 1, -1 do
	local ok, env = pcall(cjson.decode, entries[i])
	if ok and type(env) == "table" and type(env.id) == "string" and env.id ~= "" then
		if redis.call("EXISTS", ARGV[1] .. env.id) == 0 then
			redis.call("LREM", KEYS[1], -1, entries[i])
			return entries[i]
		end
	end
end
return false
`)

// unlockScript deletes the lock key only when it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options configures a Client.
type Options struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	Queue        string
	LockDuration time.Duration
	PollInterval time.Duration
}

// Client is a queue.Client backed by Redis.
type Client struct {
	rdb          *redis.Client
	addr         string
	connected    bool
	listKey      string
	lockPrefix   string
	seqKey       string
	lockDuration time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

var _ queue.Client = (*Client)(nil)

type envelope struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Open prepares a client for addr. No connection is made until the first
// queue operation.
func Open(_ context.Context, opts Options) (*Client, error) {
	name := strings.TrimSpace(opts.Queue)
	if name == "" {
		return nil, errors.New("queue name is required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	c := newClient(rdb, opts.Prefix, name, opts.LockDuration, opts.PollInterval)
	c.addr = addr
	return c, nil
}

func newClient(rdb *redis.Client, prefix, name string, lockDuration, pollInterval time.Duration) *Client {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if lockDuration <= 0 {
		lockDuration = defaultLockDuration
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	base := prefix + ":" + name
	return &Client{
		rdb:          rdb,
		listKey:      base,
		lockPrefix:   base + ":lock:",
		seqKey:       base + ":seq",
		lockDuration: lockDuration,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// connect verifies the server with PING before the first command.
func (c *Client) connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", c.addr, err)
	}
	c.connected = true
	return nil
}

// Close releases the Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Send pushes body onto the head of the list.
func (c *Client) Send(ctx context.Context, body string) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	seq, err := c.rdb.Incr(ctx, c.seqKey).Result()
	if err != nil {
		return fmt.Errorf("allocate sequence: %w", err)
	}
	raw, err := json.Marshal(envelope{
		ID:         uuid.NewString(),
		Seq:        seq,
		Body:       body,
		EnqueuedAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := c.rdb.LPush(ctx, c.listKey, raw).Err(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// ReceiveAndDelete removes the oldest message that is not peek-locked. The
// lock check and the removal run as one script.
func (c *Client) ReceiveAndDelete(ctx context.Context) (queue.Message, error) {
	if err := c.connect(ctx); err != nil {
		return queue.Message{}, err
	}
	raw, err := receiveScript.Run(ctx, c.rdb, []string{c.listKey}, c.lockPrefix).Text()
	if errors.Is(err, redis.Nil) {
		return queue.Message{}, nil
	}
	if err != nil {
		return queue.Message{}, fmt.Errorf("receive message: %w", err)
	}
	env, ok := decodeEnvelope(raw)
	if !ok {
		return queue.Message{}, fmt.Errorf("receive message: malformed envelope")
	}
	msg := env.message()
	msg.Properties.DeliveryCount = 1
	return msg, nil
}

// PeekLock waits up to timeout for an unlocked message and claims it.
func (c *Client) PeekLock(ctx context.Context, timeout time.Duration) (*queue.LockedMessage, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	deadline := c.now().Add(timeout)
	for {
		locked, err := c.claim(ctx)
		if err != nil {
			return nil, fmt.Errorf("peek message: %w", err)
		}
		if locked != nil {
			return locked, nil
		}
		if !c.now().Before(deadline) {
			return queue.NewLockedMessage(queue.Message{}, nil), nil
		}
		wait := c.pollInterval
		if remaining := deadline.Sub(c.now()); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) claim(ctx context.Context) (*queue.LockedMessage, error) {
	items, err := c.rdb.LRange(ctx, c.listKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for i := len(items) - 1; i >= 0; i-- {
		env, ok := decodeEnvelope(items[i])
		if !ok {
			continue
		}
		token := uuid.NewString()
		key := c.lockKey(env.ID)
		acquired, err := c.rdb.SetNX(ctx, key, token, c.lockDuration).Result()
		if err != nil {
			return nil, err
		}
		if !acquired {
			continue
		}
		msg := env.message()
		msg.Properties.LockToken = token
		msg.Properties.LockedUntil = c.now().Add(c.lockDuration)
		msg.Properties.DeliveryCount = 1
		return queue.NewLockedMessage(msg, func(ctx context.Context) error {
			return c.unlock(ctx, key, token)
		}), nil
	}
	return nil, nil
}

func (c *Client) unlock(ctx context.Context, key, token string) error {
	deleted, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("unlock message: %w", err)
	}
	if deleted == 0 {
		return queue.ErrLockLost
	}
	return nil
}

func (c *Client) lockKey(id string) string {
	return c.lockPrefix + id
}

// decodeEnvelope skips list entries that were not written by Send.
func decodeEnvelope(raw string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.ID == "" {
		return envelope{}, false
	}
	return env, true
}

func (e envelope) message() queue.Message {
	return queue.Message{
		Body: e.Body,
		Properties: queue.Properties{
			MessageID:      e.ID,
			SequenceNumber: e.Seq,
			EnqueuedAt:     e.EnqueuedAt,
		},
	}
}
