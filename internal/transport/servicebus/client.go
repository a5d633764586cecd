package servicebus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"

	"rustybus/internal/queue"
)

const (
	defaultEndpointSuffix   = "servicebus.windows.net"
	defaultOperationTimeout = 90 * time.Second
	defaultReceiveWait      = 5 * time.Second
)

// Sender is the part of *azservicebus.Sender the client uses.
type Sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// Receiver is the part of *azservicebus.Receiver the client uses.
type Receiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	Close(ctx context.Context) error
}

// Namespace opens links to one Service Bus namespace.
type Namespace interface {
	NewSender(queueName string) (Sender, error)
	NewReceiver(queueName string, mode azservicebus.ReceiveMode) (Receiver, error)
	Close(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	Namespace  string
	Queue      string
	PolicyName string
	PolicyKey  string
	// Endpoint overrides <namespace>.servicebus.windows.net. A localhost
	// endpoint selects the development emulator.
	Endpoint string
	// OperationTimeout bounds each send, receive, and unlock.
	OperationTimeout time.Duration
	// ReceiveWait is how long ReceiveAndDelete waits for a message.
	ReceiveWait time.Duration
}

// Client is a queue.Client for a single Service Bus queue.
type Client struct {
	ns               Namespace
	queue            string
	operationTimeout time.Duration
	receiveWait      time.Duration
}

var _ queue.Client = (*Client)(nil)

// New builds a client from a namespace policy. No connection is made until
// the first operation.
func New(opts Options) (*Client, error) {
	conn, err := ConnectionString(opts)
	if err != nil {
		return nil, err
	}
	sb, err := azservicebus.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("create service bus client: %w", err)
	}
	return newClient(sdkNamespace{client: sb}, opts)
}

func newClient(ns Namespace, opts Options) (*Client, error) {
	queueName := strings.TrimSpace(opts.Queue)
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	c := &Client{
		ns:               ns,
		queue:            queueName,
		operationTimeout: opts.OperationTimeout,
		receiveWait:      opts.ReceiveWait,
	}
	if c.operationTimeout <= 0 {
		c.operationTimeout = defaultOperationTimeout
	}
	if c.receiveWait <= 0 {
		c.receiveWait = defaultReceiveWait
	}
	return c, nil
}

// ConnectionString renders the shared-access connection string for opts.
func ConnectionString(opts Options) (string, error) {
	policyName := strings.TrimSpace(opts.PolicyName)
	if policyName == "" {
		return "", errors.New("policy name is required")
	}
	if opts.PolicyKey == "" {
		return "", errors.New("policy key is required")
	}
	host, err := endpointHost(opts)
	if err != nil {
		return "", err
	}
	conn := fmt.Sprintf("Endpoint=sb://%s/;SharedAccessKeyName=%s;SharedAccessKey=%s", host, policyName, opts.PolicyKey)
	if isLocal(host) {
		conn += ";UseDevelopmentEmulator=true"
	}
	return conn, nil
}

func endpointHost(opts Options) (string, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		namespace := strings.TrimSpace(opts.Namespace)
		if namespace == "" {
			return "", errors.New("namespace is required")
		}
		return namespace + "." + defaultEndpointSuffix, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "sb://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("parse endpoint %q: invalid host", opts.Endpoint)
	}
	return u.Host, nil
}

func isLocal(host string) bool {
	name := host
	if i := strings.LastIndex(host, ":"); i >= 0 {
		name = host[:i]
	}
	return name == "localhost" || name == "127.0.0.1"
}

// Close shuts the AMQP connection down.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.operationTimeout)
	defer cancel()
	return c.ns.Close(ctx)
}

// Send enqueues body with a fresh message id.
func (c *Client) Send(ctx context.Context, body string) error {
	sender, err := c.ns.NewSender(c.queue)
	if err != nil {
		return fmt.Errorf("open sender: %w", err)
	}
	defer closeLink(sender.Close, c.operationTimeout)

	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()
	id := uuid.NewString()
	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: []byte(body), MessageID: &id}, nil); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// ReceiveAndDelete removes the head of the queue, waiting briefly for one to
// arrive.
func (c *Client) ReceiveAndDelete(ctx context.Context) (queue.Message, error) {
	receiver, err := c.ns.NewReceiver(c.queue, azservicebus.ReceiveModeReceiveAndDelete)
	if err != nil {
		return queue.Message{}, fmt.Errorf("open receiver: %w", err)
	}
	defer closeLink(receiver.Close, c.operationTimeout)

	msg, err := receiveOne(ctx, receiver, c.receiveWait)
	if err != nil || msg == nil {
		return queue.Message{}, err
	}
	return toMessage(msg), nil
}

// PeekLock locks the head of the queue, waiting up to timeout for a message.
// Unlock abandons the message so it becomes visible again.
func (c *Client) PeekLock(ctx context.Context, timeout time.Duration) (*queue.LockedMessage, error) {
	receiver, err := c.ns.NewReceiver(c.queue, azservicebus.ReceiveModePeekLock)
	if err != nil {
		return nil, fmt.Errorf("open receiver: %w", err)
	}

	msg, err := receiveOne(ctx, receiver, timeout)
	if err != nil || msg == nil {
		closeLink(receiver.Close, c.operationTimeout)
		if err != nil {
			return nil, err
		}
		return queue.NewLockedMessage(queue.Message{}, nil), nil
	}

	return queue.NewLockedMessage(toMessage(msg), func(ctx context.Context) error {
		defer closeLink(receiver.Close, c.operationTimeout)
		ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
		defer cancel()
		if err := receiver.AbandonMessage(ctx, msg, nil); err != nil {
			var sbErr *azservicebus.Error
			if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeLockLost {
				return fmt.Errorf("%w: %w", queue.ErrLockLost, err)
			}
			return fmt.Errorf("unlock message: %w", err)
		}
		return nil
	}), nil
}

// receiveOne waits up to wait for a single message. Running out of time with
// nothing received is an empty result, not an error.
func receiveOne(ctx context.Context, receiver Receiver, wait time.Duration) (*azservicebus.ReceivedMessage, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	msgs, err := receiver.ReceiveMessages(waitCtx, 1, nil)
	if len(msgs) > 0 {
		return msgs[0], nil
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("receive message: %w", err)
	}
	return nil, nil
}

func toMessage(msg *azservicebus.ReceivedMessage) queue.Message {
	props := queue.Properties{
		MessageID:     msg.MessageID,
		DeliveryCount: int(msg.DeliveryCount),
	}
	if msg.SequenceNumber != nil {
		props.SequenceNumber = *msg.SequenceNumber
	}
	if msg.EnqueuedTime != nil {
		props.EnqueuedAt = msg.EnqueuedTime.UTC()
	}
	if token := uuid.UUID(msg.LockToken); token != uuid.Nil {
		props.LockToken = token.String()
	}
	if msg.LockedUntil != nil {
		props.LockedUntil = msg.LockedUntil.UTC()
	}
	return queue.Message{Body: string(msg.Body), Properties: props}
}

func closeLink(closeFn func(context.Context) error, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = closeFn(ctx)
}

// sdkNamespace adapts *azservicebus.Client to Namespace.
type sdkNamespace struct {
	client *azservicebus.Client
}

func (n sdkNamespace) NewSender(queueName string) (Sender, error) {
	return n.client.NewSender(queueName, nil)
}

func (n sdkNamespace) NewReceiver(queueName string, mode azservicebus.ReceiveMode) (Receiver, error) {
	return n.client.NewReceiverForQueue(queueName, &azservicebus.ReceiverOptions{ReceiveMode: mode})
}

func (n sdkNamespace) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}
