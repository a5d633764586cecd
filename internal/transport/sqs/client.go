package sqs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"rustybus/internal/queue"
)

const (
	maxWaitSeconds     = 20
	defaultLockSeconds = 30
	attrSentTimestamp  = "SentTimestamp"
	attrReceiveCount   = "ApproximateReceiveCount"
	attrSequenceNumber = "SequenceNumber"
)

// API is the subset of the SQS client the transport calls.
type API interface {
	GetQueueUrl(ctx context.Context, params *awssqs.GetQueueUrlInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *awssqs.ChangeMessageVisibilityInput, optFns ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error)
}

// Options configures a Client.
type Options struct {
	Queue string
	// QueueURL skips the GetQueueUrl lookup when set.
	QueueURL string
	// Region and Endpoint feed the AWS default config loader in Open.
	Region   string
	Endpoint string
	// WaitSeconds is the long-poll duration for receive-and-delete.
	WaitSeconds int32
	// LockSeconds is the visibility timeout applied by PeekLock.
	LockSeconds int32
}

// Client is a queue.Client for one SQS queue.
type Client struct {
	api         API
	queueName   string
	queueURL    string
	waitSeconds int32
	lockSeconds int32
}

var _ queue.Client = (*Client)(nil)

// Open loads AWS configuration from the environment. The queue URL is
// resolved on first use.
func Open(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(opts.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	api := awssqs.NewFromConfig(cfg, func(o *awssqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(api, opts)
}

// New wraps an existing SQS API client. It makes no requests.
func New(api API, opts Options) (*Client, error) {
	if api == nil {
		return nil, errors.New("sqs client is required")
	}
	queueURL := strings.TrimSpace(opts.QueueURL)
	name := strings.TrimSpace(opts.Queue)
	if queueURL == "" && name == "" {
		return nil, errors.New("queue name is required")
	}

	lockSeconds := opts.LockSeconds
	if lockSeconds <= 0 {
		lockSeconds = defaultLockSeconds
	}
	return &Client{
		api:         api,
		queueName:   name,
		queueURL:    queueURL,
		waitSeconds: clampWait(opts.WaitSeconds),
		lockSeconds: lockSeconds,
	}, nil
}

// resolveURL looks the queue URL up once and caches it.
func (c *Client) resolveURL(ctx context.Context) (string, error) {
	if c.queueURL != "" {
		return c.queueURL, nil
	}
	out, err := c.api.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(c.queueName)})
	if err != nil {
		return "", fmt.Errorf("resolve queue url for %q: %w", c.queueName, err)
	}
	c.queueURL = aws.ToString(out.QueueUrl)
	return c.queueURL, nil
}

// Close is a no-op; the SDK client has nothing to release.
func (c *Client) Close() error {
	return nil
}

// Send enqueues body.
func (c *Client) Send(ctx context.Context, body string) error {
	queueURL, err := c.resolveURL(ctx)
	if err != nil {
		return err
	}
	_, err = c.api.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// ReceiveAndDelete receives one message and deletes it immediately.
func (c *Client) ReceiveAndDelete(ctx context.Context) (queue.Message, error) {
	raw, ok, err := c.receive(ctx, c.waitSeconds, 0)
	if err != nil || !ok {
		return queue.Message{}, err
	}
	_, err = c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: raw.ReceiptHandle,
	})
	if err != nil {
		return queue.Message{}, fmt.Errorf("delete message: %w", err)
	}
	return toMessage(raw), nil
}

// PeekLock hides one message for the configured lock duration.
func (c *Client) PeekLock(ctx context.Context, timeout time.Duration) (*queue.LockedMessage, error) {
	raw, ok, err := c.receive(ctx, clampWait(int32(timeout/time.Second)), c.lockSeconds)
	if err != nil {
		return nil, err
	}
	if !ok {
		return queue.NewLockedMessage(queue.Message{}, nil), nil
	}

	msg := toMessage(raw)
	msg.Properties.LockToken = aws.ToString(raw.ReceiptHandle)
	msg.Properties.LockedUntil = time.Now().Add(time.Duration(c.lockSeconds) * time.Second)
	handle := raw.ReceiptHandle
	return queue.NewLockedMessage(msg, func(ctx context.Context) error {
		_, err := c.api.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(c.queueURL),
			ReceiptHandle:     handle,
			VisibilityTimeout: 0,
		})
		if err != nil {
			return fmt.Errorf("unlock message: %w", err)
		}
		return nil
	}), nil
}

func (c *Client) receive(ctx context.Context, waitSeconds, visibility int32) (types.Message, bool, error) {
	queueURL, err := c.resolveURL(ctx)
	if err != nil {
		return types.Message{}, false, err
	}
	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		AttributeNames:      []types.QueueAttributeName{types.QueueAttributeNameAll},
		MaxNumberOfMessages: 1,
		VisibilityTimeout:   visibility,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return types.Message{}, false, fmt.Errorf("receive message: %w", err)
	}
	if out == nil || len(out.Messages) == 0 {
		return types.Message{}, false, nil
	}
	return out.Messages[0], true, nil
}

func toMessage(raw types.Message) queue.Message {
	props := queue.Properties{MessageID: aws.ToString(raw.MessageId)}
	if ms, err := strconv.ParseInt(raw.Attributes[attrSentTimestamp], 10, 64); err == nil {
		props.EnqueuedAt = time.UnixMilli(ms).UTC()
	}
	if count, err := strconv.Atoi(raw.Attributes[attrReceiveCount]); err == nil {
		props.DeliveryCount = count
	}
	if seq, err := strconv.ParseInt(raw.Attributes[attrSequenceNumber], 10, 64); err == nil {
		props.SequenceNumber = seq
	}
	return queue.Message{Body: aws.ToString(raw.Body), Properties: props}
}

func clampWait(seconds int32) int32 {
	switch {
	case seconds < 0:
		return 0
	case seconds > maxWaitSeconds:
		return maxWaitSeconds
	default:
		return seconds
	}
}
