package queue

import (
	"strconv"
	"time"
)

// Message is a single queue payload. Bodies are usually JSON but nothing here
// enforces a schema.
type Message struct {
	Body       string
	Properties Properties
}

// Properties carries broker metadata reported alongside a message. Transports
// fill in whatever they know; zero values mean unknown.
type Properties struct {
	MessageID      string
	SequenceNumber int64
	EnqueuedAt     time.Time
	DeliveryCount  int
	LockToken      string
	LockedUntil    time.Time
}

// Empty reports whether the message carries no payload, which is how
// transports represent an empty queue.
func (m Message) Empty() bool {
	return m.Body == ""
}

// Rows returns label/value pairs for the known properties in display order.
func (p Properties) Rows() [][]string {
	var rows [][]string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, []string{label, value})
		}
	}
	add("Message ID", p.MessageID)
	if p.SequenceNumber > 0 {
		add("Sequence", strconv.FormatInt(p.SequenceNumber, 10))
	}
	if !p.EnqueuedAt.IsZero() {
		add("Enqueued", p.EnqueuedAt.UTC().Format(time.RFC3339))
	}
	if p.DeliveryCount > 0 {
		add("Deliveries", strconv.Itoa(p.DeliveryCount))
	}
	add("Lock token", p.LockToken)
	if !p.LockedUntil.IsZero() {
		add("Locked until", p.LockedUntil.UTC().Format(time.RFC3339))
	}
	return rows
}
