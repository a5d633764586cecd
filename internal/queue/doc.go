// Package queue defines the transport contract shared by every backend.
//
// A Client sends one message, receives-and-deletes one message, or peeks at
// one message under a lock. Transports report an empty queue as a zero
// Message instead of an error so callers can present it however they like.
// LockedMessage owns the peek lock; release it on every path.
package queue
