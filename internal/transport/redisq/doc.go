// Package redisq implements queue.Client on a Redis list.
//
// Each queue is a list of JSON envelopes; senders push on the head and the
// oldest message sits at the tail. Peek-lock claims a message with a SET NX
// lock key carrying a random token, and unlock deletes that key only while
// the token still matches.
package redisq
