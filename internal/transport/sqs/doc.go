// Package sqs adapts an Amazon SQS queue to queue.Client.
//
// SQS has no native peek, so PeekLock receives a message with a visibility
// timeout and Unlock resets that timeout to zero. Receive-and-delete is a
// receive followed by a delete of the returned receipt handle.
package sqs
