// Package operations implements the three queue flows a rustybus run can
// perform: send, receive-and-delete, and peek.
//
// Each flow makes at most one transport round trip (plus an unlock for
// peek), writes its user-facing result line to the configured writer, and
// returns an *Error for transport failures. An empty queue and a body that
// is not JSON are reported the same way, as "No messages in queue".
package operations
