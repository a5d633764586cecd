// Package stdin collects text piped into the process.
//
// A Sniffer reads lines on its own goroutine so the caller can decide how
// long to wait; Drain then takes everything that arrived without blocking. When
// nothing was piped the caller sees an Input with Present false and the
// placeholder text "Empty".
package stdin
