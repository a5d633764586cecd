// Package logging assembles the slog loggers used by rustybus.
//
// Diagnostics always go to stderr by default so stdout carries nothing but
// command output. Two formats are available: a human console format that
// renders the component as a bracketed prefix, and JSON for machine
// consumption. A no-op logger is provided for tests and wiring code.
package logging
