// Package sqlitequeue implements queue.Client on top of a local SQLite file.
//
// Every queue shares one messages table keyed by queue name. Claims (receive
// and peek) take an exclusive file lock next to the database so concurrent
// invocations never hand the same row to two consumers. Peek locks are rows
// with a token and an expiry; an expired lock is simply ignored.
//
// The database is scratch storage for local development and tests. Schema
// changes bump schemaVersion; delete the file to adopt a new schema.
package sqlitequeue
