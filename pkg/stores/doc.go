// Package stores provides the run journal for incus-composer.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and schema migrations, recording one row per validation run with
// its outcome, violation summary, and timing.
package stores
