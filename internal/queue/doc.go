// Package queue persists conversion jobs in SQLite and exposes the
// transitions the workflow manager drives them through. Jobs move
// pending -> preparing -> prepared -> composing -> completed, with failed as
// the terminal error state. The store serializes concurrent access with WAL
// mode plus bounded busy retries so the daemon and CLI can share a database.
package queue
