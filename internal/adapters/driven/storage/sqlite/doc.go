// Package sqlite provides a unified SQLite-based implementation of the
// metadata store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. It implements multiple
// store interfaces through a single database connection:
//
//   - FileStore: file record persistence
//   - DigestStore: digest record persistence
//   - LockStore: per-file processing locks
//   - ChunkStore: chunk bookkeeping for idempotent re-indexing
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.lifedex/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
