// Package sqlite provides SQLite-based implementations of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Two databases are managed:
//
//   - metadata.db (Store): DocumentStore and AuditStore through wrapper types
//   - vectors.db (VectorStore): embeddings with brute-force cosine search
//
// # Schema
//
// Schemas are managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Concurrency
//
// Databases run in WAL mode with a busy timeout, set per connection in the DSN.
// Version updates are a compare-and-swap inside one transaction whose first
// statement is the write, so concurrent committers serialise on SQLite's
// write lock and the loser observes the new version.
package sqlite
