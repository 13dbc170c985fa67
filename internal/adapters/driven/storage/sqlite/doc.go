// Package sqlite provides a SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database serves two stores:
//
//   - MetadataStore: document metadata records with an FTS5 full-text index,
//     also implementing driven.MetadataSearcher
//   - VectorIndex: embedded chunks scored by brute-force cosine similarity
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The database is stored at {metadata_path}/metadata.db, by default
// ~/.knowledge-flow/sqlite/metadata.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
