// Package sqlite provides a unified SQLite-based implementation of the
// driven storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. It implements multiple
// store interfaces through a single database connection:
//
//   - UserStore: tenant persistence
//   - DocumentStore: document registration and listing
//   - JobStore: ingestion job state transitions, including the atomic claim
//   - ChunkStore: chunk persistence and similarity search
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Embeddings
//
// Chunk embeddings are stored as little-endian float32 BLOBs. Similarity
// search loads the candidate rows for the tenant and ranks them by Euclidean
// distance in process, which is adequate for the per-tenant corpus sizes this
// store targets.
//
// # Data Location
//
// By default, the database is stored at ~/.vision/data/vision.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
