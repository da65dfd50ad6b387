// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database serves:
//
//   - MetadataStore: workspace, folder, file and chunk persistence
//   - VectorIndex: chunk vectors with brute-force cosine search
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and applied versions are recorded in schema_migrations.
//
// The vector table has no foreign key to chunks: the indexing service
// orders vector and chunk writes itself.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-code/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
