// Package domain defines the core business entities for sercha-code.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Workspace: The root corpus boundary (a project directory)
//   - Folder: A directory node inside a workspace, used for browsing
//   - IndexedFile: One entry per source file ever indexed
//   - CodeChunk: A line-bounded, embeddable unit of a file
//   - SearchResult: A ranked, line-accurate code snippet
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
