package domain

import "time"

// ChunkSpan is a window produced by the chunker: whole lines of a file
// bounded by a token budget.
type ChunkSpan struct {
	// Text is the joined content of the lines in the window.
	Text string

	// LineStart is the first line, 1-indexed and inclusive.
	LineStart int

	// LineEnd is the last line, 1-indexed and inclusive.
	LineEnd int

	// TokenStart is the cumulative token offset where the window begins.
	TokenStart int

	// TokenEnd is the cumulative token offset where the window ends.
	TokenEnd int
}

// Tokens returns the number of tokens covered by the span.
func (s ChunkSpan) Tokens() int {
	return s.TokenEnd - s.TokenStart
}

// CodeChunk is one indexable unit of a file's content.
type CodeChunk struct {
	// ID is derived from the file ID and the line span.
	ID string

	// FileID links to the owning IndexedFile.
	FileID string

	// WorkspaceID links to the owning workspace.
	WorkspaceID string

	// WorkspacePath is denormalised for filter efficiency.
	WorkspacePath string

	// Content is the raw chunk text.
	Content string

	// LineStart is the first line, 1-indexed and inclusive.
	LineStart int

	// LineEnd is the last line, 1-indexed and inclusive.
	LineEnd int

	// StartCharacter is the character offset on the start line, nil when unknown.
	StartCharacter *int

	// EndCharacter is the character offset on the end line, nil when unknown.
	EndCharacter *int

	// Index is the ordinal position within the file, contiguous from 0.
	Index int

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time

	// Embedding is the vector representation produced by the embedding service.
	// It is not persisted by the metadata store.
	Embedding []float32
}
