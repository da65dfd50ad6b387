package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotInitialized indicates a store or index was used before it was ready
	// (or after it was closed). It always fails fast and never silently no-ops.
	ErrNotInitialized = errors.New("not initialized")

	// ErrNotFound indicates a requested entity does not exist.
	// Store lookups report absence as a nil result instead; this error is
	// reserved for operations that require the entity to exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrIndexingInProgress indicates an indexing run is already active.
	// Index requests are rejected, never queued.
	ErrIndexingInProgress = errors.New("already indexing")

	// ErrSearchFailed indicates a search could not be completed.
	// No partial results accompany this error.
	ErrSearchFailed = errors.New("search failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrTokenizerUnavailable indicates the tokenizer could not be loaded.
	ErrTokenizerUnavailable = errors.New("tokenizer unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// FileError records a single file's failure during a batch indexing run.
// The run continues after a FileError; it is never escalated to a run failure.
type FileError struct {
	// Path is the file path relative to the workspace root.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FileError) Unwrap() error {
	return e.Err
}
