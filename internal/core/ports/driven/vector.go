package driven

import (
	"context"
	"math"
)

// VectorIndex stores chunk embeddings and answers cosine nearest-neighbour
// queries. It holds a parallel copy of chunk vectors keyed by chunk ID;
// the metadata store remains the owner of chunk text.
type VectorIndex interface {
	// Upsert inserts or replaces vectors by chunk ID.
	Upsert(ctx context.Context, records ...VectorRecord) error

	// DeleteWhere removes every vector matching the filter and returns the
	// number removed. An empty filter is rejected with domain.ErrInvalidInput.
	DeleteWhere(ctx context.Context, filter VectorFilter) (int, error)

	// Search returns up to k hits ordered by ascending cosine distance.
	// A nil filter searches the whole index.
	Search(ctx context.Context, query []float32, k int, filter *VectorFilter) ([]VectorHit, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored vector with its filterable payload.
type VectorRecord struct {
	ChunkID       string
	FileID        string
	WorkspaceID   string
	WorkspacePath string
	Embedding     []float32
}

// VectorFilter restricts deletes and searches. Set fields are ANDed.
type VectorFilter struct {
	FileID        string
	WorkspaceID   string
	WorkspacePath string
}

// IsEmpty reports whether no field is set.
func (f VectorFilter) IsEmpty() bool {
	return f.FileID == "" && f.WorkspaceID == "" && f.WorkspacePath == ""
}

// Matches reports whether a record satisfies the filter.
func (f VectorFilter) Matches(r VectorRecord) bool {
	if f.FileID != "" && f.FileID != r.FileID {
		return false
	}
	if f.WorkspaceID != "" && f.WorkspaceID != r.WorkspaceID {
		return false
	}
	if f.WorkspacePath != "" && f.WorkspacePath != r.WorkspacePath {
		return false
	}
	return true
}

// VectorHit is a nearest-neighbour result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// FileID is the chunk's owning file.
	FileID string

	// WorkspacePath is the denormalised workspace root.
	WorkspacePath string

	// Distance is the cosine distance (0 identical, 2 opposite).
	Distance float64
}

// CosineDistance returns 1 - cos(a, b). Vectors of different length or
// with zero magnitude are at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
