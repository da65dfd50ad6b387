package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex using
// exhaustive cosine search.
type VectorIndex struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
	closed  bool
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{records: make(map[string]driven.VectorRecord)}
}

// Upsert inserts or replaces vectors by chunk ID.
func (v *VectorIndex) Upsert(_ context.Context, records ...driven.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return domain.ErrNotInitialized
	}

	for _, r := range records {
		if r.ChunkID == "" || len(r.Embedding) == 0 {
			return fmt.Errorf("%w: vector record needs a chunk id and embedding", domain.ErrInvalidInput)
		}
	}
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		v.records[r.ChunkID] = r
	}
	return nil
}

// DeleteWhere removes every vector matching the filter.
func (v *VectorIndex) DeleteWhere(_ context.Context, filter driven.VectorFilter) (int, error) {
	if filter.IsEmpty() {
		return 0, fmt.Errorf("%w: empty vector filter", domain.ErrInvalidInput)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, domain.ErrNotInitialized
	}

	removed := 0
	for id, r := range v.records {
		if filter.Matches(r) {
			delete(v.records, id)
			removed++
		}
	}
	return removed, nil
}

// Search returns up to k hits ordered by ascending cosine distance.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int, filter *driven.VectorFilter) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, domain.ErrNotInitialized
	}
	if k <= 0 {
		return nil, nil
	}

	var hits []driven.VectorHit
	for _, r := range v.records {
		if filter != nil && !filter.Matches(r) {
			continue
		}
		if len(r.Embedding) != len(query) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:       r.ChunkID,
			FileID:        r.FileID,
			WorkspacePath: r.WorkspacePath,
			Distance:      driven.CosineDistance(query, r.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return 0, domain.ErrNotInitialized
	}
	return len(v.records), nil
}

// Has reports whether a vector is stored for chunkID.
func (v *VectorIndex) Has(chunkID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.records[chunkID]
	return ok
}

// Close marks the index closed.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
