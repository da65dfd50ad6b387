package driven

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// Chunker splits file content into token-bounded, line-aligned spans.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits content. Empty content yields no spans. A chunker never
	// fails: if tokenization is unavailable it returns the whole document
	// as a single span.
	Chunk(ctx context.Context, content string, maxTokens, overlapTokens int) []domain.ChunkSpan
}
