package driven

import "github.com/custodia-labs/sercha-code/internal/core/domain"

// EmbeddingValidator checks that an embedding configuration can reach its
// provider.
type EmbeddingValidator interface {
	// ValidateEmbedding builds a client for config and pings it.
	// An unconfigured provider is not an error.
	ValidateEmbedding(config *domain.EmbeddingSettings) error
}
