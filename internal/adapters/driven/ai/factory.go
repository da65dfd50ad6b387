// Package ai provides factory functions for creating embedding and vector
// index adapters from application settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/sercha-code/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-code/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues; search and indexing report them on use.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		_ = r.VectorIndex.Close()
	}
}

// Init creates the embedding service and vector index described by settings.
// Failures are recorded as warnings and leave the corresponding field nil, so
// commands that do not need them (status, delete, settings) keep working.
func Init(ctx context.Context, settings *domain.AppSettings, store *sqlite.Store) *InitResult {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case embedder == nil:
		result.Warnings = append(result.Warnings,
			"embedding provider not configured. Run 'sercha-code settings embedding' to fix")
	default:
		result.EmbeddingService = embedder
	}

	dimensions := settings.VectorIndex.Dimensions
	if result.EmbeddingService != nil {
		dimensions = result.EmbeddingService.Dimensions()
	}

	index, err := CreateVectorIndex(ctx, &settings.VectorIndex, store, dimensions)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.VectorIndex = index
	}

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-code settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured. A positive
// RequestsPerSecond wraps the service in a rate limiter.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-code settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return ratelimit.Wrap(svc, settings.RequestsPerSecond), nil
}

// CreateVectorIndex opens the configured vector backend. The sqlite
// backend shares the metadata database; pgvector connects to settings.DSN.
func CreateVectorIndex(
	ctx context.Context, settings *domain.VectorIndexSettings, store *sqlite.Store, dimensions int,
) (driven.VectorIndex, error) {
	backend := settings.Backend
	if backend == "" {
		backend = domain.VectorBackendSQLite
	}

	switch backend {
	case domain.VectorBackendSQLite:
		if store == nil {
			return nil, fmt.Errorf("%w: sqlite store not open", domain.ErrVectorIndexUnavailable)
		}
		return store.VectorIndex(dimensions), nil

	case domain.VectorBackendPgvector:
		if settings.DSN == "" {
			return nil, fmt.Errorf("%w: vector_index.dsn is required for pgvector", domain.ErrVectorIndexUnavailable)
		}
		index, err := pgvector.New(ctx, settings.DSN, dimensions)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return index, nil

	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", domain.ErrVectorIndexUnavailable, backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
