// Package ratelimit throttles calls to an embedding service.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.BatchEmbedder    = (*EmbeddingService)(nil)
)

// EmbeddingService wraps another embedding service with a token bucket.
// Each request to the wrapped service consumes one token.
type EmbeddingService struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
}

// Wrap returns svc throttled to rps requests per second.
// A non-positive rps returns svc unchanged.
func Wrap(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if svc == nil || rps <= 0 {
		return svc
	}
	return &EmbeddingService{
		next:    svc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for a token and delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return s.next.Embed(ctx, text)
}

// EmbedBatch forwards to the wrapped batch implementation when there is one,
// otherwise embeds each text in turn.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if batcher, ok := s.next.(driven.BatchEmbedder); ok {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return batcher.EmbedBatch(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// Dimensions returns the wrapped service's dimensions.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping is not throttled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}
