package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// Task prefixes for retrieval-tuned embedding models. Queries and documents
// are embedded with different templates.
const (
	queryTaskPrefix = "task: search result | query: "
	untitledTitle   = "none"
)

// embedBatchSize bounds a single batch request to the embedding provider.
const embedBatchSize = 32

// formatQuery applies the query task template.
func formatQuery(query string) string {
	return queryTaskPrefix + query
}

// formatDocument applies the document task template, using the file path
// as the contextual title.
func formatDocument(content, title string) string {
	if title == "" {
		title = untitledTitle
	}
	return "title: " + title + " | text: " + content
}

// embedQuery embeds a search query.
func embedQuery(ctx context.Context, svc driven.EmbeddingService, query string) ([]float32, error) {
	return svc.Embed(ctx, formatQuery(query))
}

// embedDocuments embeds chunk texts with the document template. Providers
// that support batching are called in groups of embedBatchSize.
func embedDocuments(
	ctx context.Context, svc driven.EmbeddingService, title string, contents []string,
) ([][]float32, error) {
	texts := make([]string, len(contents))
	for i, c := range contents {
		texts[i] = formatDocument(c, title)
	}

	batcher, ok := svc.(driven.BatchEmbedder)
	if !ok {
		out := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vec, err := svc.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			out = append(out, vec)
		}
		return out, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vecs, err := batcher.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: provider returned %d embeddings for %d inputs",
				domain.ErrEmbeddingUnavailable, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
