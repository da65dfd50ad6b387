package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// keywordVocab gives each test keyword its own embedding axis.
var keywordVocab = []string{"alpha", "beta", "gamma", "delta"}

// keywordEmbedder is a deterministic bag-of-keywords embedder.
type keywordEmbedder struct {
	mu     sync.Mutex
	texts  []string
	failOn string
	err    error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend exploded")
	}
	vec := make([]float32, len(keywordVocab))
	for i, word := range keywordVocab {
		vec[i] = float32(strings.Count(text, word)) + 0.01
	}
	return vec, nil
}

func (e *keywordEmbedder) Dimensions() int              { return len(keywordVocab) }
func (e *keywordEmbedder) ModelName() string            { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

func (e *keywordEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

func (e *keywordEmbedder) lastText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.texts) == 0 {
		return ""
	}
	return e.texts[len(e.texts)-1]
}

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// failingVectorIndex wraps a vector index and fails selected operations.
type failingVectorIndex struct {
	driven.VectorIndex
	upsertErr error
	searchErr error
}

func (f *failingVectorIndex) Upsert(ctx context.Context, records ...driven.VectorRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorIndex.Upsert(ctx, records...)
}

func (f *failingVectorIndex) Search(
	ctx context.Context, query []float32, k int, filter *driven.VectorFilter,
) ([]driven.VectorHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.VectorIndex.Search(ctx, query, k, filter)
}

// --- Test environment ---

type testEnv struct {
	metadata driven.MetadataStore
	vectors  *memory.VectorIndex
	embedder *keywordEmbedder
	indexing *IndexingService
	search   *SearchService
	browse   *BrowseService
	root     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		metadata: store.MetadataStore(),
		vectors:  memory.NewVectorIndex(),
		embedder: &keywordEmbedder{},
		root:     t.TempDir(),
	}

	settings := domain.DefaultAppSettings().Indexing
	settings.ChunkMaxTokens = 256
	settings.ChunkOverlapTokens = 32

	env.indexing = NewIndexingService(
		env.metadata, env.vectors, env.embedder, chunker.New(wordTokenizer{}), settings, logger.Nop())
	env.search = NewSearchService(env.metadata, env.vectors, env.embedder, logger.Nop())
	env.browse = NewBrowseService(env.metadata)
	return env
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return abs
}
