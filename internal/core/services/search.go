package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// overFetchFactor widens the candidate pool when path filters will drop
// some of the nearest neighbours.
const overFetchFactor = 3

// SearchService answers queries by nearest-neighbour lookup in the vector
// index, hydrated from the metadata store.
type SearchService struct {
	metadata   driven.MetadataStore
	vectors    driven.VectorIndex
	embedder   driven.EmbeddingService
	maxResults int
	log        *logger.Logger
}

// NewSearchService creates a new search service.
// The embedder and vector index may be nil; searches then fail with
// domain.ErrSearchFailed.
func NewSearchService(
	metadata driven.MetadataStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	log *logger.Logger,
) *SearchService {
	if log == nil {
		log = logger.Nop()
	}
	return &SearchService{
		metadata:   metadata,
		vectors:    vectors,
		embedder:   embedder,
		maxResults: domain.DefaultMaxResults,
		log:        log,
	}
}

// SetDefaultMaxResults sets the limit used when a query does not give one.
func (s *SearchService) SetDefaultMaxResults(n int) {
	if n > 0 {
		s.maxResults = n
	}
}

// Search queries every indexed workspace.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return s.search(ctx, query, "", opts)
}

// SearchInWorkspace restricts the query to one workspace root.
func (s *SearchService) SearchInWorkspace(
	ctx context.Context, query, workspacePath string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	root, err := resolveWorkspaceRoot(workspacePath)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, query, root, opts)
}

func (s *SearchService) search(
	ctx context.Context, query, workspacePath string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	s.log.Section("Search Execution")
	s.log.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		s.log.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	order := opts.Sort
	if order == "" {
		order = domain.SortByScore
	}
	if !order.IsValid() {
		return nil, fmt.Errorf("%w: unknown sort order %q", domain.ErrInvalidInput, opts.Sort)
	}

	include := pathmatch.SplitPatterns(opts.Include)
	exclude := pathmatch.SplitPatterns(opts.Exclude)
	matcher, err := pathmatch.New(include, exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	filtered := len(include) > 0 || len(exclude) > 0

	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}
	candidates := limit
	if filtered {
		candidates = limit * overFetchFactor
	}
	s.log.Debug("Limit: %d, candidates: %d, workspace: %q", limit, candidates, workspacePath)

	switch {
	case s.metadata == nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrNotInitialized)
	case s.vectors == nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrVectorIndexUnavailable)
	case s.embedder == nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrEmbeddingUnavailable)
	}

	embedding, err := embedQuery(ctx, s.embedder, query)
	if err != nil {
		s.log.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrSearchFailed, err)
	}
	s.log.Debug("Query embedding: %d dimensions", len(embedding))

	var filter *driven.VectorFilter
	if workspacePath != "" {
		filter = &driven.VectorFilter{WorkspacePath: workspacePath}
	}
	hits, err := s.vectors.Search(ctx, embedding, candidates, filter)
	if err != nil {
		s.log.Warn("Vector index search failed: %v", err)
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrSearchFailed, err)
	}
	s.log.Debug("Vector search: %d hits", len(hits))

	results, err := s.hydrateResults(ctx, hits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	if filtered {
		results = filterByPath(results, matcher)
		s.log.Debug("After path filter: %d results", len(results))
	}
	if len(results) > limit {
		results = results[:limit]
	}
	sortResults(results, order)

	s.log.Info("Final results: %d", len(results))
	return results, nil
}

// hydrateResults joins hits with chunk and file rows. Hits whose chunk or
// file is gone are skipped.
func (s *SearchService) hydrateResults(ctx context.Context, hits []driven.VectorHit) ([]domain.SearchResult, error) {
	files := make(map[string]*domain.IndexedFile)
	results := make([]domain.SearchResult, 0, len(hits))

	for _, hit := range hits {
		chunk, err := s.metadata.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}
		if chunk == nil {
			s.log.Debug("Skipping orphan vector %s", hit.ChunkID)
			continue
		}

		file, ok := files[chunk.FileID]
		if !ok {
			file, err = s.metadata.GetIndexedFile(ctx, chunk.FileID)
			if err != nil {
				return nil, fmt.Errorf("get file %s: %w", chunk.FileID, err)
			}
			files[chunk.FileID] = file
		}
		if file == nil {
			continue
		}

		workspacePath := chunk.WorkspacePath
		if workspacePath == "" {
			workspacePath = hit.WorkspacePath
		}

		results = append(results, domain.SearchResult{
			ChunkID:       chunk.ID,
			FilePath:      file.AbsolutePath,
			RelativePath:  file.RelativePath,
			WorkspacePath: workspacePath,
			LineStart:     chunk.LineStart,
			LineEnd:       chunk.LineEnd,
			Content:       chunk.Content,
			Score:         1 - hit.Distance,
		})
	}

	return results, nil
}

// filterByPath keeps results whose workspace-relative path passes matcher.
func filterByPath(results []domain.SearchResult, matcher *pathmatch.Matcher) []domain.SearchResult {
	filtered := make([]domain.SearchResult, 0, len(results))
	for i := range results {
		rel := results[i].RelativePath
		if rel == "" {
			rel = filepath.ToSlash(results[i].FilePath)
		}
		if matcher.Match(rel) {
			filtered = append(filtered, results[i])
		}
	}
	return filtered
}

// sortResults applies the presentation order. Score order is the index's
// native order and is left untouched.
func sortResults(results []domain.SearchResult, order domain.SortOrder) {
	switch order {
	case domain.SortByPath:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].FilePath != results[j].FilePath {
				return results[i].FilePath < results[j].FilePath
			}
			return results[i].LineStart < results[j].LineStart
		})
	case domain.SortByLine:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].LineStart != results[j].LineStart {
				return results[i].LineStart < results[j].LineStart
			}
			return results[i].FilePath < results[j].FilePath
		})
	}
}
