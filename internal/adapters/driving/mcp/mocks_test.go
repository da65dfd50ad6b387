package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results       []domain.SearchResult
	err           error
	lastOpts      domain.SearchOptions
	lastWorkspace string
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) SearchInWorkspace(
	_ context.Context,
	_, workspacePath string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	m.lastWorkspace = workspacePath
	return m.results, m.err
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	entries  []domain.IndexEntry
	indexing bool
	err      error
}

func (m *mockIndexingService) IndexWorkspace(
	_ context.Context, _ string, _ driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	return &domain.IndexRunResult{}, m.err
}

func (m *mockIndexingService) IndexFiles(
	_ context.Context, _ []string, _ string, _ driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	return &domain.IndexRunResult{}, m.err
}

func (m *mockIndexingService) IndexFolder(
	_ context.Context, _, _ string, _ driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	return &domain.IndexRunResult{}, m.err
}

func (m *mockIndexingService) DeleteFileIndex(_ context.Context, _ string) error { return m.err }

func (m *mockIndexingService) DeleteFolderIndex(_ context.Context, _, _ string) error { return m.err }

func (m *mockIndexingService) DeleteWorkspaceIndex(_ context.Context, _ string) error { return m.err }

func (m *mockIndexingService) GetIndexEntries(_ context.Context, _ string) ([]domain.IndexEntry, error) {
	return m.entries, m.err
}

func (m *mockIndexingService) IsIndexing() bool { return m.indexing }

func (m *mockIndexingService) Subscribe(_ int) (<-chan domain.IndexEvent, func()) {
	ch := make(chan domain.IndexEvent)
	return ch, func() {}
}

// mockBrowseService is a mock implementation of driving.BrowseService.
type mockBrowseService struct {
	workspaces []domain.Workspace
	file       *domain.IndexedFile
	chunks     []domain.CodeChunk
	count      int
	err        error
}

func (m *mockBrowseService) ListWorkspaces(_ context.Context) ([]domain.Workspace, error) {
	return m.workspaces, m.err
}

func (m *mockBrowseService) GetWorkspace(_ context.Context, _ string) (*domain.Workspace, error) {
	if len(m.workspaces) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.workspaces[0], m.err
}

func (m *mockBrowseService) ListFolders(_ context.Context, _, _ string) ([]domain.Folder, error) {
	return nil, m.err
}

func (m *mockBrowseService) ListFiles(_ context.Context, _, _ string) ([]domain.IndexedFile, error) {
	return nil, m.err
}

func (m *mockBrowseService) GetFile(_ context.Context, _ string) (*domain.IndexedFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.file == nil {
		return nil, domain.ErrNotFound
	}
	return m.file, nil
}

func (m *mockBrowseService) GetChunks(_ context.Context, _ string) ([]domain.CodeChunk, error) {
	return m.chunks, m.err
}

func (m *mockBrowseService) ChunkCount(_ context.Context, _ string) (int, error) {
	return m.count, m.err
}
