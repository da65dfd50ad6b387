package cli

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/logger"
)

// mockIndexingService records calls and returns canned results.
type mockIndexingService struct {
	mu sync.Mutex

	result   *domain.IndexRunResult
	err      error
	entries  []domain.IndexEntry
	indexing bool

	workspaceCalls []string
	folderCalls    [][2]string
	fileCalls      [][]string
	deletedFiles   []string
	deletedFolders [][2]string
	deletedRoots   []string
	entriesRoot    string
}

var _ driving.IndexingService = (*mockIndexingService)(nil)

func (m *mockIndexingService) run(root string) (*domain.IndexRunResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.IndexRunResult{WorkspacePath: root}, nil
}

func (m *mockIndexingService) IndexWorkspace(
	_ context.Context, root string, progress driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	m.mu.Lock()
	m.workspaceCalls = append(m.workspaceCalls, root)
	m.mu.Unlock()
	if progress != nil {
		progress(domain.IndexProgress{Processed: 1, Total: 1, CurrentPath: "main.go"})
	}
	return m.run(root)
}

func (m *mockIndexingService) IndexFiles(
	_ context.Context, paths []string, root string, _ driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	m.mu.Lock()
	m.fileCalls = append(m.fileCalls, paths)
	m.mu.Unlock()
	return m.run(root)
}

func (m *mockIndexingService) IndexFolder(
	_ context.Context, root, folder string, _ driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	m.mu.Lock()
	m.folderCalls = append(m.folderCalls, [2]string{root, folder})
	m.mu.Unlock()
	return m.run(root)
}

func (m *mockIndexingService) DeleteFileIndex(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedFiles = append(m.deletedFiles, path)
	return m.err
}

func (m *mockIndexingService) DeleteFolderIndex(_ context.Context, root, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedFolders = append(m.deletedFolders, [2]string{root, folder})
	return m.err
}

func (m *mockIndexingService) DeleteWorkspaceIndex(_ context.Context, root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedRoots = append(m.deletedRoots, root)
	return m.err
}

func (m *mockIndexingService) GetIndexEntries(_ context.Context, root string) ([]domain.IndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entriesRoot = root
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockIndexingService) IsIndexing() bool {
	return m.indexing
}

func (m *mockIndexingService) Subscribe(buffer int) (<-chan domain.IndexEvent, func()) {
	ch := make(chan domain.IndexEvent, buffer)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

// mockSearchService returns canned results and records the last request.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	lastQuery     string
	lastWorkspace string
	lastOpts      domain.SearchOptions
}

var _ driving.SearchService = (*mockSearchService)(nil)

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) SearchInWorkspace(
	_ context.Context, query, workspace string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastWorkspace = workspace
	m.lastOpts = opts
	return m.results, m.err
}

// mockBrowseService serves a fixed hierarchy keyed by folder ID.
type mockBrowseService struct {
	workspaces []domain.Workspace
	folders    map[string][]domain.Folder
	files      map[string][]domain.IndexedFile
	chunks     map[string][]domain.CodeChunk
	count      int
	err        error
}

var _ driving.BrowseService = (*mockBrowseService)(nil)

func (m *mockBrowseService) ListWorkspaces(context.Context) ([]domain.Workspace, error) {
	return m.workspaces, m.err
}

func (m *mockBrowseService) GetWorkspace(_ context.Context, path string) (*domain.Workspace, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.workspaces {
		if m.workspaces[i].Path == path {
			return &m.workspaces[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockBrowseService) ListFolders(_ context.Context, _, parentID string) ([]domain.Folder, error) {
	return m.folders[parentID], m.err
}

func (m *mockBrowseService) ListFiles(_ context.Context, _, folderID string) ([]domain.IndexedFile, error) {
	return m.files[folderID], m.err
}

func (m *mockBrowseService) GetFile(_ context.Context, fileID string) (*domain.IndexedFile, error) {
	for _, files := range m.files {
		for i := range files {
			if files[i].ID == fileID {
				return &files[i], nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockBrowseService) GetChunks(_ context.Context, fileID string) ([]domain.CodeChunk, error) {
	return m.chunks[fileID], m.err
}

func (m *mockBrowseService) ChunkCount(context.Context, string) (int, error) {
	return m.count, m.err
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	getErr      error
	setErr      error
	validateErr error
	embedErr    error

	setCalls [][2]string
	saved    *domain.AppSettings
	provider domain.AIProvider
	model    string
	baseURL  string
	apiKey   string
}

var _ driving.SettingsService = (*mockSettingsService)(nil)

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.saved = settings
	m.settings = *settings
	return m.setErr
}

func (m *mockSettingsService) Set(key, value string) error {
	m.setCalls = append(m.setCalls, [2]string{key, value})
	return m.setErr
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, baseURL, apiKey string) error {
	m.provider = provider
	m.model = model
	m.baseURL = baseURL
	m.apiKey = apiKey
	return m.setErr
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embedErr
}

func (m *mockSettingsService) ConfigPath() string {
	return "/tmp/sercha-code/config.toml"
}

// setupTestServices clears the package services and every flag value.
// The returned func restores the previous services.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	prevIndexing, prevSearch := indexingService, searchService
	prevBrowse, prevSettings, prevLogger := browseService, settingsService, appLogger
	prevWarnings := startupWarnings

	indexingService = nil
	searchService = nil
	browseService = nil
	settingsService = nil
	appLogger = logger.Nop()
	startupWarnings = nil
	resetFlags(rootCmd)
	rootCmd.SetContext(context.Background())
	rootCmd.SetIn(nil)

	return func() {
		indexingService, searchService = prevIndexing, prevSearch
		browseService, settingsService, appLogger = prevBrowse, prevSettings, prevLogger
		startupWarnings = prevWarnings
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetContext(context.Background())
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
