package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
)

// Ensure BrowseService implements the interface.
var _ driving.BrowseService = (*BrowseService)(nil)

// BrowseService exposes the index hierarchy read-only.
type BrowseService struct {
	metadata driven.MetadataStore
}

// NewBrowseService creates a new browse service.
func NewBrowseService(metadata driven.MetadataStore) *BrowseService {
	return &BrowseService{metadata: metadata}
}

// ListWorkspaces returns every indexed workspace.
func (s *BrowseService) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.metadata.ListWorkspaces(ctx)
}

// GetWorkspace returns the workspace rooted at path.
func (s *BrowseService) GetWorkspace(ctx context.Context, path string) (*domain.Workspace, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	root, err := resolveWorkspaceRoot(path)
	if err != nil {
		return nil, err
	}
	ws, err := s.metadata.GetWorkspaceByPath(ctx, root)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: workspace %s", domain.ErrNotFound, root)
	}
	return ws, nil
}

// ListFolders returns folders directly under parentID.
func (s *BrowseService) ListFolders(ctx context.Context, workspaceID, parentID string) ([]domain.Folder, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.metadata.GetChildFolders(ctx, workspaceID, parentID)
}

// ListFiles returns files directly in folderID.
func (s *BrowseService) ListFiles(ctx context.Context, workspaceID, folderID string) ([]domain.IndexedFile, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.metadata.GetFilesByFolderID(ctx, workspaceID, folderID)
}

// GetFile returns a file by ID.
func (s *BrowseService) GetFile(ctx context.Context, fileID string) (*domain.IndexedFile, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	file, err := s.metadata.GetIndexedFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, fileID)
	}
	return file, nil
}

// GetChunks returns a file's chunks in order.
func (s *BrowseService) GetChunks(ctx context.Context, fileID string) ([]domain.CodeChunk, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.metadata.GetChunksForFile(ctx, fileID)
}

// ChunkCount returns the chunk count of a workspace, or of the whole index
// when workspaceID is empty.
func (s *BrowseService) ChunkCount(ctx context.Context, workspaceID string) (int, error) {
	if s.metadata == nil {
		return 0, domain.ErrNotInitialized
	}
	if workspaceID == "" {
		return s.metadata.CountChunks(ctx)
	}
	return s.metadata.CountChunksForWorkspace(ctx, workspaceID)
}
