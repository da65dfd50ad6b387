package driving

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// BrowseService provides read-only navigation of the index hierarchy.
type BrowseService interface {
	// ListWorkspaces returns every indexed workspace.
	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)

	// GetWorkspace returns the workspace at path, or domain.ErrNotFound.
	GetWorkspace(ctx context.Context, path string) (*domain.Workspace, error)

	// ListFolders returns folders directly under parentID ("" = root).
	ListFolders(ctx context.Context, workspaceID, parentID string) ([]domain.Folder, error)

	// ListFiles returns files directly in folderID ("" = root).
	ListFiles(ctx context.Context, workspaceID, folderID string) ([]domain.IndexedFile, error)

	// GetFile returns a file by ID, or domain.ErrNotFound.
	GetFile(ctx context.Context, fileID string) (*domain.IndexedFile, error)

	// GetChunks returns a file's chunks in order.
	GetChunks(ctx context.Context, fileID string) ([]domain.CodeChunk, error)

	// ChunkCount returns chunk totals for a workspace, or globally when
	// workspaceID is empty.
	ChunkCount(ctx context.Context, workspaceID string) (int, error)
}
