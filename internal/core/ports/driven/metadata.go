package driven

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// MetadataStore persists the workspace → folder → file → chunk hierarchy.
// Backed by SQLite.
//
// Lookups that find nothing return a nil value and a nil error. Every
// method returns domain.ErrNotInitialized once the store is closed.
type MetadataStore interface {
	// GetOrCreateWorkspace returns the ID of the workspace at path,
	// creating it on first use.
	GetOrCreateWorkspace(ctx context.Context, path string) (string, error)

	// GetWorkspaceByPath returns the workspace at path, or nil.
	GetWorkspaceByPath(ctx context.Context, path string) (*domain.Workspace, error)

	// ListWorkspaces returns every workspace ordered by path.
	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)

	// SetWorkspaceStatus updates a workspace's lifecycle status.
	SetWorkspaceStatus(ctx context.Context, workspaceID string, status domain.WorkspaceStatus) error

	// GetOrCreateFolder returns the ID of the folder at the relative path,
	// creating missing ancestors first. The root path ("" or ".") has no
	// folder row and yields "".
	GetOrCreateFolder(ctx context.Context, workspaceID, relativeFolderPath string) (string, error)

	// GetFolderByPath returns the folder at the relative path, or nil.
	GetFolderByPath(ctx context.Context, workspaceID, relativeFolderPath string) (*domain.Folder, error)

	// GetChildFolders lists folders directly under parentID ("" = root).
	GetChildFolders(ctx context.Context, workspaceID, parentID string) ([]domain.Folder, error)

	// UpsertIndexedFile inserts or replaces a file record by ID.
	UpsertIndexedFile(ctx context.Context, file *domain.IndexedFile) error

	// ReplaceFileChunks atomically deletes a file's chunks, upserts the file
	// and inserts the new chunks.
	ReplaceFileChunks(ctx context.Context, file *domain.IndexedFile, chunks []domain.CodeChunk) error

	// GetIndexedFile returns a file by ID, or nil.
	GetIndexedFile(ctx context.Context, fileID string) (*domain.IndexedFile, error)

	// GetIndexedFileByPath returns a file by absolute path, or nil.
	GetIndexedFileByPath(ctx context.Context, absolutePath string) (*domain.IndexedFile, error)

	// ListIndexedFiles returns files of one workspace, or all files when
	// workspaceID is empty, ordered by workspace then relative path.
	ListIndexedFiles(ctx context.Context, workspaceID string) ([]domain.IndexedFile, error)

	// GetFilesByFolderID lists files directly in a folder ("" = root).
	GetFilesByFolderID(ctx context.Context, workspaceID, folderID string) ([]domain.IndexedFile, error)

	// GetFilesInFolder lists files at or below a relative folder path.
	GetFilesInFolder(ctx context.Context, workspaceID, relativeFolderPath string) ([]domain.IndexedFile, error)

	// GetChunksForFile returns a file's chunks ordered by index then line.
	GetChunksForFile(ctx context.Context, fileID string) ([]domain.CodeChunk, error)

	// GetChunk returns a chunk by ID, or nil.
	GetChunk(ctx context.Context, chunkID string) (*domain.CodeChunk, error)

	// DeleteFileChunks removes all chunks of a file.
	DeleteFileChunks(ctx context.Context, fileID string) error

	// DeleteIndexedFile removes a file and its chunks.
	DeleteIndexedFile(ctx context.Context, fileID string) error

	// DeleteFolderIndex removes chunks, files and folders at or below a
	// relative folder path.
	DeleteFolderIndex(ctx context.Context, workspaceID, relativeFolderPath string) error

	// DeleteWorkspaceIndex removes chunks, files, folders and the workspace
	// row, in that order. Unknown paths are a no-op.
	DeleteWorkspaceIndex(ctx context.Context, workspacePath string) error

	// CountChunksForFile returns the chunk count of one file.
	CountChunksForFile(ctx context.Context, fileID string) (int, error)

	// CountChunksForWorkspace returns the chunk count of one workspace.
	CountChunksForWorkspace(ctx context.Context, workspaceID string) (int, error)

	// CountChunks returns the total chunk count.
	CountChunks(ctx context.Context) (int, error)
}
