package domain

import "time"

// IndexedFile is the record of one source file that has been indexed.
// Its ID is stable across reindexing; ContentHash changes whenever the
// file content changes.
type IndexedFile struct {
	// ID is derived from the workspace path and relative path.
	ID string

	// WorkspaceID is the owning workspace.
	WorkspaceID string

	// FolderID is the owning folder, empty for files at the workspace root.
	FolderID string

	// RelativePath is the slash-separated path relative to the workspace root.
	RelativePath string

	// Name is the file name.
	Name string

	// AbsolutePath is the path on disk.
	AbsolutePath string

	// Size is the file size in bytes, nil when unknown.
	Size *int64

	// LastIndexedAt is when the file content was last (re)indexed.
	LastIndexedAt time.Time

	// ContentHash is the change-detection digest of the content.
	ContentHash string
}

// IndexEntry reports an indexed file together with its live staleness.
type IndexEntry struct {
	// File is the stored record.
	File IndexedFile

	// WorkspacePath is the absolute path of the owning workspace.
	WorkspacePath string

	// ChunkCount is the number of chunks stored for the file.
	ChunkCount int

	// IsStale is true when the on-disk content no longer matches the stored
	// hash, or the file can no longer be read.
	IsStale bool
}
