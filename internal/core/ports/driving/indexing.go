package driving

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// ProgressFunc receives progress after every processed file. May be nil.
type ProgressFunc func(domain.IndexProgress)

// IndexingService keeps the metadata store and vector index in sync with
// files on disk. Only one indexing run may be active at a time; a second
// request fails with domain.ErrIndexingInProgress.
type IndexingService interface {
	// IndexWorkspace walks workspaceRoot and (re)indexes every matching file.
	// Cancelling ctx stops the run at the next file boundary.
	IndexWorkspace(ctx context.Context, workspaceRoot string, progress ProgressFunc) (*domain.IndexRunResult, error)

	// IndexFiles (re)indexes an explicit list of files under workspaceRoot.
	IndexFiles(ctx context.Context, paths []string, workspaceRoot string, progress ProgressFunc) (*domain.IndexRunResult, error)

	// IndexFolder (re)indexes every matching file below a relative folder.
	IndexFolder(ctx context.Context, workspaceRoot, folder string, progress ProgressFunc) (*domain.IndexRunResult, error)

	// DeleteFileIndex removes a file's chunks and record. Unknown paths are a no-op.
	DeleteFileIndex(ctx context.Context, path string) error

	// DeleteFolderIndex removes everything indexed below a relative folder.
	DeleteFolderIndex(ctx context.Context, workspaceRoot, folder string) error

	// DeleteWorkspaceIndex removes everything indexed for a workspace.
	DeleteWorkspaceIndex(ctx context.Context, workspaceRoot string) error

	// GetIndexEntries lists indexed files with a live staleness check.
	// An empty workspaceRoot lists every workspace.
	GetIndexEntries(ctx context.Context, workspaceRoot string) ([]domain.IndexEntry, error)

	// IsIndexing reports whether a run is in progress.
	IsIndexing() bool

	// Subscribe returns a channel of index events and a func to stop the
	// subscription. Slow subscribers miss events rather than block indexing.
	Subscribe(buffer int) (<-chan domain.IndexEvent, func())
}
