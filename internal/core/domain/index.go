package domain

import "time"

// IndexProgress is reported after every file in a run.
type IndexProgress struct {
	// Processed is the number of files handled so far, including skips and failures.
	Processed int

	// Total is the number of files in the run.
	Total int

	// CurrentPath is the relative path of the file just handled.
	CurrentPath string
}

// FileOutcome is the result of indexing a single file.
type FileOutcome string

// File outcomes.
const (
	// FileIndexed means chunks and vectors were regenerated.
	FileIndexed FileOutcome = "indexed"

	// FileSkipped means the content hash matched and nothing was written.
	FileSkipped FileOutcome = "skipped"

	// FileFailed means the file could not be indexed.
	FileFailed FileOutcome = "failed"
)

// IndexRunResult summarises one indexing run.
type IndexRunResult struct {
	// RunID correlates events emitted during the run.
	RunID string

	// WorkspacePath is the absolute workspace root.
	WorkspacePath string

	// Total is the number of candidate files.
	Total int

	// Indexed is the number of files (re)indexed.
	Indexed int

	// Skipped is the number of unchanged files.
	Skipped int

	// Failed is the number of files that failed.
	Failed int

	// Removed is the number of index entries pruned because their file
	// vanished from disk or no longer matches the include/exclude patterns.
	Removed int

	// Chunks is the number of chunks written.
	Chunks int

	// Failures lists per-file errors.
	Failures []*FileError

	// Cancelled is true when the run stopped at a file boundary on cancellation.
	Cancelled bool

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// IndexEventType identifies a status notification.
type IndexEventType string

// Index event types.
const (
	EventRunStarted      IndexEventType = "run_started"
	EventFileProcessed   IndexEventType = "file_processed"
	EventFileFailed      IndexEventType = "file_failed"
	EventRunFinished     IndexEventType = "run_finished"
	EventIndexDeleted    IndexEventType = "index_deleted"
	EventWorkspaceStatus IndexEventType = "workspace_status"
)

// IndexEvent is a status notification published by the indexing service.
// Presentation layers use these to invalidate their own caches.
type IndexEvent struct {
	Type          IndexEventType
	RunID         string
	WorkspacePath string
	Path          string
	Status        WorkspaceStatus
	Progress      IndexProgress
	Outcome       FileOutcome
	Err           error
}
