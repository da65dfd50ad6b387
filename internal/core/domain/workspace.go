package domain

import "time"

// WorkspaceStatus is the lifecycle status of a workspace.
type WorkspaceStatus string

// Workspace lifecycle states.
const (
	// WorkspaceActive means the workspace is idle and searchable.
	WorkspaceActive WorkspaceStatus = "active"

	// WorkspaceIndexing means an indexing run is in progress.
	WorkspaceIndexing WorkspaceStatus = "indexing"

	// WorkspaceError means the last run could not enumerate or process the workspace.
	WorkspaceError WorkspaceStatus = "error"
)

// IsValid returns true if the status is recognised.
func (s WorkspaceStatus) IsValid() bool {
	switch s {
	case WorkspaceActive, WorkspaceIndexing, WorkspaceError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s WorkspaceStatus) String() string {
	return string(s)
}

// Workspace is the root corpus boundary. There is exactly one workspace
// per distinct absolute path.
type Workspace struct {
	// ID is derived from the absolute path.
	ID string

	// Path is the absolute path of the workspace root.
	Path string

	// Name is the display name (the base name of Path).
	Name string

	// Status is the lifecycle status.
	Status WorkspaceStatus

	// CreatedAt is when the workspace was first indexed.
	CreatedAt time.Time
}

// Folder is a directory node within a workspace. Folders exist for
// browsing and reindex-by-folder; search does not depend on them.
type Folder struct {
	// ID is derived from the workspace ID and the relative folder path.
	ID string

	// WorkspaceID is the owning workspace.
	WorkspaceID string

	// ParentID is the parent folder, empty for folders directly under the workspace root.
	ParentID string

	// Path is the slash-separated path relative to the workspace root.
	Path string

	// Name is the display name (the last path element).
	Name string

	// CreatedAt is when the folder was first seen.
	CreatedAt time.Time
}

// IsTopLevel returns true if the folder sits directly under the workspace root.
func (f Folder) IsTopLevel() bool {
	return f.ParentID == ""
}
