package domain

// DefaultMaxResults is the number of results returned when none is requested.
const DefaultMaxResults = 10

// SortOrder controls the presentation order of search results.
type SortOrder string

// Available sort orders.
const (
	// SortByScore orders by descending relevance (the vector index order).
	SortByScore SortOrder = "score"

	// SortByPath orders by file path, then line.
	SortByPath SortOrder = "path"

	// SortByLine orders by start line, then file path.
	SortByLine SortOrder = "line"
)

// IsValid returns true if the sort order is recognised.
func (o SortOrder) IsValid() bool {
	switch o {
	case SortByScore, SortByPath, SortByLine:
		return true
	default:
		return false
	}
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// MaxResults is the maximum number of results. Zero uses DefaultMaxResults.
	MaxResults int

	// Include is a comma-separated list of glob patterns; only matching
	// paths (relative to the workspace root) are kept.
	Include string

	// Exclude is a comma-separated list of glob patterns; matching paths are dropped.
	Exclude string

	// Sort is the presentation order. Empty means SortByScore.
	Sort SortOrder
}

// SearchResult is a single ranked code snippet.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// FilePath is the absolute path of the file.
	FilePath string

	// RelativePath is the path relative to the workspace root.
	RelativePath string

	// WorkspacePath is the absolute path of the owning workspace.
	WorkspacePath string

	// LineStart is the first line of the snippet, 1-indexed.
	LineStart int

	// LineEnd is the last line of the snippet, inclusive.
	LineEnd int

	// Content is the snippet text.
	Content string

	// Score is 1 - cosine distance; higher is more relevant.
	Score float64
}
