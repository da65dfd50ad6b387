package mcp

import (
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers code queries.
	Search driving.SearchService

	// Indexing reports index state.
	Indexing driving.IndexingService

	// Browse exposes the workspace/file/chunk hierarchy.
	Browse driving.BrowseService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Indexing and Browse are optional; their tools and resources degrade.
	return nil
}
