package driving

import (
	"context"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// SearchService answers natural-language queries over indexed code.
type SearchService interface {
	// Search queries every indexed workspace.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchInWorkspace restricts the query to one workspace root.
	SearchInWorkspace(ctx context.Context, query, workspacePath string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
