package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// errIndexingUnavailable is returned by index_status when no indexing port is wired.
var errIndexingUnavailable = errors.New("index status is not available")

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"natural language or code query"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Workspace string `json:"workspace,omitempty" jsonschema:"absolute workspace root to restrict the search to"`
	Include   string `json:"include,omitempty" jsonschema:"comma-separated glob patterns of paths to keep"`
	Exclude   string `json:"exclude,omitempty" jsonschema:"comma-separated glob patterns of paths to drop"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID      string  `json:"chunk_id"`
	FilePath     string  `json:"file_path"`
	RelativePath string  `json:"relative_path"`
	Workspace    string  `json:"workspace"`
	LineStart    int     `json:"line_start"`
	LineEnd      int     `json:"line_end"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"absolute workspace root; empty lists every workspace"`
}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	Indexing bool               `json:"indexing"`
	Files    int                `json:"files"`
	Stale    int                `json:"stale"`
	Chunks   int                `json:"chunks"`
	Entries  []IndexEntryOutput `json:"entries"`
}

// IndexEntryOutput describes one indexed file.
type IndexEntryOutput struct {
	Path          string `json:"path"`
	Workspace     string `json:"workspace"`
	Chunks        int    `json:"chunks"`
	Stale         bool   `json:"stale"`
	LastIndexedAt string `json:"last_indexed_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search across indexed source code",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "List indexed files with chunk counts and staleness",
	}, s.handleIndexStatus)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultMaxResults
	}

	opts := domain.SearchOptions{
		MaxResults: limit,
		Include:    input.Include,
		Exclude:    input.Exclude,
	}

	var (
		results []domain.SearchResult
		err     error
	)
	if input.Workspace != "" {
		results, err = s.ports.Search.SearchInWorkspace(ctx, input.Query, input.Workspace, opts)
	} else {
		results, err = s.ports.Search.Search(ctx, input.Query, opts)
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:      results[i].ChunkID,
			FilePath:     results[i].FilePath,
			RelativePath: results[i].RelativePath,
			Workspace:    results[i].WorkspacePath,
			LineStart:    results[i].LineStart,
			LineEnd:      results[i].LineEnd,
			Score:        results[i].Score,
			Content:      results[i].Content,
		}
	}

	return nil, output, nil
}

// handleIndexStatus handles the index_status tool invocation.
func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if s.ports.Indexing == nil {
		return nil, IndexStatusOutput{}, errIndexingUnavailable
	}

	entries, err := s.ports.Indexing.GetIndexEntries(ctx, input.Workspace)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}

	output := IndexStatusOutput{
		Indexing: s.ports.Indexing.IsIndexing(),
		Files:    len(entries),
		Entries:  make([]IndexEntryOutput, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		output.Chunks += e.ChunkCount
		if e.IsStale {
			output.Stale++
		}
		output.Entries[i] = IndexEntryOutput{
			Path:          e.File.RelativePath,
			Workspace:     e.WorkspacePath,
			Chunks:        e.ChunkCount,
			Stale:         e.IsStale,
			LastIndexedAt: e.File.LastIndexedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	return nil, output, nil
}
