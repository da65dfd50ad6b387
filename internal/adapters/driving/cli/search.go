package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

var (
	searchLimit     int
	searchJSON      bool
	searchWorkspace string
	searchInclude   string
	searchExclude   string
	searchSort      string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed code",
	Long: `Embeds the query and returns the most similar indexed chunks with their
file paths and line ranges.

Use --include and --exclude with comma-separated glob patterns to narrow the
results, and --workspace to search a single workspace.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchWorkspace, "workspace", "w", "", "restrict results to this workspace")
	searchCmd.Flags().StringVar(&searchInclude, "include", "", "comma-separated glob patterns results must match")
	searchCmd.Flags().StringVar(&searchExclude, "exclude", "", "comma-separated glob patterns to drop")
	searchCmd.Flags().StringVar(&searchSort, "sort", string(domain.SortByScore), "result order: score, path or line")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := cmd.Context()
	opts := domain.SearchOptions{
		MaxResults: searchLimit,
		Include:    searchInclude,
		Exclude:    searchExclude,
		Sort:       domain.SortOrder(searchSort),
	}

	var (
		results []domain.SearchResult
		err     error
	)
	if searchWorkspace != "" {
		workspace, absErr := filepath.Abs(searchWorkspace)
		if absErr != nil {
			return fmt.Errorf("resolve workspace: %w", absErr)
		}
		results, err = searchService.SearchInWorkspace(ctx, query, workspace, opts)
	} else {
		results, err = searchService.Search(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	ChunkID      string  `json:"chunk_id"`
	FilePath     string  `json:"file_path"`
	RelativePath string  `json:"relative_path"`
	Workspace    string  `json:"workspace"`
	LineStart    int     `json:"line_start"`
	LineEnd      int     `json:"line_end"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, searchResultJSON{
			ChunkID:      r.ChunkID,
			FilePath:     r.FilePath,
			RelativePath: r.RelativePath,
			Workspace:    r.WorkspacePath,
			LineStart:    r.LineStart,
			LineEnd:      r.LineEnd,
			Score:        r.Score,
			Content:      r.Content,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(styles.Title.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		// Format: [N] path:start-end (score)
		cmd.Printf("  [%d] %s%s %s\n",
			i+1,
			styles.Path.Render(r.FilePath),
			styles.Muted.Render(fmt.Sprintf(":%d-%d", r.LineStart, r.LineEnd)),
			styles.Score.Render(fmt.Sprintf("(%.2f)", r.Score)),
		)
		if snippet := snippetOf(r.Content, 3); snippet != "" {
			cmd.Println(styles.Snippet.Render(snippet))
		}
		cmd.Println()
	}

	return nil
}

// snippetOf returns the first n non-blank lines of content.
func snippetOf(content string, n int) string {
	lines := make([]string, 0, n)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t\r"))
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}
