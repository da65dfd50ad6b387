package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

var (
	indexFiles  []string
	indexFolder string
	indexJSON   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a workspace",
	Long: `Walks the workspace (default: the current directory), chunks every file
matching the include patterns and stores the embeddings.

Files whose content is unchanged since the last run are skipped. Files that
disappeared or no longer match the patterns are removed from the index.

Use --folder to limit the run to one folder of the workspace, or --file to
index specific files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVarP(&indexFiles, "file", "f", nil, "index only these files (repeatable)")
	indexCmd.Flags().StringVar(&indexFolder, "folder", "", "index only this folder, relative to the workspace")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the run summary as JSON")
	indexCmd.MarkFlagsMutuallyExclusive("file", "folder")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	root, err := resolvePath(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	progress := newProgressPrinter(cmd.ErrOrStderr(), indexJSON)

	var result *domain.IndexRunResult
	switch {
	case len(indexFiles) > 0:
		paths := make([]string, 0, len(indexFiles))
		for _, f := range indexFiles {
			abs, absErr := filepath.Abs(f)
			if absErr != nil {
				return fmt.Errorf("resolve %s: %w", f, absErr)
			}
			paths = append(paths, abs)
		}
		result, err = indexingService.IndexFiles(ctx, paths, root, progress.update)
	case indexFolder != "":
		result, err = indexingService.IndexFolder(ctx, root, indexFolder, progress.update)
	default:
		result, err = indexingService.IndexWorkspace(ctx, root, progress.update)
	}
	progress.done()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if indexJSON {
		return outputIndexJSON(cmd, result)
	}
	printIndexSummary(cmd, result)
	return nil
}

type indexResultJSON struct {
	RunID     string            `json:"run_id"`
	Workspace string            `json:"workspace"`
	Total     int               `json:"total"`
	Indexed   int               `json:"indexed"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Removed   int               `json:"removed"`
	Chunks    int               `json:"chunks"`
	Cancelled bool              `json:"cancelled"`
	Duration  string            `json:"duration"`
	Failures  []indexFailureOut `json:"failures,omitempty"`
}

type indexFailureOut struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func outputIndexJSON(cmd *cobra.Command, result *domain.IndexRunResult) error {
	out := indexResultJSON{
		RunID:     result.RunID,
		Workspace: result.WorkspacePath,
		Total:     result.Total,
		Indexed:   result.Indexed,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Removed:   result.Removed,
		Chunks:    result.Chunks,
		Cancelled: result.Cancelled,
		Duration:  result.Duration.Round(time.Millisecond).String(),
	}
	for _, f := range result.Failures {
		out.Failures = append(out.Failures, indexFailureOut{Path: f.Path, Error: f.Err.Error()})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printIndexSummary(cmd *cobra.Command, result *domain.IndexRunResult) {
	if result.Cancelled {
		cmd.Println(styles.Warning.Render("Indexing cancelled."))
	}
	cmd.Printf("%s %s\n", styles.Title.Render("Workspace:"), styles.Path.Render(result.WorkspacePath))
	cmd.Printf("  Files:   %d (%d indexed, %d unchanged, %d failed)\n",
		result.Total, result.Indexed, result.Skipped, result.Failed)
	cmd.Printf("  Chunks:  %d\n", result.Chunks)
	if result.Removed > 0 {
		cmd.Printf("  Removed: %d\n", result.Removed)
	}
	cmd.Printf("  Took:    %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Failures) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(styles.Warning.Render("Failed files:"))
	for _, f := range result.Failures {
		cmd.Printf("  %s: %s\n", f.Path, styles.Error.Render(f.Err.Error()))
	}
}

// progressPrinter redraws a single status line on an interactive terminal
// and stays silent otherwise.
type progressPrinter struct {
	w       io.Writer
	enabled bool
	drawn   bool
}

func newProgressPrinter(w io.Writer, quiet bool) *progressPrinter {
	enabled := false
	if f, ok := w.(*os.File); ok && !quiet {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	return &progressPrinter{w: w, enabled: enabled}
}

func (p *progressPrinter) update(pr domain.IndexProgress) {
	if !p.enabled {
		return
	}
	width := 60
	if f, ok := p.w.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w - 1
		}
	}
	line := fmt.Sprintf("[%d/%d] %s", pr.Processed, pr.Total, pr.CurrentPath)
	if len(line) > width {
		line = line[:width]
	}
	fmt.Fprintf(p.w, "\r\033[K%s", line)
	p.drawn = true
}

func (p *progressPrinter) done() {
	if p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
		p.drawn = false
	}
}
