package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

var (
	statusJSON  bool
	statusFiles bool
)

var statusCmd = &cobra.Command{
	Use:   "status [workspace]",
	Short: "Show what is indexed",
	Long: `Lists indexed workspaces with their file and chunk counts. Files whose
content changed on disk since they were indexed are reported as stale.

With no argument every workspace is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output entries as JSON")
	statusCmd.Flags().BoolVar(&statusFiles, "files", false, "list every indexed file")
	rootCmd.AddCommand(statusCmd)
}

// workspaceStatus aggregates index entries of one workspace.
type workspaceStatus struct {
	Path    string
	Status  domain.WorkspaceStatus
	Files   int
	Chunks  int
	Stale   int
	Entries []domain.IndexEntry
}

func runStatus(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	workspace := ""
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolve %s: %w", args[0], err)
		}
		workspace = abs
	}

	ctx := cmd.Context()
	entries, err := indexingService.GetIndexEntries(ctx, workspace)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	groups := groupEntries(entries)
	if browseService != nil {
		workspaces, err := browseService.ListWorkspaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to list workspaces: %w", err)
		}
		for i := range workspaces {
			ws := &workspaces[i]
			if workspace != "" && ws.Path != workspace {
				continue
			}
			g := findGroup(groups, ws.Path)
			if g == nil {
				groups = append(groups, &workspaceStatus{Path: ws.Path})
				g = groups[len(groups)-1]
			}
			g.Status = ws.Status
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].Path < groups[j].Path })
	}

	if statusJSON {
		return outputStatusJSON(cmd, groups)
	}

	if len(groups) == 0 {
		cmd.Println("Nothing indexed yet. Run 'sercha-code index' in a workspace.")
		return nil
	}
	if indexingService.IsIndexing() {
		cmd.Println(styles.Warning.Render("An indexing run is in progress."))
		cmd.Println()
	}
	for _, g := range groups {
		printWorkspaceStatus(cmd, g)
	}
	return nil
}

func groupEntries(entries []domain.IndexEntry) []*workspaceStatus {
	var groups []*workspaceStatus
	for i := range entries {
		e := entries[i]
		g := findGroup(groups, e.WorkspacePath)
		if g == nil {
			groups = append(groups, &workspaceStatus{Path: e.WorkspacePath})
			g = groups[len(groups)-1]
		}
		g.Files++
		g.Chunks += e.ChunkCount
		if e.IsStale {
			g.Stale++
		}
		g.Entries = append(g.Entries, e)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Path < groups[j].Path })
	for _, g := range groups {
		sort.Slice(g.Entries, func(i, j int) bool {
			return g.Entries[i].File.RelativePath < g.Entries[j].File.RelativePath
		})
	}
	return groups
}

func findGroup(groups []*workspaceStatus, path string) *workspaceStatus {
	for _, g := range groups {
		if g.Path == path {
			return g
		}
	}
	return nil
}

func printWorkspaceStatus(cmd *cobra.Command, g *workspaceStatus) {
	header := styles.Path.Render(g.Path)
	if g.Status != "" {
		header += " " + styles.Muted.Render("["+g.Status.String()+"]")
	}
	cmd.Println(header)
	cmd.Printf("  Files: %d  Chunks: %d", g.Files, g.Chunks)
	if g.Stale > 0 {
		cmd.Print("  " + styles.Warning.Render(fmt.Sprintf("Stale: %d", g.Stale)))
	}
	cmd.Println()

	for i := range g.Entries {
		e := &g.Entries[i]
		if !statusFiles && !e.IsStale {
			continue
		}
		marker := " "
		if e.IsStale {
			marker = styles.Warning.Render("*")
		}
		cmd.Printf("  %s %s %s\n", marker, e.File.RelativePath,
			styles.Muted.Render(fmt.Sprintf("(%d chunks)", e.ChunkCount)))
	}
	cmd.Println()
}

type statusEntryJSON struct {
	Path          string `json:"path"`
	Chunks        int    `json:"chunks"`
	Stale         bool   `json:"stale"`
	LastIndexedAt string `json:"last_indexed_at"`
}

type statusWorkspaceJSON struct {
	Path   string            `json:"path"`
	Status string            `json:"status,omitempty"`
	Files  int               `json:"files"`
	Chunks int               `json:"chunks"`
	Stale  int               `json:"stale"`
	Items  []statusEntryJSON `json:"entries"`
}

func outputStatusJSON(cmd *cobra.Command, groups []*workspaceStatus) error {
	out := make([]statusWorkspaceJSON, 0, len(groups))
	for _, g := range groups {
		ws := statusWorkspaceJSON{
			Path:   g.Path,
			Status: string(g.Status),
			Files:  g.Files,
			Chunks: g.Chunks,
			Stale:  g.Stale,
			Items:  make([]statusEntryJSON, 0, len(g.Entries)),
		}
		for i := range g.Entries {
			e := &g.Entries[i]
			ws.Items = append(ws.Items, statusEntryJSON{
				Path:          e.File.RelativePath,
				Chunks:        e.ChunkCount,
				Stale:         e.IsStale,
				LastIndexedAt: e.File.LastIndexedAt.UTC().Format(time.RFC3339),
			})
		}
		out = append(out, ws)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
