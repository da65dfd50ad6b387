package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

var treeChunks bool

var treeCmd = &cobra.Command{
	Use:   "tree [workspace]",
	Short: "Show the indexed folder hierarchy",
	Long:  `Prints the folders and files indexed for a workspace (default: the current directory).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&treeChunks, "chunks", false, "show the chunk count of each file")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	if browseService == nil {
		return errors.New("browse service not configured")
	}

	root, err := resolvePath(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ws, err := browseService.GetWorkspace(ctx, root)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s is not indexed", root)
		}
		return fmt.Errorf("failed to load workspace: %w", err)
	}

	total, err := browseService.ChunkCount(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	cmd.Printf("%s %s\n", styles.Path.Render(ws.Path), styles.Muted.Render(fmt.Sprintf("(%d chunks)", total)))

	return printTreeLevel(ctx, cmd, ws.ID, "", "")
}

func printTreeLevel(ctx context.Context, cmd *cobra.Command, workspaceID, folderID, indent string) error {
	folders, err := browseService.ListFolders(ctx, workspaceID, folderID)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	files, err := browseService.ListFiles(ctx, workspaceID, folderID)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	remaining := len(folders) + len(files)
	for i := range folders {
		remaining--
		branch, next := treeBranch(indent, remaining == 0)
		cmd.Printf("%s%s/\n", branch, folders[i].Name)
		if err := printTreeLevel(ctx, cmd, workspaceID, folders[i].ID, next); err != nil {
			return err
		}
	}
	for i := range files {
		remaining--
		branch, _ := treeBranch(indent, remaining == 0)
		line := branch + files[i].Name
		if treeChunks {
			chunks, err := browseService.GetChunks(ctx, files[i].ID)
			if err != nil {
				return fmt.Errorf("failed to load chunks: %w", err)
			}
			line += " " + styles.Muted.Render(fmt.Sprintf("(%d)", len(chunks)))
		}
		cmd.Println(line)
	}
	return nil
}

// treeBranch returns the connector for an entry and the indent for its children.
func treeBranch(indent string, last bool) (branch, next string) {
	if last {
		return indent + "└── ", indent + "    "
	}
	return indent + "├── ", indent + "│   "
}
