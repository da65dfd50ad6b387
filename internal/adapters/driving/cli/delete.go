package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	deleteWorkspace bool
	deleteFolder    string
)

var deleteCmd = &cobra.Command{
	Use:   "delete [path]",
	Short: "Remove files, folders or workspaces from the index",
	Long: `Removes indexed data without touching the files on disk.

  sercha-code delete main.go                 remove one file
  sercha-code delete --folder internal .     remove a folder of a workspace
  sercha-code delete --workspace ~/src/app   remove a whole workspace

A path that is an existing directory removes that workspace.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteWorkspace, "workspace", false, "treat the path as a workspace root")
	deleteCmd.Flags().StringVar(&deleteFolder, "folder", "", "folder to remove, relative to the workspace")
	deleteCmd.MarkFlagsMutuallyExclusive("workspace", "folder")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	target, err := resolvePath(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	switch {
	case deleteFolder != "":
		if err := indexingService.DeleteFolderIndex(ctx, target, deleteFolder); err != nil {
			return fmt.Errorf("delete folder failed: %w", err)
		}
		cmd.Printf("Removed folder %s from %s\n", deleteFolder, styles.Path.Render(target))
		return nil

	case deleteWorkspace || isDir(target):
		if err := indexingService.DeleteWorkspaceIndex(ctx, target); err != nil {
			return fmt.Errorf("delete workspace failed: %w", err)
		}
		cmd.Printf("Removed workspace %s\n", styles.Path.Render(target))
		return nil

	default:
		if err := indexingService.DeleteFileIndex(ctx, target); err != nil {
			return fmt.Errorf("delete file failed: %w", err)
		}
		cmd.Printf("Removed %s\n", styles.Path.Render(target))
		return nil
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
