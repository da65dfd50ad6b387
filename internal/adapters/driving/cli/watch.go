package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-code/internal/adapters/driving/watcher"
	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

var (
	watchNoInitial bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep a workspace index up to date",
	Long: `Indexes the workspace (default: the current directory) and then watches it
for changes. Saved files are reindexed after a short quiet period and deleted
files or folders are removed from the index.

Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "skip the initial full index")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before reindexing (0 uses the configured value)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	root, err := resolvePath(args)
	if err != nil {
		return err
	}

	indexing := domain.DefaultAppSettings().Indexing
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		indexing = settings.Indexing
	}

	opts := []watcher.Option{watcher.WithLogger(appLogger)}
	if watchDebounce > 0 {
		opts = append(opts, watcher.WithDebounce(watchDebounce))
	}
	w, err := watcher.New(root, indexingService, indexing, opts...)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	ctx := cmd.Context()
	if !watchNoInitial {
		progress := newProgressPrinter(cmd.ErrOrStderr(), false)
		result, err := indexingService.IndexWorkspace(ctx, root, progress.update)
		progress.done()
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		printIndexSummary(cmd, result)
		cmd.Println()
	}

	cmd.Printf("Watching %s\n", styles.Path.Render(w.Root()))
	events, unsubscribe := indexingService.Subscribe(64)
	defer unsubscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			printWatchEvent(cmd, ev)
		}
	}()

	runErr := w.Run(ctx)
	unsubscribe()
	<-done
	return runErr
}

func printWatchEvent(cmd *cobra.Command, ev domain.IndexEvent) {
	switch ev.Type {
	case domain.EventFileProcessed:
		if ev.Outcome == domain.FileIndexed {
			cmd.Printf("%s %s\n", styles.Success.Render("indexed"), ev.Path)
		}
	case domain.EventFileFailed:
		cmd.Printf("%s %s: %v\n", styles.Error.Render("failed"), ev.Path, ev.Err)
	case domain.EventIndexDeleted:
		if ev.Path != "" {
			cmd.Printf("%s %s\n", styles.Warning.Render("removed"), ev.Path)
		}
	}
}
