// Package cli provides the sercha-code command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/logger"
)

// version is set by the composition root from build flags.
var version = "dev"

var verbose bool

// Services wired in by the composition root.
var (
	indexingService driving.IndexingService
	searchService   driving.SearchService
	browseService   driving.BrowseService
	settingsService driving.SettingsService
	appLogger       = logger.Nop()
	startupWarnings []string
)

// Services holds the driving ports the commands use.
type Services struct {
	Indexing driving.IndexingService
	Search   driving.SearchService
	Browse   driving.BrowseService
	Settings driving.SettingsService
	Logger   *logger.Logger

	// Warnings from wiring optional services, logged in verbose mode.
	Warnings []string
}

// SetServices installs the application services.
func SetServices(s Services) {
	indexingService = s.Indexing
	searchService = s.Search
	browseService = s.Browse
	settingsService = s.Settings
	if s.Logger != nil {
		appLogger = s.Logger
	}
	startupWarnings = s.Warnings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "sercha-code",
	Short: "Semantic code search for local workspaces",
	Long: `sercha-code indexes source files into token-bounded, line-aligned chunks,
embeds them and answers natural-language queries with the most relevant
snippets, file paths and line ranges.

Indexing is incremental: unchanged files are skipped by content hash.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		appLogger.SetVerbose(verbose)
		for _, w := range startupWarnings {
			appLogger.Debug("Startup: %s", w)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logging to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
