// Command sercha-code indexes local code workspaces and answers semantic
// queries over them from the command line or as an MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/sercha-code/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-code/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/sercha-code/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-code/internal/core/services"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/postprocessors/chunker"
)

// Set by the release build with -ldflags "-X main.version=...".
var version = "dev"

// homeEnv overrides the directory holding config.toml and the index.
const homeEnv = "SERCHA_CODE_HOME"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(os.Stderr, false)

	configDir, dataDir := "", ""
	if home := os.Getenv(homeEnv); home != "" {
		configDir = home
		dataDir = filepath.Join(home, "data")
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer store.Close()

	aiServices := ai.Init(ctx, settings, store)
	defer aiServices.Close()

	metadata := store.MetadataStore()
	chunks := chunker.New(
		tiktoken.New(tiktoken.DefaultEncoding),
		chunker.WithMaxTokens(settings.Indexing.ChunkMaxTokens),
		chunker.WithOverlap(settings.Indexing.ChunkOverlapTokens),
	)

	indexingService := services.NewIndexingService(
		metadata, aiServices.VectorIndex, aiServices.EmbeddingService, chunks, settings.Indexing, log,
	)
	searchService := services.NewSearchService(
		metadata, aiServices.VectorIndex, aiServices.EmbeddingService, log,
	)
	searchService.SetDefaultMaxResults(settings.Search.MaxResults)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Indexing: indexingService,
		Search:   searchService,
		Browse:   services.NewBrowseService(metadata),
		Settings: settingsService,
		Logger:   log,
		Warnings: aiServices.Warnings,
	})

	return cli.Execute(ctx)
}
