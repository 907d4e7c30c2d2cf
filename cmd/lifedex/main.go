// Command lifedex is the entry point for the digest pipeline and search CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lifedex/lifedex/internal/adapters/driven/ai/openai"
	"github.com/lifedex/lifedex/internal/adapters/driven/config/file"
	"github.com/lifedex/lifedex/internal/adapters/driven/media/haid"
	meili "github.com/lifedex/lifedex/internal/adapters/driven/search/meilisearch"
	qdrantidx "github.com/lifedex/lifedex/internal/adapters/driven/search/qdrant"
	"github.com/lifedex/lifedex/internal/adapters/driven/storage/sqlite"
	"github.com/lifedex/lifedex/internal/adapters/driving/cli"
	"github.com/lifedex/lifedex/internal/adapters/driving/watch"
	"github.com/lifedex/lifedex/internal/chunker"
	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/services"
	"github.com/lifedex/lifedex/internal/digesters"
	"github.com/lifedex/lifedex/internal/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := wire(); err != nil {
		fmt.Fprintf(os.Stderr, "lifedex: %v\n", err)
		os.Exit(1)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// wire constructs the application from config.toml and installs it into
// the command tree. Optional backends that are not configured are left
// nil; the services degrade accordingly.
func wire() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := file.LoadAppConfig(configStore)

	store, err := sqlite.NewStore(cfg.RootDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}

	// AI backends.
	var completion driven.CompletionService
	var embedder driven.EmbeddingService
	var embedderDims int
	if cfg.OpenAI.APIKey != "" || cfg.OpenAI.BaseURL != "" {
		completion = openai.NewCompletionService(openai.CompletionConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.CompletionModel,
		})
		emb := openai.NewEmbeddingService(openai.EmbeddingConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
		})
		embedder = emb
		embedderDims = emb.Dimensions()
	}

	var media *haid.Client
	if cfg.HAID.BaseURL != "" {
		var opts []haid.Option
		if cfg.HAID.RequestsPerSecond > 0 {
			opts = append(opts, haid.WithRateLimit(cfg.HAID.RequestsPerSecond, cfg.HAID.Burst))
		}
		media = haid.NewClient(cfg.HAID.BaseURL, cfg.HAID.APIKey, opts...)
	}

	// Search indexes.
	ctx := context.Background()

	var vectors driven.VectorIndex
	if cfg.Qdrant.URL != "" && embedder != nil {
		collection := cfg.Qdrant.Collection
		if collection == "" {
			collection = qdrantidx.DefaultCollection
		}
		vi, err := qdrantidx.NewVectorIndex(cfg.Qdrant.URL, collection)
		if err != nil {
			return fmt.Errorf("connecting to qdrant: %w", err)
		}
		if err := vi.EnsureCollection(ctx, embedderDims); err != nil {
			logger.Warn("qdrant collection check: %v", err)
		}
		vectors = vi
	}

	var keywords driven.KeywordIndex
	if cfg.Meilisearch.Host != "" {
		index := cfg.Meilisearch.Index
		if index == "" {
			index = meili.DefaultIndex
		}
		ki := meili.NewKeywordIndex(cfg.Meilisearch.Host, cfg.Meilisearch.APIKey, index)
		if err := ki.EnsureSettings(ctx); err != nil {
			logger.Warn("meilisearch settings: %v", err)
		}
		keywords = ki
	}

	// Digester pipeline.
	svcs := digesters.Services{
		Completion: completion,
		Prompts:    prompts,
	}
	if media != nil {
		svcs.Crawler = media
		svcs.Documents = media
		svcs.Vision = media
		svcs.Speech = media
	}
	registry := digesters.DefaultRegistry(cfg.RootDir, svcs)

	// Core services.
	files := store.FileStore()
	coordinator := services.NewCoordinator(registry, files, store.DigestStore())
	ingest := services.NewIngestService(
		files,
		store.DigestStore(),
		store.ChunkStore(),
		embedder,
		vectors,
		keywords,
		chunker.New(),
		cfg.RootDir,
	)
	worker := services.NewWorker(cfg.Worker, coordinator, ingest, store.DigestStore(), store.LockStore())
	search := services.NewSearchService(keywords, embedder, vectors)
	watcher := watch.New(cfg.RootDir, files, worker, ingest)

	cli.Wire(cli.Services{
		Search:      search,
		Worker:      worker,
		Coordinator: coordinator,
		Ingestor:    ingest,
		Files:       files,
		Digests:     store.DigestStore(),
		Watcher:     watcher,
		Registry:    registry,
		SearchDefaults: domain.SearchOptions{
			Limit:          cfg.Search.Limit,
			KeywordWeight:  cfg.Search.KeywordWeight,
			SemanticWeight: cfg.Search.SemanticWeight,
		},
		Close: store.Close,
	})
	return nil
}
