// Package cli implements the lifedex command-line interface. Commands run
// against package-level services injected by Wire before Execute.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/ports/driving"
	"github.com/lifedex/lifedex/internal/digesters"
	"github.com/lifedex/lifedex/internal/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// FileWatcher is the slice of the inbox watcher the serve command needs.
type FileWatcher interface {
	Start(ctx context.Context) error
	Stop()
}

// Injected services. Commands nil-check what they use so partial wiring
// (for example search without a worker) still works.
var (
	searchService  driving.SearchService
	digestWorker   driving.DigestWorker
	coordinator    driving.Coordinator
	ingestor       driving.Ingestor
	fileStore      driven.FileStore
	digestStore    driven.DigestStore
	fileWatcher    FileWatcher
	registry       *digesters.Registry
	searchDefaults domain.SearchOptions
	closeApp       func() error
)

// Services bundles what Wire injects into the command tree.
type Services struct {
	Search      driving.SearchService
	Worker      driving.DigestWorker
	Coordinator driving.Coordinator
	Ingestor    driving.Ingestor
	Files       driven.FileStore
	Digests     driven.DigestStore
	Watcher     FileWatcher
	Registry    *digesters.Registry

	// SearchDefaults supplies configured limit and fusion weights.
	SearchDefaults domain.SearchOptions

	// Close releases held resources (database handles) after Execute.
	Close func() error
}

// Wire installs the constructed services. Call once before Execute.
func Wire(s Services) {
	searchService = s.Search
	digestWorker = s.Worker
	coordinator = s.Coordinator
	ingestor = s.Ingestor
	fileStore = s.Files
	digestStore = s.Digests
	fileWatcher = s.Watcher
	registry = s.Registry
	searchDefaults = s.SearchDefaults
	closeApp = s.Close
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	version = v
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "lifedex",
	Short: "Personal file digest pipeline and hybrid search",
	Long: `Lifedex watches a personal inbox of documents, images, audio and
URL notes, derives searchable content from them through a digester
pipeline, and serves hybrid keyword plus semantic search over the result.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the command tree.
func Execute() error {
	defer func() {
		if closeApp != nil {
			_ = closeApp()
		}
	}()
	return rootCmd.Execute()
}
