package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lifedex/lifedex/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inbox watcher and digest worker",
	Long: `Starts the background pipeline: the inbox watcher keeps the file
catalog in sync with the filesystem, and the digest worker runs digesters,
retries failures with backoff and sweeps stale state. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if digestWorker == nil {
		return errors.New("digest worker not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return digestWorker.Start(ctx)
	})

	// Drain worker events so the channel never backs up; verbose mode
	// surfaces them.
	group.Go(func() error {
		for {
			select {
			case event, ok := <-digestWorker.Events():
				if !ok {
					return nil
				}
				logger.Debug("worker event: %s %s", event.Type, event.FilePath)
			case <-ctx.Done():
				return nil
			}
		}
	})

	if fileWatcher != nil {
		if err := fileWatcher.Start(ctx); err != nil {
			stop()
			_ = group.Wait()
			return err
		}
		defer fileWatcher.Stop()
	}

	cmd.Println("lifedex is running. Press Ctrl-C to stop.")

	<-ctx.Done()
	logger.Section("shutting down")

	if err := digestWorker.Stop(); err != nil {
		logger.Warn("worker stop: %v", err)
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
