package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifedex/lifedex/internal/core/domain"
)

var (
	digestReset    bool
	digestOnly     string
	digestNoIngest bool
)

var digestCmd = &cobra.Command{
	Use:   "digest [path]",
	Short: "Run the digester pipeline for one file",
	Long: `Runs every applicable digester for the file at the given
inbox-relative path, then pushes the derived content into the search
indexes. Completed digesters are skipped unless --reset is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().BoolVar(&digestReset, "reset", false, "re-run digesters that already completed")
	digestCmd.Flags().StringVar(&digestOnly, "digester", "", "run only the named digester")
	digestCmd.Flags().BoolVar(&digestNoIngest, "no-ingest", false, "skip index ingestion after digesting")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	path := args[0]

	if coordinator == nil {
		return errors.New("coordinator not configured")
	}

	ctx := context.Background()

	if err := coordinator.EnsureAllDigesters(ctx, path); err != nil {
		return fmt.Errorf("preparing digests: %w", err)
	}

	opts := domain.ProcessOptions{Reset: digestReset, Digester: digestOnly}
	success, err := coordinator.ProcessFile(ctx, path, opts)
	if err != nil {
		return fmt.Errorf("digesting %s: %w", path, err)
	}

	if err := printDigests(cmd, ctx, path); err != nil {
		return err
	}

	if !digestNoIngest && ingestor != nil {
		if err := ingestor.IngestFile(ctx, path); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		cmd.Println("Indexed.")
	}

	if !success {
		return fmt.Errorf("some digesters failed for %s", path)
	}
	return nil
}

func printDigests(cmd *cobra.Command, ctx context.Context, path string) error {
	if digestStore == nil {
		return nil
	}

	records, err := digestStore.ListForPath(ctx, path)
	if err != nil {
		return fmt.Errorf("listing digests: %w", err)
	}

	cmd.Printf("Digests for %s:\n", path)
	for i := range records {
		d := &records[i]
		cmd.Printf("  %-20s %-12s attempts=%d", d.Digester, d.Status, d.Attempts)
		if d.Error != nil {
			cmd.Printf("  %s", *d.Error)
		}
		cmd.Println()
	}
	return nil
}
