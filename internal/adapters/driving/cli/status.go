package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifedex/lifedex/internal/core/domain"
)

var statusDigesters bool

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show digest progress",
	Long: `Without arguments, lists every inbox file with a summary of its
digest states. With a path, shows that file's digest records in detail.
With --digesters, lists the configured digester pipeline instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusDigesters, "digesters", false, "list the digester pipeline")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusDigesters {
		return statusPipeline(cmd)
	}

	if digestStore == nil {
		return errors.New("digest store not configured")
	}

	ctx := context.Background()

	if len(args) == 1 {
		return statusForFile(cmd, ctx, args[0])
	}
	return statusOverview(cmd, ctx)
}

// statusPipeline lists the registered digesters in execution order.
func statusPipeline(cmd *cobra.Command) error {
	if registry == nil {
		return errors.New("digester registry not configured")
	}

	all := registry.All()
	if len(all) == 0 {
		cmd.Println("No digesters registered; check the AI backend configuration.")
		return nil
	}

	cmd.Println("Digester pipeline:")
	for _, d := range all {
		cmd.Printf("  %-20s %-22s %s\n", d.Name(), d.Label(), d.Description())
	}
	return nil
}

func statusForFile(cmd *cobra.Command, ctx context.Context, path string) error {
	records, err := digestStore.ListForPath(ctx, path)
	if err != nil {
		return fmt.Errorf("listing digests: %w", err)
	}
	if len(records) == 0 {
		cmd.Printf("No digests for %s.\n", path)
		return nil
	}

	cmd.Printf("Digests for %s:\n", path)
	for i := range records {
		d := &records[i]
		cmd.Printf("  %-20s %-12s attempts=%d  updated=%s\n",
			d.Digester, d.Status, d.Attempts, d.UpdatedAt.Format("2006-01-02 15:04:05"))
		if d.Error != nil {
			cmd.Printf("      error: %s\n", *d.Error)
		}
	}
	return nil
}

func statusOverview(cmd *cobra.Command, ctx context.Context) error {
	if fileStore == nil {
		return errors.New("file store not configured")
	}

	files, err := fileStore.ListInbox(ctx)
	if err != nil {
		return fmt.Errorf("listing inbox: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("Inbox is empty.")
		return nil
	}

	cmd.Println("Inbox:")
	for i := range files {
		f := &files[i]
		records, err := digestStore.ListForPath(ctx, f.Path)
		if err != nil {
			return fmt.Errorf("listing digests for %s: %w", f.Path, err)
		}
		cmd.Printf("  %-40s %s\n", f.Path, summariseStatuses(records))
	}
	return nil
}

// summariseStatuses collapses a file's digest records into a short line
// like "completed=4 pending=1".
func summariseStatuses(records []domain.Digest) string {
	if len(records) == 0 {
		return "no digests"
	}

	counts := make(map[domain.DigestStatus]int)
	for i := range records {
		counts[records[i].Status]++
	}

	order := []domain.DigestStatus{
		domain.DigestCompleted,
		domain.DigestInProgress,
		domain.DigestPending,
		domain.DigestFailed,
		domain.DigestSkipped,
	}

	out := ""
	for _, status := range order {
		if n := counts[status]; n > 0 {
			if out != "" {
				out += " "
			}
			out += fmt.Sprintf("%s=%d", status, n)
		}
	}
	return out
}
