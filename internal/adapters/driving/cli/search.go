package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifedex/lifedex/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed files",
	Long: `Performs hybrid search across indexed file content.
Keyword and semantic results are merged with reciprocal rank fusion, so a
file ranked well by either source surfaces near the top.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := searchDefaults
	if searchLimit > 0 {
		opts.Limit = searchLimit
	}

	results, err := searchService.Search(context.Background(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.FusedResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.FusedResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]

		cmd.Printf("  [%d] %s (%.4f)\n", i+1, r.FilePath, r.Score)
		cmd.Printf("      Matched: %s\n", matchedSources(r))
		if r.Snippet != "" {
			cmd.Printf("      %s\n", r.Snippet)
		}
		cmd.Println()
	}

	return nil
}

func matchedSources(r *domain.FusedResult) string {
	switch {
	case r.InKeyword && r.InSemantic:
		return "keyword + semantic"
	case r.InKeyword:
		return "keyword"
	case r.InSemantic:
		return "semantic"
	default:
		return "none"
	}
}
