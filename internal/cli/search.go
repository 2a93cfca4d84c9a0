package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"papertalk/internal/domain"
	"papertalk/internal/usecase"
)

var (
	searchText     string
	searchSpace    string
	searchTopK     int
	searchJSON     bool
	searchNoHybrid bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the chunks closest to a query",
	Long: `Search a space for the chunks closest to the query. Results are ordered by
L2 distance, adjusted by a keyword bonus unless --no-hybrid is set.

Examples:
  papertalk search -q "self attention" -s research
  papertalk search -q "positional encoding" -k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().StringVarP(&searchSpace, "space", "s", domain.DefaultSpaceID, "space id")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchNoHybrid, "no-hybrid", false, "disable keyword re-ranking")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	resp, err := eng.Search(cmd.Context(), searchSpace, searchText, usecase.SearchOptions{
		TopK:     searchTopK,
		NoHybrid: searchNoHybrid,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(resp)
	}

	if resp.Count == 0 {
		fmt.Println("No relevant documents found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", resp.Count, resp.Query)
	for i, r := range resp.Results {
		fmt.Printf("--- [%d] %s #%d (distance: %.4f", i+1, r.OriginalFileID, r.ChunkIndex, r.Distance)
		if r.KeywordMatches > 0 {
			fmt.Printf(", keywords: %d, score: %.4f", r.KeywordMatches, r.Score)
		}
		fmt.Printf(") %s ---\n", r.DocID)
		fmt.Println(truncate(r.Text, 500))
		fmt.Println()
	}
	return nil
}
