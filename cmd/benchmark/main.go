// Command benchmark compares semantic and hybrid ranking for one query
// against an existing space.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"papertalk/config"
	"papertalk/internal/domain"
	"papertalk/internal/engine"
	"papertalk/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding papertalk.yaml and .papertalk/")
	space := flag.String("space", domain.DefaultSpaceID, "Space to search")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./papers -space research -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Semantic order (pure L2 distance)")
		fmt.Println("  2. Hybrid order (distance minus keyword bonus)")
		fmt.Println("  3. How much the keyword bonus reordered the top results")
		os.Exit(1)
	}

	if err := config.LoadEnv(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Generation.Provider = "none"
	cfg.Retrieve.HybridEnabled = true
	cfg.Retrieve.CacheSize = 0

	ctx := context.Background()
	eng, err := engine.New(ctx, cfg, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	semantic, err := eng.Search(ctx, *space, *query, usecase.SearchOptions{TopK: *topK, NoHybrid: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	hybrid, err := eng.Search(ctx, *space, *query, usecase.SearchOptions{TopK: *topK})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Space: %s\n", *space)
	fmt.Printf("Model: %s (%s, %d dims)\n", cfg.Embedding.Model, cfg.Embedding.Provider, cfg.Embedding.Dimension)
	fmt.Printf("Query: %q\n", *query)
	fmt.Printf("Keyword boost: %.2f, candidates: %dx\n", cfg.Retrieve.KeywordBoost, cfg.Retrieve.CandidateMultiplier)
	fmt.Println()

	if semantic.Count == 0 {
		fmt.Println("No chunks in this space. Run 'papertalk ingest' first.")
		return
	}

	printResults("Semantic", semantic.Results)
	printResults("Hybrid", hybrid.Results)

	moved := 0
	for i, r := range hybrid.Results {
		if i >= len(semantic.Results) || semantic.Results[i].DocID != r.DocID {
			moved++
		}
	}
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Mean semantic distance: %.4f\n", meanDistance(semantic.Results))
	fmt.Printf("  Mean hybrid distance:   %.4f\n", meanDistance(hybrid.Results))
	fmt.Printf("  Positions changed:      %d of %d\n", moved, len(hybrid.Results))
}

func printResults(label string, results []domain.SearchResult) {
	fmt.Printf("%s top %d:\n\n", label, len(results))
	for i, r := range results {
		preview := previewText(r.Text, 150)
		fmt.Printf("%d. [dist %.4f score %.4f kw %d] %s #%d\n", i+1, r.Distance, r.Score, r.KeywordMatches, r.OriginalFileID, r.ChunkIndex)
		fmt.Printf("   %s\n\n", preview)
	}
}

// previewText flattens text to one line and cuts it to n runes.
func previewText(text string, n int) string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}

func meanDistance(results []domain.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range results {
		total += r.Distance
	}
	return total / float64(len(results))
}
