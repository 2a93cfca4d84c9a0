package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"papertalk/internal/domain"
	"papertalk/internal/engine"
)

var (
	ingestSpace string
	ingestJSON  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>...",
	Short: "Ingest PDF and text files into a space",
	Long: `Extract, chunk and embed files into the given space. Directories are
walked recursively using the chunk.includes and chunk.excludes globs.

Examples:
  papertalk ingest paper.pdf --space research
  papertalk ingest ./papers -s research`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestSpace, "space", "s", domain.DefaultSpaceID, "target space id")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output as JSON")
}

type ingestFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type ingestSummary struct {
	Space    string                `json:"space"`
	Ingested []domain.IngestResult `json:"ingested"`
	Failed   []ingestFailure       `json:"failed,omitempty"`
	Chunks   int                   `json:"chunks"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := eng.Walker().Walk(cmd.Context(), arg)
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", arg, err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	if len(paths) == 0 {
		fmt.Println("No matching files found.")
		return nil
	}

	summary := ingestFiles(cmd, eng, paths)

	if ingestJSON {
		return printJSON(summary)
	}

	fmt.Printf("\nIngest complete (space %q):\n", summary.Space)
	fmt.Printf("  Files ingested: %d\n", len(summary.Ingested))
	fmt.Printf("  Chunks created: %d\n", summary.Chunks)
	for _, r := range summary.Ingested {
		fmt.Printf("  - %s -> %s (%d chunks)\n", r.Filename, r.FileID, r.ChunkCount)
	}
	if len(summary.Failed) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, f := range summary.Failed {
			fmt.Printf("  - %s: %s\n", f.Path, f.Error)
		}
	}

	if len(summary.Ingested) == 0 {
		return fmt.Errorf("no files ingested")
	}
	return nil
}

// ingestFiles ingests paths one by one. A failing file is reported and
// skipped; it never aborts the rest of the run.
func ingestFiles(cmd *cobra.Command, eng *engine.Engine, paths []string) ingestSummary {
	summary := ingestSummary{
		Space:    ingestSpace,
		Ingested: []domain.IngestResult{},
	}

	var bar *progressbar.ProgressBar
	if len(paths) > 1 && !ingestJSON {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	start := time.Now()
	for i, path := range paths {
		if cmd.Context().Err() != nil {
			summary.Failed = append(summary.Failed, ingestFailure{Path: path, Error: "interrupted"})
			continue
		}

		res, err := eng.IngestFile(cmd.Context(), ingestSpace, path)
		if err != nil {
			summary.Failed = append(summary.Failed, ingestFailure{Path: path, Error: err.Error()})
		} else {
			summary.Ingested = append(summary.Ingested, *res)
			summary.Chunks += res.ChunkCount
		}

		if bar != nil {
			bar.Set(i + 1)
			processed := i + 1
			elapsed := time.Since(start)
			if remaining := len(paths) - processed; remaining > 0 && elapsed > 0 {
				eta := time.Duration(float64(elapsed) / float64(processed) * float64(remaining))
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] %s ETA: %s", filepath.Base(path), formatDuration(eta)))
			}
		}
	}
	return summary
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
