package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"papertalk/internal/domain"
)

var (
	docsSpace string
	docsJSON  bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the files ingested into a space",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringVarP(&docsSpace, "space", "s", domain.DefaultSpaceID, "space id")
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
}

func runDocs(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, err := eng.ListDocuments(cmd.Context(), docsSpace)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsJSON {
		return printJSON(docs)
	}
	if len(docs) == 0 {
		fmt.Printf("No documents in space %q.\n", docsSpace)
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%-36s %-32s %4d chunks  %s\n", d.FileID, d.OriginalFileID, d.ChunkCount, d.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}
