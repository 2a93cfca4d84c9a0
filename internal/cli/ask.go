package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"papertalk/internal/domain"
)

var (
	askText  string
	askSpace string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from a space",
	Long: `Retrieve the most relevant chunks of a space, pack them into the context
token budget and ask the generation model to answer from them.

Examples:
  papertalk ask -q "what problem does the paper solve?" -s research
  papertalk ask -q "which datasets were used?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().StringVarP(&askSpace, "space", "s", domain.DefaultSpaceID, "space id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

type askOutput struct {
	*domain.Answer
	Error string `json:"error,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	answer, err := eng.Ask(cmd.Context(), askSpace, askText)
	if answer == nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		out := askOutput{Answer: answer}
		if err != nil {
			out.Error = err.Error()
		}
		if perr := printJSON(out); perr != nil {
			return perr
		}
		return err
	}

	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			fmt.Println("The model did not answer in time.")
		} else {
			fmt.Println("Failed to generate response.")
		}
	} else {
		fmt.Println(answer.Text)
	}

	if len(answer.Sources) > 0 {
		fmt.Printf("\nSources (%d of %d chunks, %d tokens):\n",
			answer.Debug.ChunksUsed, answer.Debug.ChunksAvailable, answer.Debug.ContextTokens)
		for i, s := range answer.Sources {
			fmt.Printf("  [%d] %s (distance: %.4f)\n", i+1, s.DocID, s.RelevanceScore)
		}
	}
	return err
}
