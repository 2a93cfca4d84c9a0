package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var spacesJSON bool

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "Manage spaces",
}

var spacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known spaces",
	Args:  cobra.NoArgs,
	RunE:  runSpacesList,
}

var spacesCreateCmd = &cobra.Command{
	Use:   "create <id> [name]",
	Short: "Create a space (no-op if it exists)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSpacesCreate,
}

var spacesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Change the display name of a space",
	Args:  cobra.ExactArgs(2),
	RunE:  runSpacesRename,
}

func init() {
	rootCmd.AddCommand(spacesCmd)
	spacesCmd.AddCommand(spacesListCmd, spacesCreateCmd, spacesRenameCmd)
	spacesListCmd.Flags().BoolVar(&spacesJSON, "json", false, "output as JSON")
}

func runSpacesList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	spaces, err := eng.ListSpaces(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list spaces: %w", err)
	}

	if spacesJSON {
		return printJSON(spaces)
	}
	if len(spaces) == 0 {
		fmt.Println("No spaces yet.")
		return nil
	}
	for _, s := range spaces {
		fmt.Printf("%-24s %-32s %s\n", s.ID, s.Name, s.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runSpacesCreate(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	if err := eng.CreateSpace(cmd.Context(), args[0], name); err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	fmt.Printf("Space %q ready\n", args[0])
	return nil
}

func runSpacesRename(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.RenameSpace(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename space: %w", err)
	}
	fmt.Printf("Space %q renamed to %q\n", args[0], args[1])
	return nil
}
