package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the most recent batch",
	Long: `Removes the most recently applied batch from the log and rebuilds
the outline from what remains. Batches applied from other devices are
not affected.`,
	Args: cobra.NoArgs,
	RunE: runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	batchID, err := outlineService.Undo(cmd.Context())
	if err != nil {
		return fmt.Errorf("undoing batch: %w", err)
	}
	if batchID == "" {
		cmd.Println("Nothing to undo.")
		return nil
	}

	cmd.Printf("Undid batch %s.\n", batchID)
	return nil
}
