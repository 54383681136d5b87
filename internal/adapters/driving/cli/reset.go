package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the entire outline and its history",
	Long: `Wipes the event log, the outline and the undo history. This cannot
be undone; --yes is required.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	if !resetConfirmed {
		return errors.New("reset deletes all data; re-run with --yes to confirm")
	}

	if err := outlineService.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("resetting outline: %w", err)
	}

	cmd.Println("Outline reset: all events and undo history deleted.")
	return nil
}
