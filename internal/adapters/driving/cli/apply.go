package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
)

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply a batch of operations to the outline",
	Long: `Reads a JSON array of operations from the given file (or stdin when
no file is given) and applies it as one undoable batch.

Operations may reference each other by caller-chosen node ids within the
same batch; those ids are replaced by freshly minted stable ids. Invalid
operations are skipped and reported, they never abort the batch.

Example input:

  [
    {"kind": "insertNode", "nodeId": "a", "title": "Weekend"},
    {"kind": "insertNode", "nodeId": "b", "title": "Hike", "parentId": "a"}
  ]`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	ops, err := readOperations(cmd, args)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		cmd.Println("No operations to apply.")
		return nil
	}

	summary, err := outlineService.ApplyOperations(cmd.Context(), ops)
	if err != nil {
		return fmt.Errorf("applying batch: %w", err)
	}

	if summary.EventCount == 0 {
		cmd.Printf("No events produced (%d operations skipped).\n", summary.Skipped)
		return nil
	}

	cmd.Printf("Applied batch %s: %d events", summary.BatchID, summary.EventCount)
	if summary.Skipped > 0 {
		cmd.Printf(", %d operations skipped", summary.Skipped)
	}
	cmd.Println()
	return nil
}

func readOperations(cmd *cobra.Command, args []string) ([]domain.Operation, error) {
	var raw []byte
	var err error

	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading operations file: %w", err)
		}
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading operations from stdin: %w", err)
		}
	}

	var ops []domain.Operation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("decoding operations: %w", err)
	}
	return ops, nil
}
