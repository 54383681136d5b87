package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [node-id]",
	Short: "Print the outline tree",
	Long: `Prints the visible outline, or the subtree rooted at the given node.

With --json the tree is emitted as a machine-readable snapshot suitable
for handing to an external translator as current-state context.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Emit the tree as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	var roots []domain.NodeSnapshot
	if len(args) == 1 {
		node := outlineService.Find(args[0])
		if node == nil {
			return fmt.Errorf("node not found: %s", args[0])
		}
		roots = []domain.NodeSnapshot{*node}
	} else {
		roots = outlineService.Snapshot()
	}

	if showJSON {
		out, err := json.MarshalIndent(roots, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	if len(roots) == 0 {
		cmd.Println("The outline is empty.")
		return nil
	}

	for i := range roots {
		printNode(cmd, roots[i], 0)
	}
	return nil
}

func printNode(cmd *cobra.Command, node domain.NodeSnapshot, depth int) {
	indent := strings.Repeat("  ", depth)

	marker := "-"
	if node.IsCompleted {
		marker = "x"
	}

	suffix := ""
	if node.IsCollapsed && len(node.Children) > 0 {
		suffix = fmt.Sprintf(" (+%d collapsed)", len(node.Children))
	}

	cmd.Printf("%s[%s] %s  (%s)%s\n", indent, marker, node.Title, node.ID, suffix)

	if node.IsCollapsed {
		return
	}
	for i := range node.Children {
		printNode(cmd, node.Children[i], depth+1)
	}
}
