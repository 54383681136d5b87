package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
)

var (
	logLimit      int
	logSinceHours int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent changes",
	Long: `Prints recent changes derived from the event log, newest first.
Deleted items still show their last known title.`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "Maximum entries to show (default from config, else 50)")
	logCmd.Flags().IntVar(&logSinceHours, "since-hours", 0, "Only show changes from the last N hours")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	limit := logLimit
	if limit <= 0 && configStore != nil {
		limit = configStore.GetInt("log.limit")
	}

	var since int64
	if logSinceHours > 0 {
		since = time.Now().Add(-time.Duration(logSinceHours) * time.Hour).UnixNano()
	}

	entries, err := outlineService.ChangeLog(cmd.Context(), since, limit)
	if err != nil {
		return fmt.Errorf("reading change log: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No changes recorded.")
		return nil
	}

	for _, entry := range entries {
		cmd.Printf("%s  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"), describeEntry(entry))
	}
	return nil
}

func describeEntry(entry domain.ChangeLogEntry) string {
	switch entry.Kind {
	case domain.EventInsertNode:
		if entry.ParentID != "" {
			return fmt.Sprintf("added %q under %s", entry.Title, entry.ParentID)
		}
		return fmt.Sprintf("added %q", entry.Title)
	case domain.EventRenameNode:
		return fmt.Sprintf("renamed %q to %q", entry.OldTitle, entry.NewTitle)
	case domain.EventDeleteNode:
		return fmt.Sprintf("deleted %q", entry.Title)
	case domain.EventReparentNode:
		if entry.NewParentID != "" {
			return fmt.Sprintf("moved %q under %s", entry.Title, entry.NewParentID)
		}
		return fmt.Sprintf("moved %q to top level", entry.Title)
	case domain.EventToggleCollapse:
		return fmt.Sprintf("toggled %q collapsed", entry.Title)
	case domain.EventToggleComplete:
		if entry.IsCompleted != nil && *entry.IsCompleted {
			return fmt.Sprintf("completed %q", entry.Title)
		}
		return fmt.Sprintf("reopened %q", entry.Title)
	}
	return string(entry.Kind)
}
