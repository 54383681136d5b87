package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arbor-labs/arbor-cli/internal/adapters/driving/inbox"
)

var watchDirFlag string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox for batches from other devices",
	Long: `Watches the inbox directory for batch files dropped by a sync agent
and applies each one to the outline. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDirFlag, "dir", "", "Inbox directory (default from config, else ~/.arbor/inbox)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return errors.New("outline service not configured")
	}

	dir, err := inboxDir()
	if err != nil {
		return err
	}

	watcher, err := inbox.NewWatcher(dir, outlineService)
	if err != nil {
		return err
	}

	if err := watcher.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting inbox watcher: %w", err)
	}

	cmd.Printf("Watching %s for remote batches. Press Ctrl+C to stop.\n", dir)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	for {
		select {
		case notice, ok := <-watcher.Notices:
			if !ok {
				return nil
			}
			if notice.Err != nil {
				cmd.Printf("Rejected %s: %v\n", notice.File, notice.Err)
				continue
			}
			cmd.Printf("Applied %s (%d events).\n", notice.File, notice.Events)
		case <-interrupt:
			cmd.Println("\nStopping.")
			watcher.Stop()
			return nil
		case <-cmd.Context().Done():
			watcher.Stop()
			return nil
		}
	}
}

func inboxDir() (string, error) {
	if watchDirFlag != "" {
		return watchDirFlag, nil
	}
	if configStore != nil {
		if dir := configStore.GetString("inbox.dir"); dir != "" {
			return dir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving inbox directory: %w", err)
	}
	return filepath.Join(home, ".arbor", "inbox"), nil
}
