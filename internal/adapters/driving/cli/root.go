// Package cli wires the cobra command surface to the outline service.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/arbor-labs/arbor-cli/internal/adapters/driven/config/file"
	"github.com/arbor-labs/arbor-cli/internal/adapters/driven/storage/sqlite"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driven"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driving"
	"github.com/arbor-labs/arbor-cli/internal/core/services"
	"github.com/arbor-labs/arbor-cli/internal/logger"
)

// version is set from main at build time.
var version = "dev"

// Services used by the commands. Wired by initServices on first use;
// tests inject their own instances.
var (
	outlineService driving.OutlineService
	configStore    driven.ConfigStore
	eventStore     *sqlite.Store
)

var (
	verboseFlag       bool
	dataDirFlag       string
	configDirFlag     string
	strictParentsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Event-sourced hierarchical outliner",
	Long: `arbor keeps a hierarchical list as an append-only event log.

Edits are applied as batches of operations, every batch can be undone,
and the visible tree is always rebuilt from the log, so state on disk
and state in memory can never disagree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)

		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}

		if outlineService != nil {
			// Already wired (tests).
			return nil
		}
		return initServices(cmd)
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if eventStore == nil {
			return nil
		}
		err := eventStore.Close()
		eventStore = nil
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default ~/.arbor/data)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Config directory (default ~/.arbor)")
	rootCmd.PersistentFlags().BoolVar(&strictParentsFlag, "strict-parents", false, "Reject operations whose parent cannot be resolved")
}

// initServices opens the config and event stores and loads the outline.
func initServices(cmd *cobra.Command) error {
	cfg, err := configfile.NewConfigStore(configDirFlag)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	configStore = cfg

	store, err := sqlite.NewStore(dataDirFlag)
	if err != nil {
		return fmt.Errorf("opening event store: %w", err)
	}
	eventStore = store

	var opts []services.Option
	if capacity := cfg.GetInt("undo.capacity"); capacity > 0 {
		opts = append(opts, services.WithUndoCapacity(capacity))
	}
	if strictParentsFlag || cfg.GetBool("validation.strict_parents") {
		opts = append(opts, services.WithStrictParents(true))
	}

	svc := services.NewOutline(store, opts...)
	if err := svc.Load(cmd.Context()); err != nil {
		store.Close()
		eventStore = nil
		return fmt.Errorf("loading outline: %w", err)
	}
	outlineService = svc

	logger.Debug("services initialised (data dir %q)", dataDirFlag)
	return nil
}

// Execute runs the root command. Intended to be called once from main.
func Execute(v string) {
	if v != "" {
		version = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
