// Command hidmend maintains input-device drivers on a fleet machine: it
// installs a fixed sequence of driver packages one reboot at a time,
// resuming from a durable progress marker, and cleans up stale device
// registrations along the way.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aristath/hidmend/internal/config"
	"github.com/aristath/hidmend/internal/logging"
)

// Exit code for internal faults; outcome codes come from runner.Outcome.
const exitInternal = 1

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:           "hidmend",
		Short:         "Resumable input-device driver maintenance",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Machine config file (default: /etc/hidmend/config.json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitInternal)
	}
}

// loadConfig resolves the layered configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		return config.Load(filepath.Join(home, ".hidmend", "config.json"), flagConfig)
	}
	return config.LoadDefault()
}

// setupLogging configures the process logger against the loaded config.
// The returned closer releases the log file and may be nil.
func setupLogging(cfg *config.Config) (func(), error) {
	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	closer, err := logging.Configure(level, cfg.LogPath)
	if err != nil {
		return nil, err
	}
	return func() {
		if closer != nil {
			closer.Close()
		}
	}, nil
}
