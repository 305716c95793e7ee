package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/hidmend/internal/devices"
	"github.com/aristath/hidmend/internal/proc"
)

func doctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Scan device health without touching install progress",
		Long: `Doctor runs the device health scan on its own and lists problem
devices. With --fix it also runs the stale-device cleanup pass,
honoring the configured exclusion list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			pm := proc.NewManager()
			scanner := devices.NewScanner(cfg.Devices.Enumerate, pm)

			rep, err := scanner.CheckHealth(ctx)
			if err != nil {
				if errors.Is(err, devices.ErrNotConfigured) {
					return fmt.Errorf("device enumeration is not configured; set devices.enumerate in the config")
				}
				return err
			}

			if rep.AllOK {
				fmt.Println("all devices healthy")
				return nil
			}

			fmt.Printf("%d problem device(s):\n", len(rep.Problems))
			for _, p := range rep.Problems {
				fmt.Printf("  %-10s %s  %s\n", p.Status, p.InstanceID, p.Name)
			}

			if !fix {
				fmt.Println("\nrerun with --fix to disable and deregister them")
				return nil
			}

			cleaner := devices.NewCleaner(cfg.Devices.Disable, cfg.Devices.Remove, cfg.Devices.Exclude, pm)
			crep, err := cleaner.Cleanup(ctx, rep.Problems)
			fmt.Printf("cleanup: %d disabled, %d skipped, %d failed\n",
				crep.Disabled, crep.Skipped, crep.Failed)
			return err
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Disable and deregister problem devices")
	return cmd
}
