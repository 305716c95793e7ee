package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/hidmend/internal/config"
	"github.com/aristath/hidmend/internal/devices"
	"github.com/aristath/hidmend/internal/events"
	"github.com/aristath/hidmend/internal/history"
	"github.com/aristath/hidmend/internal/installer"
	"github.com/aristath/hidmend/internal/intake"
	"github.com/aristath/hidmend/internal/plan"
	"github.com/aristath/hidmend/internal/proc"
	"github.com/aristath/hidmend/internal/progress"
	"github.com/aristath/hidmend/internal/report"
	"github.com/aristath/hidmend/internal/runner"
)

func runCmd() *cobra.Command {
	var noReboot bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the next pending driver install step",
		Long: `Run performs one invocation of the maintenance sequence: a device
health scan and stale-device cleanup, then at most one driver install.
After a successful install the machine reboots; rerun after the reboot
to continue. Exit codes: 0 done or reboot pending, 2 missing installer,
3 install failed, 1 internal error.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runOnce(noReboot))
		},
	}
	cmd.Flags().BoolVar(&noReboot, "no-reboot", false, "Skip the reboot trigger after a successful install")
	return cmd
}

func runOnce(noReboot bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		return exitInternal
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return exitInternal
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %v\n", err)
		return exitInternal
	}
	defer closeLog()

	steps, err := plan.Build(cfg.Steps)
	if err != nil {
		slog.Error("invalid step configuration", "err", err)
		return exitInternal
	}

	pm := proc.NewManager()
	go func() {
		<-ctx.Done()
		stop()
		if err := pm.KillAll(); err != nil {
			slog.Warn("error killing subprocesses", "err", err)
		}
	}()

	bus := events.NewBus()
	console := report.NewConsole(os.Stdout, bus)

	var hist history.Store
	if cfg.HistoryDB != "" {
		s, err := history.NewSQLiteStore(ctx, cfg.HistoryDB)
		if err != nil {
			slog.Warn("run history unavailable", "err", err)
		} else {
			hist = s
			defer s.Close()
		}
	}

	opts := runner.Options{
		Steps:     steps,
		IntakeDir: cfg.IntakeDir,
		Marker:    progress.NewFileStore(cfg.MarkerPath),
		Resolver:  intake.NewProvider(cfg.Installer.Extensions),
		Executor:  installer.New(cfg.Installer.SilentArgs, pm),
		History:   hist,
		Bus:       bus,
	}
	if len(cfg.Devices.Enumerate) > 0 {
		opts.Health = devices.NewScanner(cfg.Devices.Enumerate, pm)
	}
	if len(cfg.Devices.Disable) > 0 || len(cfg.Devices.Remove) > 0 {
		opts.Cleaner = devices.NewCleaner(cfg.Devices.Disable, cfg.Devices.Remove, cfg.Devices.Exclude, pm)
	}
	if !noReboot && len(cfg.RebootCmd) > 0 {
		opts.Reboot = rebootFunc(cfg, pm)
	}

	r, err := runner.New(opts)
	if err != nil {
		slog.Error("runner setup failed", "err", err)
		return exitInternal
	}

	out, err := r.Run(ctx)
	bus.Close()
	console.Wait()
	if err != nil {
		slog.Error("run aborted", "err", err)
		return exitInternal
	}
	return out.ExitCode()
}

func rebootFunc(cfg *config.Config, pm *proc.Manager) runner.RebootFunc {
	return func(ctx context.Context) error {
		cmd := proc.Command(ctx, cfg.RebootCmd[0], cfg.RebootCmd[1:]...)
		_, stderr, err := proc.Run(ctx, cmd, pm)
		if err != nil {
			return fmt.Errorf("reboot command: %w (stderr: %s)", err, stderr)
		}
		return nil
	}
}
