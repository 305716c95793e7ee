package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/hidmend/internal/history"
	"github.com/aristath/hidmend/internal/plan"
	"github.com/aristath/hidmend/internal/progress"
	"github.com/aristath/hidmend/internal/report"
)

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sequence progress and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			steps, err := plan.Build(cfg.Steps)
			if err != nil {
				return err
			}

			marker, err := progress.NewFileStore(cfg.MarkerPath).Read()
			if err != nil {
				if !errors.Is(err, progress.ErrCorruptMarker) {
					return err
				}
				fmt.Fprintln(os.Stderr, "warning: progress marker unreadable, showing fresh state")
				marker = progress.None
			}

			report.RenderStatus(os.Stdout, steps, marker)

			if cfg.HistoryDB == "" {
				return nil
			}
			if _, err := os.Stat(cfg.HistoryDB); os.IsNotExist(err) {
				return nil
			}
			store, err := history.NewSQLiteStore(context.Background(), cfg.HistoryDB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: run history unavailable: %v\n", err)
				return nil
			}
			defer store.Close()

			runs, err := store.RecentRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout)
			report.RenderHistory(os.Stdout, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent runs to show")
	return cmd
}
