package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/hidmend/internal/progress"
)

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard progress so the next run starts from the first step",
		Long: `Reset deletes the progress marker. It does not undo installed
drivers; the next run re-executes the sequence from the beginning,
which the installers tolerate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := progress.NewFileStore(cfg.MarkerPath).Clear(); err != nil {
				return err
			}
			fmt.Println("progress marker cleared")
			return nil
		},
	}
}
