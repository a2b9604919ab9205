package cmd

import (
	"fmt"

	"rekordboxport/internal/catalog"
	"rekordboxport/internal/export"
	"rekordboxport/logger"

	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	historyPassword string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent export runs from the catalog database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !export.CheckHistoryAccess(historyPassword, cfg.HistoryPassphrase) {
			return fmt.Errorf("history access denied: wrong passphrase")
		}

		db, err := catalog.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect catalog: %w", err)
		}

		runs, err := catalog.Recent(db, historyLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		for _, r := range runs {
			logger.Info("export run",
				logger.String("run_id", r.RunID),
				logger.String("outcome", r.Outcome),
				logger.Int("tracks", r.TrackCount),
				logger.Int("playlists", r.PlaylistCount),
				logger.String("output_dir", r.OutputDir))
			fmt.Printf("%s  %-8s  tracks=%-6d playlists=%-4d %s\n", r.RunID, r.Outcome, r.TrackCount, r.PlaylistCount, r.OutputDir)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyPassword, "passphrase", "", "operator passphrase, required when EXPORT_HISTORY_PASSPHRASE is set")
	rootCmd.AddCommand(historyCmd)
}
