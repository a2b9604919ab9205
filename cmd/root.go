package cmd

import (
	"fmt"
	"os"

	"rekordboxport/config"
	"rekordboxport/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rekordboxport",
	Short: "rekordboxport builds a Pioneer Rekordbox USB export from a track library.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.InfoLevel,
			OutputPath: "",
		})
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
