package cmd

import (
	"context"
	"fmt"

	"rekordboxport/internal/sourcestore"

	"github.com/spf13/cobra"
)

var sourcestoreCheckKey string

var sourcestoreCmd = &cobra.Command{
	Use:   "sourcestore",
	Short: "Check connectivity to the configured audio/artwork source store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sourcestore.NewMinioStore(cfg)
		if err != nil {
			return fmt.Errorf("connect source store: %w", err)
		}
		fmt.Printf("connected to source store bucket %q\n", cfg.MinioBucket)

		if sourcestoreCheckKey == "" {
			return nil
		}
		size, err := store.Size(context.Background(), sourcestoreCheckKey)
		if err != nil {
			return fmt.Errorf("stat %s: %w", sourcestoreCheckKey, err)
		}
		fmt.Printf("%s: %d bytes\n", sourcestoreCheckKey, size)
		return nil
	},
}

func init() {
	sourcestoreCmd.Flags().StringVar(&sourcestoreCheckKey, "check", "", "optional object key to stat after connecting")
	rootCmd.AddCommand(sourcestoreCmd)
}
