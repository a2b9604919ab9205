package cmd

import (
	"context"
	"fmt"
	"time"

	"rekordboxport/internal/assetcache"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Check connectivity to the asset cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := assetcache.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect asset cache: %w", err)
		}
		defer cache.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := cache.Ping(ctx); err != nil {
			return fmt.Errorf("ping asset cache: %w", err)
		}
		fmt.Printf("asset cache reachable at %s:%s\n", cfg.RedisHost, cfg.RedisPort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
