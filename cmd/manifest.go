package cmd

import (
	"fmt"

	"rekordboxport/internal/export"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect export manifests.",
}

var manifestVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify an export-manifest.jwt's signature and print its claims.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claims, err := export.VerifyManifest(args[0], cfg.ManifestSigningKey)
		if err != nil {
			return fmt.Errorf("verify manifest: %w", err)
		}
		fmt.Printf("session_id:     %s\n", claims.SessionID)
		fmt.Printf("track_count:    %d\n", claims.TrackCount)
		fmt.Printf("playlist_count: %d\n", claims.PlaylistCount)
		fmt.Printf("pdb_size_bytes: %d\n", claims.PDBSizeBytes)
		fmt.Printf("audio_list_hash: %s\n", claims.AudioListHash)
		fmt.Println("signature: OK")
		return nil
	},
}

func init() {
	manifestCmd.AddCommand(manifestVerifyCmd)
	rootCmd.AddCommand(manifestCmd)
}
