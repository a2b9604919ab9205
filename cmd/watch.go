package cmd

import (
	"context"
	"path/filepath"
	"time"

	"rekordboxport/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchLibraryPath string
	watchOutputDir   string
	watchDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source audio directory and re-export on change.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchLibraryPath, "library", "l", "", "path to a JSON library description (required)")
	watchCmd.Flags().StringVarP(&watchOutputDir, "output", "o", "", "USB mount point / output directory (defaults to $OUTPUT_DIR)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period after a change before re-exporting")
	_ = watchCmd.MarkFlagRequired("library")
	rootCmd.AddCommand(watchCmd)
}

// runWatch watches SourceAudioDir for filesystem events and re-triggers a
// full export once the tree has been quiet for watchDebounce: a
// pending-change timestamp plus a periodic ticker, rather than re-exporting
// on every single event.
func runWatch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.SourceAudioDir); err != nil {
		return err
	}

	logger.Info("watching for library changes",
		logger.String("dir", cfg.SourceAudioDir),
		logger.String("debounce", watchDebounce.String()))

	var lastChange time.Time
	dirty := false
	ticker := time.NewTicker(watchDebounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				lastChange = time.Now()
				dirty = true
				logger.Debug("change detected", logger.String("path", filepath.Base(event.Name)))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.ErrorField(err))

		case <-ticker.C:
			if dirty && time.Since(lastChange) >= watchDebounce {
				dirty = false
				exportLibraryPath = watchLibraryPath
				exportOutputDir = watchOutputDir
				if err := runExport(ctx); err != nil {
					logger.Error("re-export failed", logger.ErrorField(err))
				}
			}
		}
	}
}
