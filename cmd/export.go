package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rekordboxport/internal/assetcache"
	"rekordboxport/internal/catalog"
	"rekordboxport/internal/export"
	"rekordboxport/internal/libraryfile"
	"rekordboxport/internal/pdb"
	"rekordboxport/internal/progress"
	"rekordboxport/internal/sourcestore"
	"rekordboxport/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	exportLibraryPath string
	exportOutputDir   string
	exportWorkers     int
	exportServe       bool
	exportRecordRun   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a library description into a Pioneer Rekordbox USB directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportLibraryPath, "library", "l", "", "path to a JSON library description (required)")
	exportCmd.Flags().StringVarP(&exportOutputDir, "output", "o", "", "USB mount point / output directory (defaults to $OUTPUT_DIR)")
	exportCmd.Flags().IntVarP(&exportWorkers, "workers", "w", 0, "ANLZ worker count (0 = $MAX_PARALLEL_ANALYSES, or runtime.NumCPU() capped at 8 when that is also 0)")
	exportCmd.Flags().BoolVar(&exportServe, "serve", false, "start the progress dashboard for the duration of the export")
	exportCmd.Flags().BoolVar(&exportRecordRun, "record", false, "persist this run to the catalog database")
	_ = exportCmd.MarkFlagRequired("library")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context) error {
	sessionID := uuid.New().String()
	outputDir := exportOutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	logger.Info("export starting",
		logger.String("session_id", sessionID),
		logger.String("library_file", exportLibraryPath),
		logger.String("output_dir", outputDir))

	lib, err := libraryfile.Load(exportLibraryPath)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	var prog *progress.Server
	if exportServe {
		prog = progress.New(cfg.ProgressServerAddr)
		prog.Start()
		defer prog.Close()
	}

	var cache *assetcache.Cache
	if cfg.CacheTags {
		cache, err = assetcache.Connect(cfg)
		if err != nil {
			logger.Warn("asset cache unavailable, continuing without it", logger.ErrorField(err))
		} else {
			defer cache.Close()
		}
	}

	organizer := export.New(cfg.SkipBPM, cfg.SkipKey)
	if cache != nil {
		organizer.Cache = cache
	}
	if cfg.ValidateSourceSizes {
		assets, err := newSourceStore()
		if err != nil {
			logger.Warn("source store unavailable, trusting declared file sizes", logger.ErrorField(err))
		} else {
			organizer.Assets = assets
		}
	}
	plan, err := organizer.PlanWithContext(ctx, lib)
	if err != nil {
		return fmt.Errorf("plan export: %w", err)
	}
	if prog != nil {
		prog.Broadcast(progress.Event{Stage: "rows", Current: len(plan.Tracks), Total: len(plan.Tracks)})
	}

	pdbPath := filepath.Join(outputDir, "PIONEER", "rekordbox", "export.pdb")
	if err := pdb.Write(pdbPath, plan.PDB); err != nil {
		recordFailure(sessionID, outputDir, err)
		return fmt.Errorf("write pdb: %w", err)
	}
	logger.Info("pdb written", logger.String("path", pdbPath))

	workers := exportWorkers
	if workers <= 0 {
		workers = cfg.MaxParallelAnalyses
	}
	pipeline := export.NewAnlzPipeline(workers, prog)
	if anlzErrs := pipeline.Run(ctx, outputDir, plan.Tracks); len(anlzErrs) > 0 {
		for _, e := range anlzErrs {
			logger.Warn("anlz write failed", logger.ErrorField(e))
		}
	}

	if err := writeArtwork(outputDir, plan.Artworks); err != nil {
		recordFailure(sessionID, outputDir, err)
		return fmt.Errorf("write artwork: %w", err)
	}

	pdbInfo, err := os.Stat(pdbPath)
	if err != nil {
		return fmt.Errorf("stat written pdb: %w", err)
	}
	audioPaths := make([]string, len(plan.Tracks))
	for i, te := range plan.Tracks {
		audioPaths[i] = te.Track.AudioFilePath
	}
	claims := export.BuildManifestClaims(sessionID, len(plan.Tracks), countPlaylists(plan), pdbInfo.Size(), audioPaths)
	manifestPath := filepath.Join(outputDir, "PIONEER", "rekordbox", "export-manifest.jwt")
	if err := export.WriteManifest(manifestPath, claims, cfg.ManifestSigningKey); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if prog != nil {
		prog.Broadcast(progress.Event{Stage: "done", Current: len(plan.Tracks), Total: len(plan.Tracks)})
	}

	if exportRecordRun {
		recordSuccess(sessionID, outputDir, len(plan.Tracks), countPlaylists(plan))
	}

	logger.Info("export complete",
		logger.String("session_id", sessionID),
		logger.Int("tracks", len(plan.Tracks)),
		logger.Int("artworks", len(plan.Artworks)))
	return nil
}

// newSourceStore builds the audio/artwork source store backing
// cfg.ValidateSourceSizes (VALIDATE_SOURCE_SIZES): a MinIO bucket, or a
// local directory rooted at SourceAudioDir.
func newSourceStore() (sourcestore.SourceStore, error) {
	if cfg.UseMinioSource {
		return sourcestore.NewMinioStore(cfg)
	}
	return sourcestore.NewLocalStore(cfg.SourceAudioDir), nil
}

func countPlaylists(plan *export.Plan) int {
	if entries, ok := plan.PDB.Tables[pdb.TablePlaylistTree]; ok {
		return len(entries.NaturalSizes)
	}
	return 0
}

func writeArtwork(outputDir string, files []export.ArtworkFile) error {
	for _, f := range files {
		if err := writeOneArtwork(outputDir, f.SmallPath, f.SmallBytes); err != nil {
			return err
		}
		if err := writeOneArtwork(outputDir, f.MediumPath, f.MediumBytes); err != nil {
			return err
		}
	}
	return nil
}

func writeOneArtwork(outputDir, devicePath string, data []byte) error {
	path := filepath.Join(outputDir, filepath.FromSlash(devicePath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir artwork dir %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artwork %s: %w", path, err)
	}
	return nil
}

func recordFailure(sessionID, outputDir string, exportErr error) {
	if !exportRecordRun {
		return
	}
	db, err := catalog.Connect(cfg)
	if err != nil {
		logger.Warn("catalog unavailable, skipping failure record", logger.ErrorField(err))
		return
	}
	run, err := catalog.StartRun(db, sessionID, outputDir)
	if err != nil {
		logger.Warn("failed to start catalog run", logger.ErrorField(err))
		return
	}
	_ = catalog.FinishRun(db, run, 0, 0, exportErr)
}

func recordSuccess(sessionID, outputDir string, trackCount, playlistCount int) {
	db, err := catalog.Connect(cfg)
	if err != nil {
		logger.Warn("catalog unavailable, run not recorded", logger.ErrorField(err))
		return
	}
	run, err := catalog.StartRun(db, sessionID, outputDir)
	if err != nil {
		logger.Warn("failed to start catalog run", logger.ErrorField(err))
		return
	}
	if err := catalog.FinishRun(db, run, trackCount, playlistCount, nil); err != nil {
		logger.Warn("failed to finish catalog run", logger.ErrorField(err))
	}
}
