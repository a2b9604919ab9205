package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"rekordboxport/internal/progress"
	"rekordboxport/logger"
)

// AnlzPipeline writes each track's .DAT/.EXT pair through a fixed worker
// pool: a buffered task channel, a capped worker count, and a WaitGroup
// barrier at the end. MaxParallelAnalyses bounds peak memory, since each
// in-flight track holds its full waveform buffers.
type AnlzPipeline struct {
	workerCount int
	progress    *progress.Server
}

// NewAnlzPipeline builds a pipeline with workers goroutines; workers<=0
// defaults to runtime.NumCPU(), capped at 8.
func NewAnlzPipeline(workers int, prog *progress.Server) *AnlzPipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	return &AnlzPipeline{workerCount: workers, progress: prog}
}

// Run writes ANLZ files for every track under outputDir, returning the
// per-track write failures collected along the way.
func (p *AnlzPipeline) Run(ctx context.Context, outputDir string, tracks []TrackExport) []error {
	jobs := make(chan TrackExport, p.workerCount*2)
	errCh := make(chan error, len(tracks))
	var completed int32

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for track := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := p.writeOne(ctx, outputDir, track); err != nil {
					errCh <- err
				}
				n := atomic.AddInt32(&completed, 1)
				if p.progress != nil {
					p.progress.Broadcast(progress.Event{Stage: "anlz", Current: int(n), Total: len(tracks)})
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range tracks {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}

// writeOne writes one track's .DAT/.EXT pair. Cancellation is cooperative
// at track boundaries: if ctx is cancelled partway through,
// whatever of the pair was already written to disk is removed before
// returning, so a cancelled export never leaves a half-written ANLZ file
// behind.
func (p *AnlzPipeline) writeOne(ctx context.Context, outputDir string, te TrackExport) error {
	if te.Track.Analysis.TempoBPM <= 0 && te.Track.Analysis.KeyID == 0 {
		logger.Warn("analysis unavailable, writing stub waveform",
			logger.Int("track_id", te.Track.ID))
	}

	dat, ext := BuildAnlz(te)
	dir := filepath.Join(outputDir, filepath.FromSlash(te.AnlzDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir anlz dir for track %d: %w", te.Track.ID, err)
	}

	datPath := filepath.Join(dir, "ANLZ0000.DAT")
	extPath := filepath.Join(dir, "ANLZ0000.EXT")

	if err := os.WriteFile(datPath, dat, 0o644); err != nil {
		return fmt.Errorf("write DAT for track %d: %w", te.Track.ID, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(datPath)
		return nil
	}

	if err := os.WriteFile(extPath, ext, 0o644); err != nil {
		os.Remove(datPath)
		return fmt.Errorf("write EXT for track %d: %w", te.Track.ID, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(datPath)
		os.Remove(extPath)
		return nil
	}
	return nil
}
