package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rekordboxport/model"
)

func TestAnlzPipelineWritesDATAndEXT(t *testing.T) {
	dir := t.TempDir()
	tracks := []TrackExport{
		{
			Track:          model.Track{ID: 1, DurationSeconds: 30},
			AnlzDevicePath: "/Music/One.mp3",
			AnlzDir:        "PIONEER/USBANLZ/P001/00000001",
		},
		{
			Track:          model.Track{ID: 2, DurationSeconds: 45},
			AnlzDevicePath: "/Music/Two.mp3",
			AnlzDir:        "PIONEER/USBANLZ/P002/00000002",
		},
	}

	p := NewAnlzPipeline(2, nil)
	errs := p.Run(context.Background(), dir, tracks)
	require.Empty(t, errs)

	for _, te := range tracks {
		datPath := filepath.Join(dir, filepath.FromSlash(te.AnlzDir), "ANLZ0000.DAT")
		extPath := filepath.Join(dir, filepath.FromSlash(te.AnlzDir), "ANLZ0000.EXT")
		datInfo, err := os.Stat(datPath)
		require.NoError(t, err)
		assert.Greater(t, datInfo.Size(), int64(0))
		_, err = os.Stat(extPath)
		require.NoError(t, err)
	}
}

func TestAnlzPipelineDefaultsWorkerCount(t *testing.T) {
	p := NewAnlzPipeline(0, nil)
	assert.Greater(t, p.workerCount, 0)
	assert.LessOrEqual(t, p.workerCount, 8)
}

func TestWriteOneRemovesDATOnCancellationBeforeEXT(t *testing.T) {
	dir := t.TempDir()
	te := TrackExport{
		Track:          model.Track{ID: 1, DurationSeconds: 30},
		AnlzDevicePath: "/Music/One.mp3",
		AnlzDir:        "PIONEER/USBANLZ/P001/00000001",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewAnlzPipeline(1, nil)
	err := p.writeOne(ctx, dir, te)
	require.NoError(t, err)

	trackDir := filepath.Join(dir, filepath.FromSlash(te.AnlzDir))
	_, err = os.Stat(filepath.Join(trackDir, "ANLZ0000.DAT"))
	assert.True(t, os.IsNotExist(err), "partially written DAT should have been removed on cancellation")
	_, err = os.Stat(filepath.Join(trackDir, "ANLZ0000.EXT"))
	assert.True(t, os.IsNotExist(err), "EXT should never have been written after cancellation")
}

func TestAnlzPipelineRunStopsAndCleansUpOnCancellation(t *testing.T) {
	dir := t.TempDir()
	tracks := []TrackExport{
		{Track: model.Track{ID: 1, DurationSeconds: 30}, AnlzDevicePath: "/Music/One.mp3", AnlzDir: "PIONEER/USBANLZ/P001/00000001"},
		{Track: model.Track{ID: 2, DurationSeconds: 30}, AnlzDevicePath: "/Music/Two.mp3", AnlzDir: "PIONEER/USBANLZ/P002/00000002"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewAnlzPipeline(1, nil)
	errs := p.Run(ctx, dir, tracks)
	assert.Empty(t, errs)

	for _, te := range tracks {
		trackDir := filepath.Join(dir, filepath.FromSlash(te.AnlzDir))
		_, err := os.Stat(filepath.Join(trackDir, "ANLZ0000.DAT"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(trackDir, "ANLZ0000.EXT"))
		assert.True(t, os.IsNotExist(err))
	}
}
