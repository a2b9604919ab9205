package export

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rekordboxport/internal/pdb"
	"rekordboxport/model"
)

// fakeIDCache is an in-memory idCache for tests, standing in for
// *assetcache.Cache without a live Redis server.
type fakeIDCache struct {
	anlzDirs map[string]string
	gets     int
	puts     int
}

func newFakeIDCache() *fakeIDCache {
	return &fakeIDCache{anlzDirs: make(map[string]string)}
}

func (f *fakeIDCache) GetAnlzDir(_ context.Context, audioPath string) (string, bool, error) {
	f.gets++
	dir, ok := f.anlzDirs[audioPath]
	return dir, ok, nil
}

func (f *fakeIDCache) PutAnlzDir(_ context.Context, audioPath, dir string) error {
	f.puts++
	f.anlzDirs[audioPath] = dir
	return nil
}

// fakeSourceStore is an in-memory sourcestore.SourceStore for tests.
type fakeSourceStore struct {
	sizes map[string]int64
}

func (f *fakeSourceStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeSourceStore) Size(_ context.Context, key string) (int64, error) {
	size, ok := f.sizes[key]
	if !ok {
		return 0, fmt.Errorf("no such key: %s", key)
	}
	return size, nil
}

func sampleTrack(id int, title, artist, album string) model.Track {
	return model.Track{
		ID:            id,
		Title:         title,
		ArtistName:    artist,
		AlbumName:     album,
		AudioFilePath: "Music/" + title + ".mp3",
		DateAdded:     "2026-08-03",
	}
}

func TestPlanAssignsEntityIDsFirstSeenOrder(t *testing.T) {
	lib := model.LibraryInput{
		Tracks: []model.Track{
			sampleTrack(1, "One", "Artist A", "Album A"),
			sampleTrack(2, "Two", "Artist B", "Album A"),
			sampleTrack(3, "Three", "Artist A", "Album B"),
		},
	}
	o := New(false, false)
	plan, err := o.Plan(lib)
	require.NoError(t, err)

	tracksTable := plan.PDB.Tables[0] // TableTracks == 0
	require.Len(t, tracksTable.NaturalSizes, 3)

	assert.Equal(t, []string{"Artist A", "Artist B"}, o.artists.Names())
	assert.Equal(t, []string{"Album A", "Album B"}, o.albums.Names())
}

func TestPlanSkipBPMAndSkipKeyZeroFields(t *testing.T) {
	track := sampleTrack(1, "One", "A", "B")
	track.Analysis.TempoBPM = 140.01
	track.KeyName = "Am"
	lib := model.LibraryInput{Tracks: []model.Track{track}}

	o := New(true, true)
	plan, err := o.Plan(lib)
	require.NoError(t, err)

	row := plan.Tracks
	require.Len(t, row, 1)
	// KeyName was still registered (for table completeness) but the row's
	// resolved KeyID must be zeroed by skip_key.
	assert.NotEmpty(t, o.keys.Names())

	// The encoded row carries tempo=0 at 0x38.
	tracksTable := plan.PDB.Tables[0]
	encoded := tracksTable.Build(0, 0, 1)
	assert.Equal(t, uint32(0), uint32(encoded[0x38])|uint32(encoded[0x39])<<8|uint32(encoded[0x3A])<<16|uint32(encoded[0x3B])<<24)

	// The ANLZ side sees the same decision: no tempo, no beats.
	assert.Zero(t, plan.Tracks[0].Track.Analysis.TempoBPM)
	assert.Empty(t, plan.Tracks[0].Track.Analysis.Beats)
	assert.Zero(t, plan.Tracks[0].Track.Analysis.KeyID)
}

func TestPlanRejectsPlaylistWithMissingTrack(t *testing.T) {
	lib := model.LibraryInput{
		Tracks:    []model.Track{sampleTrack(1, "One", "A", "B")},
		Playlists: []model.Playlist{{Name: "Warmup", TrackIDs: []int{1, 99}}},
	}
	o := New(false, false)
	_, err := o.Plan(lib)
	var planErr *pdb.PlanningError
	require.ErrorAs(t, err, &planErr)
}

func TestPlanRejectsDuplicateTrackIDs(t *testing.T) {
	lib := model.LibraryInput{
		Tracks: []model.Track{
			sampleTrack(7, "One", "A", "B"),
			sampleTrack(7, "Two", "A", "B"),
		},
	}
	o := New(false, false)
	_, err := o.Plan(lib)
	var planErr *pdb.PlanningError
	require.ErrorAs(t, err, &planErr)
}

func TestPlanDevicePathsAndFilename(t *testing.T) {
	track := sampleTrack(1, "Fresh", "A", "B")
	o := New(false, false)
	plan, err := o.Plan(model.LibraryInput{Tracks: []model.Track{track}})
	require.NoError(t, err)

	te := plan.Tracks[0]
	assert.Equal(t, "/Music/Fresh.mp3", te.AnlzDevicePath)

	row := plan.PDB.Tables[0].Build(0, 0, 1)
	// Slot 19 is the basename, slot 20 the device path.
	readSlot := func(idx int) string {
		off := int(uint16(row[0x5E+2*idx]) | uint16(row[0x5E+2*idx+1])<<8)
		n := int(row[off]>>1) - 1
		return string(row[off+1 : off+1+n])
	}
	assert.Equal(t, "Fresh.mp3", readSlot(19))
	assert.Equal(t, "/Music/Fresh.mp3", readSlot(20))
}

func TestArtworkDeduplicatesByContentHash(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	t1 := sampleTrack(1, "One", "A", "B")
	t1.Artwork = &model.ArtworkPair{JPEG80: jpeg, JPEG240: jpeg}
	t2 := sampleTrack(2, "Two", "A", "B")
	t2.Artwork = &model.ArtworkPair{JPEG80: jpeg, JPEG240: jpeg}

	o := New(false, false)
	plan, err := o.Plan(model.LibraryInput{Tracks: []model.Track{t1, t2}})
	require.NoError(t, err)

	require.Len(t, plan.Artworks, 1)
	assert.Equal(t, 1, plan.Artworks[0].ID)
}

func TestAnlzDirDeterministicAndContentAddressed(t *testing.T) {
	a := anlzDir("Music/Fresh.mp3")
	b := anlzDir("Music/Fresh.mp3")
	c := anlzDir("Music/Other.mp3")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^PIONEER/USBANLZ/P[0-9a-f]{3}/[0-9a-f]{8}$`, a)
}

func TestPlanWithContextReusesCachedAnlzDirOnHit(t *testing.T) {
	lib := model.LibraryInput{Tracks: []model.Track{sampleTrack(1, "One", "A", "B")}}

	cache := newFakeIDCache()
	o := New(false, false)
	o.Cache = cache

	plan, err := o.PlanWithContext(context.Background(), lib)
	require.NoError(t, err)
	require.Len(t, plan.Tracks, 1)
	assert.Equal(t, 1, cache.puts, "first run should populate the cache on a miss")

	wantDir := plan.Tracks[0].AnlzDir

	o2 := New(false, false)
	o2.Cache = cache
	plan2, err := o2.PlanWithContext(context.Background(), lib)
	require.NoError(t, err)
	require.Len(t, plan2.Tracks, 1)

	assert.Equal(t, wantDir, plan2.Tracks[0].AnlzDir, "a cache hit must return the same dir a fresh computation would")
	assert.Equal(t, 2, cache.gets, "both runs must consult the cache")
}

func TestResolveFileSizeUsesStoreWhenSet(t *testing.T) {
	track := sampleTrack(1, "One", "A", "B")
	track.FileSizeBytes = 999 // stale declared size

	o := New(false, false)
	o.Assets = &fakeSourceStore{sizes: map[string]int64{track.AudioFilePath: 12345}}

	got := o.resolveFileSize(context.Background(), track)
	assert.Equal(t, int64(12345), got, "a store hit must override the declared size")
}

func TestPlanWithContextAppliesSourceStoreFileSize(t *testing.T) {
	track := sampleTrack(1, "One", "A", "B")
	track.FileSizeBytes = 999

	o := New(false, false)
	o.Assets = &fakeSourceStore{sizes: map[string]int64{track.AudioFilePath: 12345}}

	plan, err := o.PlanWithContext(context.Background(), model.LibraryInput{Tracks: []model.Track{track}})
	require.NoError(t, err)
	require.Len(t, plan.Tracks, 1)

	tracksTable := plan.PDB.Tables[0] // TableTracks == 0
	require.Len(t, tracksTable.NaturalSizes, 1)
	row := tracksTable.Build(0, 0, 1)
	// FileSizeBytes is a little-endian u32 at offset 0x10 of the fixed row
	// header (internal/pdb/rows.go putU32(row, 0x10, ...)).
	got := uint32(row[0x10]) | uint32(row[0x11])<<8 | uint32(row[0x12])<<16 | uint32(row[0x13])<<24
	assert.Equal(t, uint32(12345), got, "the encoded row must carry the store's size, not the stale declared one")
}

func TestResolveFileSizeFallsBackOnStoreError(t *testing.T) {
	track := sampleTrack(1, "One", "A", "B")
	track.FileSizeBytes = 42

	o := New(false, false)
	o.Assets = &fakeSourceStore{sizes: map[string]int64{}} // track's key is absent

	got := o.resolveFileSize(context.Background(), track)
	assert.Equal(t, int64(42), got, "a store error must fall back to the declared size")
}

func TestPlanBuildsPlaylistTables(t *testing.T) {
	lib := model.LibraryInput{
		Tracks: []model.Track{
			sampleTrack(1, "One", "A", "B"),
			sampleTrack(2, "Two", "A", "B"),
		},
		Playlists: []model.Playlist{
			{Name: "Warmup", TrackIDs: []int{1, 2}},
		},
	}
	o := New(false, false)
	plan, err := o.Plan(lib)
	require.NoError(t, err)

	entries, ok := plan.PDB.Tables[8] // TablePlaylistEntries == 0x08
	require.True(t, ok)
	assert.Len(t, entries.NaturalSizes, 2)
}

func TestPlanEntityRowOffsetArrayLocatesName(t *testing.T) {
	lib := model.LibraryInput{
		Tracks: []model.Track{sampleTrack(1, "One", "Artist A", "Album B")},
	}
	o := New(false, false)
	plan, err := o.Plan(lib)
	require.NoError(t, err)

	// The u8 offset array (0x03 tag + row-relative string offset) must
	// point at the name inside the rendered row.
	readString := func(row []byte, off int) string {
		n := int(row[off]>>1) - 1
		return string(row[off+1 : off+1+n])
	}

	artists, ok := plan.PDB.Tables[pdb.TableArtists]
	require.True(t, ok)
	row := artists.Build(0, 0, 1)
	require.Equal(t, byte(0x03), row[0x08])
	assert.Equal(t, "Artist A", readString(row, int(row[0x09])))

	albums, ok := plan.PDB.Tables[pdb.TableAlbums]
	require.True(t, ok)
	row = albums.Build(0, 0, 1)
	require.Equal(t, byte(0x03), row[0x14])
	assert.Equal(t, "Album B", readString(row, int(row[0x15])))
}

func TestClampColorRejectsOutOfRange(t *testing.T) {
	assert.Equal(t, 0, clampColor(-1))
	assert.Equal(t, 0, clampColor(99))
	assert.Equal(t, 3, clampColor(3))
}
