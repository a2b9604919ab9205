// Package export is the glue between the frozen library model and the
// pdb/anlz encoders: it assigns stable IDs to derived entities, computes
// content-addressed ANLZ/artwork paths, and drives PageAllocator,
// RowEncoders, PageBuilder, PdbWriter, and AnlzWriter to produce a complete
// Pioneer USB export directory.
package export

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"path"
	"strings"

	"rekordboxport/internal/anlz"
	"rekordboxport/internal/pdb"
	"rekordboxport/internal/registry"
	"rekordboxport/internal/sourcestore"
	"rekordboxport/logger"
	"rekordboxport/model"
)

// idCache is the subset of assetcache.Cache's memoization Organizer needs to
// skip recomputing an audio path's ANLZ directory across export runs.
// *assetcache.Cache satisfies this structurally; tests can supply an
// in-memory fake without a live Redis server.
type idCache interface {
	GetAnlzDir(ctx context.Context, audioPath string) (string, bool, error)
	PutAnlzDir(ctx context.Context, audioPath, dir string) error
}

// ArtworkFile is one deduplicated artwork asset ready to be written under
// PIONEER/Artwork/00001/.
type ArtworkFile struct {
	ID          int
	SmallPath   string // 80x80, device-relative
	MediumPath  string // 240x240, device-relative
	SmallBytes  []byte
	MediumBytes []byte
}

// TrackExport is one track's resolved device paths, alongside the row input
// already handed to the page-layout machinery.
type TrackExport struct {
	Track          model.Track
	AnlzDevicePath string // device-absolute path to the audio file, for PPTH
	AnlzDir        string // device-relative dir holding ANLZ0000.DAT/.EXT
}

// Plan is everything a complete export needs: a ready-to-write PDB image
// input, the per-track ANLZ path assignments, and the deduplicated artwork
// set.
type Plan struct {
	PDB      pdb.WriteInput
	Tracks   []TrackExport
	Artworks []ArtworkFile
}

// Organizer assigns IDs and paths across one export run. It is not safe for
// concurrent Plan calls — build one per export.
type Organizer struct {
	artists *registry.ArtistRegistry
	albums  *registry.AlbumRegistry
	genres  *registry.GenreRegistry
	labels  *registry.LabelRegistry
	keys    *registry.KeyRegistry

	artworkIDs   map[string]int // md5(JPEG80) hex -> ID
	artworkFiles []ArtworkFile

	// Cache memoizes anlzDir across export runs against the same library. It
	// is never consulted for artwork IDs: those must stay densely assigned
	// in append order within a single run so they line up with the artwork
	// table's row positions (buildArtworkTable), so artwork dedup only ever
	// uses artworkIDs above.
	Cache idCache

	// Assets, if set, is consulted to confirm each track's declared
	// FileSizeBytes against its backing store before the row is written —
	// the PDB's declared size must match what's really on the device, even
	// though decoding the audio itself stays a collaborator's job. A nil
	// Assets (the default) trusts the declared size as-is.
	Assets sourcestore.SourceStore

	SkipBPM bool
	SkipKey bool
}

// New builds an Organizer with fresh, empty entity registries.
func New(skipBPM, skipKey bool) *Organizer {
	return &Organizer{
		artists:    registry.NewArtistRegistry(),
		albums:     registry.NewAlbumRegistry(),
		genres:     registry.NewGenreRegistry(),
		labels:     registry.NewLabelRegistry(),
		keys:       registry.NewKeyRegistry(),
		artworkIDs: make(map[string]int),
		SkipBPM:    skipBPM,
		SkipKey:    skipKey,
	}
}

// anlzDir computes the content-addressed ANLZ directory for an audio file
// path: PIONEER/USBANLZ/Pxxx/yyyyyyyy, from an FNV-1a hash of
// the path so the same track always maps to the same directory.
func anlzDir(audioPath string) string {
	h := fnv.New32a()
	h.Write([]byte(audioPath))
	hex8 := fmt.Sprintf("%08x", h.Sum32())
	return fmt.Sprintf("PIONEER/USBANLZ/P%s/%s", hex8[:3], hex8)
}

// resolveAnlzDir is anlzDir, memoized in o.Cache when one is set. anlzDir is
// a pure function of audioPath, so a cache hit is always the same value a
// fresh computation would produce — the point is letting repeat exports of
// an unchanged library skip the hash. A cached value is returned as-is; it
// is not compared against a fresh computation.
func (o *Organizer) resolveAnlzDir(ctx context.Context, audioPath string) string {
	if o.Cache != nil {
		if dir, ok, err := o.Cache.GetAnlzDir(ctx, audioPath); err == nil && ok {
			return dir
		}
	}
	dir := anlzDir(audioPath)
	if o.Cache != nil {
		if err := o.Cache.PutAnlzDir(ctx, audioPath, dir); err != nil {
			logger.Warn("cache anlz dir", logger.ErrorField(err))
		}
	}
	return dir
}

func (o *Organizer) resolveArtwork(art *model.ArtworkPair) int {
	if art == nil || len(art.JPEG80) == 0 {
		return 0
	}
	sum := md5.Sum(art.JPEG80)
	key := hex.EncodeToString(sum[:])
	if id, ok := o.artworkIDs[key]; ok {
		return id
	}
	id := len(o.artworkFiles) + 1
	o.artworkIDs[key] = id
	o.artworkFiles = append(o.artworkFiles, ArtworkFile{
		ID:          id,
		SmallPath:   fmt.Sprintf("PIONEER/Artwork/00001/a%d.jpg", id),
		MediumPath:  fmt.Sprintf("PIONEER/Artwork/00001/a%d_m.jpg", id),
		SmallBytes:  art.JPEG80,
		MediumBytes: art.JPEG240,
	})
	return id
}

func clampColor(idx int) int {
	if idx < 0 || idx > len(model.FixedColors) {
		return 0
	}
	return idx
}

func tempoCenti(bpm float64, skip bool) uint32 {
	if skip || bpm <= 0 {
		return 0
	}
	return uint32(bpm*100 + 0.5)
}

func keyID(skip bool, id int) int {
	if skip {
		return 0
	}
	return id
}

// resolveFileSize returns t's FileSizeBytes as declared, unless o.Assets is
// set and can stat the backing audio file — in which case the store's own
// size wins, since that's what actually ends up on the device. A stat
// failure logs a warning and falls back to the declared size rather than
// failing the whole plan over one unreachable asset.
func (o *Organizer) resolveFileSize(ctx context.Context, t model.Track) int64 {
	if o.Assets == nil {
		return t.FileSizeBytes
	}
	size, err := o.Assets.Size(ctx, t.AudioFilePath)
	if err != nil {
		logger.Warn("source store size check failed, using declared file size",
			logger.String("audio_path", t.AudioFilePath), logger.ErrorField(err))
		return t.FileSizeBytes
	}
	return size
}

// Plan resolves every derived ID and device path for lib and produces a
// ready-to-render pdb.WriteInput, without writing anything to disk. It is
// PlanWithContext against context.Background(), for callers with no
// cancellation or cache context to thread through.
func (o *Organizer) Plan(lib model.LibraryInput) (*Plan, error) {
	return o.PlanWithContext(context.Background(), lib)
}

// PlanWithContext is Plan, consulting o.Cache (if set) for anlzDir
// memoization and honoring ctx cancellation between tracks.
func (o *Organizer) PlanWithContext(ctx context.Context, lib model.LibraryInput) (*Plan, error) {
	trackExports := make([]TrackExport, len(lib.Tracks))
	rowInputs := make([]pdb.TrackRowInput, len(lib.Tracks))

	trackIDs := make(map[int]bool, len(lib.Tracks))

	for i, t := range lib.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t.ID <= 0 || trackIDs[t.ID] {
			return nil, &pdb.PlanningError{Reason: fmt.Sprintf("track %q has invalid or duplicate id %d", t.Title, t.ID)}
		}
		trackIDs[t.ID] = true
		for _, s := range []string{t.Title, t.AudioFilePath} {
			if err := pdb.ValidateStringLength(s); err != nil {
				return nil, err
			}
		}

		artistID := o.artists.GetOrCreate(t.ArtistName)
		albumID := o.albums.GetOrCreate(t.AlbumName)
		genreID := o.genres.GetOrCreate(t.GenreName)
		labelID := o.labels.GetOrCreate(t.LabelName)
		kID := o.keys.GetOrCreate(t.KeyName)
		artworkID := o.resolveArtwork(t.Artwork)

		dir := o.resolveAnlzDir(ctx, t.AudioFilePath)
		analyzePath := "/" + dir + "/ANLZ0000.DAT"
		devicePath := "/" + strings.TrimPrefix(t.AudioFilePath, "/")

		rowInputs[i] = pdb.TrackRowInput{
			ID:              t.ID,
			ArtistID:        artistID,
			AlbumID:         albumID,
			GenreID:         genreID,
			KeyID:           keyID(o.SkipKey, kID),
			LabelID:         labelID,
			ArtworkID:       artworkID,
			ColorID:         clampColor(t.ColorIndex),
			SampleRateHz:    t.SampleRateHz,
			FileSizeBytes:   o.resolveFileSize(ctx, t),
			BitrateKbps:     t.BitrateKbps,
			TrackNumber:     t.TrackNumber,
			TempoCenti:      tempoCenti(t.Analysis.TempoBPM, o.SkipBPM),
			DiscNumber:      t.DiscNumber,
			PlayCount:       t.PlayCount,
			Year:            t.Year,
			SampleDepthBits: t.SampleDepthBits,
			DurationSeconds: t.DurationSeconds,
			Rating:          t.Rating,
			FileType:        uint16(t.FileType),
			DateAdded:       t.DateAdded,
			AnalyzePath:     analyzePath,
			AnalyzeDate:     t.DateAdded,
			Title:           t.Title,
			Filename:        path.Base(devicePath),
			FilePath:        devicePath,
		}
		if err := pdb.CheckRowSize(pdb.TableTracks, trackNaturalSize(rowInputs[i])); err != nil {
			return nil, err
		}

		// The ANLZ side sees the same skip decisions the row does: skip_bpm
		// drops the beatgrid to a header-only PQTZ, skip_key zeroes the key
		// the .DAT pair's consumer would read back.
		anlzTrack := t
		if o.SkipBPM {
			anlzTrack.Analysis.TempoBPM = 0
			anlzTrack.Analysis.Beats = nil
		}
		if o.SkipKey {
			anlzTrack.Analysis.KeyID = 0
		}

		trackExports[i] = TrackExport{
			Track:          anlzTrack,
			AnlzDevicePath: devicePath,
			AnlzDir:        dir,
		}
	}

	for _, p := range lib.Playlists {
		for _, id := range p.TrackIDs {
			if !trackIDs[id] {
				return nil, &pdb.PlanningError{Reason: fmt.Sprintf("playlist %q references missing track %d", p.Name, id)}
			}
		}
	}

	tables := map[pdb.TableType]pdb.TableInput{
		pdb.TableTracks:  buildTrackTable(rowInputs),
		pdb.TableArtists: buildEntityTable(o.artists.Names(), pdb.EncodeArtistRow, pdb.ArtistRowSize),
		pdb.TableAlbums:  buildEntityTable(o.albums.Names(), pdb.EncodeAlbumRow, pdb.AlbumRowSize),
		pdb.TableGenres:  buildEntityTable(o.genres.Names(), pdb.EncodeGenreRow, pdb.GenreRowSize),
		pdb.TableLabels:  buildEntityTable(o.labels.Names(), pdb.EncodeLabelRow, pdb.LabelRowSize),
		pdb.TableKeys:    buildEntityTable(o.keys.Names(), pdb.EncodeKeyRow, pdb.KeyRowSize),
		pdb.TableColors:  buildColorTable(),
		pdb.TableArtwork: buildArtworkTable(o.artworkFiles),
	}

	if len(lib.Playlists) > 0 {
		tree, entries := buildPlaylistTables(lib.Playlists)
		tables[pdb.TablePlaylistTree] = tree
		tables[pdb.TablePlaylistEntries] = entries
	}

	plan := &Plan{
		PDB: pdb.WriteInput{
			Tables: tables,
			Auxiliary: pdb.AuxiliaryBlobs{
				ColumnsPage:          lib.Auxiliary.ColumnsPage,
				HistoryPlaylistsPage: lib.Auxiliary.HistoryPlaylistsPage,
				HistoryEntriesPage:   lib.Auxiliary.HistoryEntriesPage,
				HistoryPage:          lib.Auxiliary.HistoryPage,
			},
			HistoryRowCount: len(lib.Tracks),
		},
		Tracks:   trackExports,
		Artworks: o.artworkFiles,
	}
	return plan, nil
}

func buildTrackTable(rows []pdb.TrackRowInput) pdb.TableInput {
	sizes := make([]int, len(rows))
	for i, r := range rows {
		sizes[i] = trackNaturalSize(r)
		// Rows sharing a page are rendered padded to the multi-row stride,
		// so packing must budget for that padded size.
		if stride := pdb.TrackStride(2); sizes[i] < stride {
			sizes[i] = stride
		}
	}
	return pdb.TableInput{
		NaturalSizes: sizes,
		Build: func(globalIndex, rowIndexInPage, pageRowCount int) []byte {
			return pdb.EncodeTrackRow(rows[globalIndex], rowIndexInPage, pdb.TrackStride(pageRowCount))
		},
	}
}

// trackNaturalSize mirrors pdb's own unexported trackRowNaturalSize by
// encoding once; row encoding is cheap and this keeps TrackRowInput's
// layout private to the pdb package.
func trackNaturalSize(t pdb.TrackRowInput) int {
	return len(pdb.EncodeTrackRow(t, 0, 0))
}

func buildEntityTable(names []string, encode func(id int, name string, pageRowCount int) []byte, sizeOf func(name string) int) pdb.TableInput {
	sizes := make([]int, len(names))
	for i, n := range names {
		sizes[i] = sizeOf(n)
	}
	return pdb.TableInput{
		NaturalSizes: sizes,
		Build: func(globalIndex, rowIndexInPage, pageRowCount int) []byte {
			return encode(globalIndex+1, names[globalIndex], pageRowCount)
		},
	}
}

func buildColorTable() pdb.TableInput {
	names := make([]string, len(model.FixedColors))
	for i, c := range model.FixedColors {
		names[i] = c.Name
	}
	return buildEntityTable(names, pdb.EncodeColorRow, pdb.ColorRowSize)
}

func buildArtworkTable(files []ArtworkFile) pdb.TableInput {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = "/" + f.SmallPath
	}
	return buildEntityTable(paths, pdb.EncodeArtworkRow, pdb.ArtworkRowSize)
}

func buildPlaylistTables(playlists []model.Playlist) (pdb.TableInput, pdb.TableInput) {
	treeSizes := make([]int, len(playlists))
	for i, p := range playlists {
		treeSizes[i] = pdb.PlaylistTreeRowSize(p.Name)
	}
	tree := pdb.TableInput{
		NaturalSizes: treeSizes,
		Build: func(globalIndex, rowIndexInPage, pageRowCount int) []byte {
			p := playlists[globalIndex]
			return pdb.EncodePlaylistTreeRow(globalIndex+1, 0, globalIndex, false, p.Name, rowIndexInPage)
		},
	}

	type entryRef struct {
		trackID, playlistID, entryIndex int
	}
	var entryRefs []entryRef
	for pIdx, p := range playlists {
		for eIdx, trackID := range p.TrackIDs {
			entryRefs = append(entryRefs, entryRef{trackID: trackID, playlistID: pIdx + 1, entryIndex: eIdx})
		}
	}
	sizes := make([]int, len(entryRefs))
	for i := range sizes {
		sizes[i] = len(pdb.EncodePlaylistEntryRow(0, 0, 0))
	}
	entries := pdb.TableInput{
		NaturalSizes: sizes,
		Build: func(globalIndex, rowIndexInPage, pageRowCount int) []byte {
			r := entryRefs[globalIndex]
			return pdb.EncodePlaylistEntryRow(r.trackID, r.playlistID, r.entryIndex)
		},
	}
	return tree, entries
}

// BuildAnlz assembles the .DAT/.EXT byte images for one track. Writing
// them to disk is the caller's job (internal/export/pipeline.go).
func BuildAnlz(te TrackExport) (dat, ext []byte) {
	dat = anlz.BuildDAT(te.Track, te.AnlzDevicePath)
	ext = anlz.BuildEXT(te.Track, te.AnlzDevicePath)
	return dat, ext
}
