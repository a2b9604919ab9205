package pdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackRowFixedHeaderFields(t *testing.T) {
	row := EncodeTrackRow(TrackRowInput{
		ID:              7,
		ArtistID:        3,
		AlbumID:         4,
		GenreID:         2,
		KeyID:           1,
		SampleRateHz:    44100,
		FileSizeBytes:   123456,
		BitrateKbps:     320,
		TempoCenti:      14001,
		DurationSeconds: 241,
		Rating:          5,
		ColorID:         2,
		Title:           "Fresh",
		Filename:        "Fresh.mp3",
		FilePath:        "/Music/Fresh.mp3",
		DateAdded:       "2026-08-03",
	}, 0, TrackStride(1))

	require.Len(t, row, 332)
	assert.Equal(t, uint16(0x0024), leU16(row[0x00:]))
	assert.Equal(t, uint32(44100), leU32(row[0x08:]))
	assert.Equal(t, uint32(123456), leU32(row[0x10:]))
	assert.Equal(t, uint32(7+20), leU32(row[0x14:])) // u2 baseline
	assert.Equal(t, uint32(1), leU32(row[0x20:]))
	assert.Equal(t, uint32(14001), leU32(row[0x38:]))
	assert.Equal(t, uint32(2), leU32(row[0x3C:]))
	assert.Equal(t, uint32(4), leU32(row[0x40:]))
	assert.Equal(t, uint32(3), leU32(row[0x44:]))
	assert.Equal(t, uint32(7), leU32(row[0x48:]))
	assert.Equal(t, uint16(241), leU16(row[0x54:]))
	assert.Equal(t, uint16(0x0029), leU16(row[0x56:]))
	assert.Equal(t, byte(2), row[0x58])
	assert.Equal(t, byte(5), row[0x59])
	assert.Equal(t, uint16(0x0003), leU16(row[0x5C:]))
}

func TestTrackRowStringSlots(t *testing.T) {
	in := TrackRowInput{
		ID:        1,
		Title:     "Fresh",
		Filename:  "Fresh.mp3",
		FilePath:  "/Music/Fresh.mp3",
		DateAdded: "2026-08-03",
	}
	row := EncodeTrackRow(in, 0, TrackStride(1))

	readSlot := func(idx int) uint16 {
		return leU16(row[trackFixedHeaderSize+2*idx:])
	}

	// Mandatory slots point at distinct strings within the row.
	titleOff := readSlot(slotTitle)
	assert.Equal(t, "Fresh", decodeShortASCII(t, row, titleOff))
	assert.Equal(t, "Fresh.mp3", decodeShortASCII(t, row, readSlot(slotFilename)))
	assert.Equal(t, "/Music/Fresh.mp3", decodeShortASCII(t, row, readSlot(slotFilePath)))
	assert.Equal(t, "ON", decodeShortASCII(t, row, readSlot(slotAutoloadHotcues)))

	// Every unused slot references the single shared empty-string byte,
	// never offset 0 of the row.
	var emptyOff uint16
	for i := 0; i < trackStringSlots; i++ {
		switch i {
		case slotAutoloadHotcues, slotDateAdded, slotAnalyzePath, slotAnalyzeDate, slotTitle, slotFilename, slotFilePath:
			continue
		}
		off := readSlot(i)
		require.NotZero(t, off)
		assert.Equal(t, byte(0x03), row[off])
		if emptyOff == 0 {
			emptyOff = off
		} else {
			assert.Equal(t, emptyOff, off, "slot %d must share the empty-string byte", i)
		}
	}
}

func TestTrackRowNonASCIITitleOnly(t *testing.T) {
	in := TrackRowInput{
		ID:       1,
		Title:    "Déjà Vu",
		Filename: "Deja.mp3",
		FilePath: "/Music/Deja.mp3",
	}
	row := EncodeTrackRow(in, 0, TrackStride(1))
	titleOff := leU16(row[trackFixedHeaderSize+2*slotTitle:])
	fileOff := leU16(row[trackFixedHeaderSize+2*slotFilename:])
	assert.Equal(t, byte(0x90), row[titleOff], "non-ASCII title switches to UTF-16LE")
	assert.Equal(t, byte(((8+1)<<1)|1), row[fileOff], "ASCII siblings stay short-ASCII")
}

func TestTrackStride(t *testing.T) {
	assert.Equal(t, 332, TrackStride(1))
	assert.Equal(t, 344, TrackStride(2))
	assert.Equal(t, 344, TrackStride(9))
}

func TestEntityRowPads(t *testing.T) {
	assert.Len(t, EncodeArtistRow(1, "A", 2), 28)
	assert.Len(t, EncodeGenreRow(1, "House", 2), 20)
	assert.Len(t, EncodeKeyRow(1, "A", 2), 12)
	assert.Len(t, EncodeKeyRow(1, "Am", 2), 13, "a name outgrowing the pad wins")
	assert.Len(t, EncodeAlbumRow(1, "B", 2), 40)
	assert.Len(t, EncodeAlbumRow(1, "B", 1), 44, "a lone album row takes the wider pad")

	// A long name outgrows the pad instead of truncating.
	long := "An Artist Name Considerably Longer Than The Stride"
	row := EncodeArtistRow(1, long, 2)
	assert.Equal(t, entityNameOffset+1+len(long), len(row))
	assert.Equal(t, ArtistRowSize(long), len(row))
}

func TestEntityRowSizeMatchesEncoded(t *testing.T) {
	names := []string{"", "A", "Deep House", "Déjà"}
	for _, n := range names {
		assert.Equal(t, ArtistRowSize(n), len(EncodeArtistRow(1, n, 2)), "artist %q", n)
		assert.Equal(t, KeyRowSize(n), len(EncodeKeyRow(1, n, 2)), "key %q", n)
		assert.Equal(t, AlbumRowSize(n), len(EncodeAlbumRow(1, n, 2)), "album %q", n)
	}
}

func TestArtistRowLayout(t *testing.T) {
	row := EncodeArtistRow(3, "Artist A", 2)
	assert.Equal(t, uint16(0x60), leU16(row[0x00:]))
	assert.Equal(t, uint16(0), leU16(row[0x02:]), "index_shift is constant 0 for entity rows")
	assert.Equal(t, uint32(3), leU32(row[0x04:]))

	// The offset array locates the name: offset[0] is the 0x03 tag,
	// offset[1] the row-relative string offset.
	require.Equal(t, byte(0x03), row[0x08])
	off := uint16(row[0x09])
	assert.Equal(t, "Artist A", decodeShortASCII(t, row, off))
}

func TestAlbumRowLayout(t *testing.T) {
	row := EncodeAlbumRow(5, "Album B", 2)
	assert.Equal(t, uint16(0x80), leU16(row[0x00:]))
	assert.Equal(t, uint16(0), leU16(row[0x02:]))
	assert.Equal(t, uint32(0), leU32(row[0x04:]), "unknown2")
	assert.Equal(t, uint32(0), leU32(row[0x08:]), "albums carry no artist reference")
	assert.Equal(t, uint32(5), leU32(row[0x0C:]))
	assert.Equal(t, uint32(0), leU32(row[0x10:]), "unknown3")

	require.Equal(t, byte(0x03), row[0x14])
	off := uint16(row[0x15])
	assert.Equal(t, "Album B", decodeShortASCII(t, row, off))
}

func TestPlaylistEntryRowLayout(t *testing.T) {
	row := EncodePlaylistEntryRow(9, 2, 4)
	require.Len(t, row, 12)
	assert.Equal(t, uint32(4), leU32(row[0x00:]))
	assert.Equal(t, uint32(9), leU32(row[0x04:]))
	assert.Equal(t, uint32(2), leU32(row[0x08:]))
}

func decodeShortASCII(t *testing.T, row []byte, off uint16) string {
	t.Helper()
	h := row[off]
	require.Equal(t, byte(1), h&1, "short-ascii header flag")
	n := int(h>>1) - 1
	return string(row[int(off)+1 : int(off)+1+n])
}

func leU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
