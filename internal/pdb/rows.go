package pdb

// Row encoders produce self-contained row byte images: every string slot a
// row carries is resolved to a row-relative offset inside that same row's
// payload, including the single shared "empty string" byte a row's unused
// slots all point back to. This keeps the page builder
// a pure concatenator: it never has to thread a page-wide string heap
// through row encoding.

// TrackRowInput is everything EncodeTrackRow needs, already resolved to
// integer table IDs by the caller (internal/export's entity registries).
type TrackRowInput struct {
	ID int

	ArtistID  int
	AlbumID   int
	GenreID   int
	KeyID     int
	LabelID   int
	ArtworkID int
	ColorID   int

	SampleRateHz    int
	FileSizeBytes   int64
	BitrateKbps     int
	TrackNumber     int
	TempoCenti      uint32 // BPM * 100; 0 when unknown or skip_bpm
	DiscNumber      int
	PlayCount       int
	Year            int
	SampleDepthBits int
	DurationSeconds int
	Rating          int
	FileType        uint16

	DateAdded   string
	AnalyzePath string
	AnalyzeDate string
	Title       string
	Filename    string
	FilePath    string
}

// Track row byte fields with no documented semantics, exposed as named
// constants rather than buried magic numbers so a future reference export
// can recalibrate them in one place.
const (
	trackBitmaskBaseline uint32 = 0x0700
	trackU2Offset        uint32 = 20 // u2 = track_id + trackU2Offset (small-export baseline)
	trackU3U4Constant    uint32 = 0
	trackU5Constant      uint16 = 0x0029
	trackU7Constant      uint16 = 0x0003
)

// stringSlot indices with fixed semantics; all other slots
// among the 21 are always empty.
const (
	slotAutoloadHotcues = 7
	slotDateAdded       = 10
	slotAnalyzePath     = 14
	slotAnalyzeDate     = 15
	slotTitle           = 17
	slotFilename        = 19
	slotFilePath        = 20
	trackStringSlots    = 21
)

const trackFixedHeaderSize = 0x5E // 94 bytes
const trackStringTableSize = trackStringSlots * 2
const trackPayloadStart = trackFixedHeaderSize + trackStringTableSize // 0x88

func trackStringValues(t TrackRowInput) [trackStringSlots]string {
	var slots [trackStringSlots]string
	slots[slotAutoloadHotcues] = "ON"
	slots[slotDateAdded] = t.DateAdded
	slots[slotAnalyzePath] = t.AnalyzePath
	slots[slotAnalyzeDate] = t.AnalyzeDate
	slots[slotTitle] = t.Title
	slots[slotFilename] = t.Filename
	slots[slotFilePath] = t.FilePath
	return slots
}

// buildTrackPayload lays out the row-relative string payload and returns it
// along with the row-relative offset of each of the 21 slots.
func buildTrackPayload(t TrackRowInput) ([]byte, [trackStringSlots]uint16) {
	slots := trackStringValues(t)
	var payload []byte
	var offsets [trackStringSlots]uint16
	emptyOffset := uint16(0)
	haveEmpty := false
	cursor := uint16(trackPayloadStart)
	for i, v := range slots {
		if v == "" {
			if !haveEmpty {
				emptyOffset = cursor
				payload = append(payload, EmptyString...)
				cursor += uint16(len(EmptyString))
				haveEmpty = true
			}
			offsets[i] = emptyOffset
			continue
		}
		enc := EncodeString(v)
		offsets[i] = cursor
		payload = append(payload, enc...)
		cursor += uint16(len(enc))
	}
	return payload, offsets
}

// trackRowNaturalSize is the unpadded row size, before padding to the
// 332/344 per-page stride.
func trackRowNaturalSize(t TrackRowInput) int {
	payload, _ := buildTrackPayload(t)
	return trackPayloadStart + len(payload)
}

// EncodeTrackRow renders one track row, zero-padded to stride bytes (332
// for a lone row on its page, 344 otherwise).
func EncodeTrackRow(t TrackRowInput, rowIndex, stride int) []byte {
	payload, offsets := buildTrackPayload(t)
	natural := trackPayloadStart + len(payload)
	size := stride
	if natural > size {
		size = natural // caller mis-planned; never silently truncate a row
	}
	row := make([]byte, size)

	putU16(row, 0x00, 0x0024)
	putU16(row, 0x02, uint16(rowIndex*stride))
	putU32(row, 0x04, trackBitmaskBaseline)
	putU32(row, 0x08, uint32(t.SampleRateHz))
	putU32(row, 0x0C, 0) // composer_id: not modeled, always unknown
	putU32(row, 0x10, uint32(t.FileSizeBytes))
	putU32(row, 0x14, uint32(t.ID)+trackU2Offset)
	putU32(row, 0x18, trackU3U4Constant)
	putU32(row, 0x1C, uint32(t.ArtworkID))
	putU32(row, 0x20, uint32(t.KeyID))
	putU32(row, 0x24, 0) // original_artist_id: not modeled
	putU32(row, 0x28, uint32(t.LabelID))
	putU32(row, 0x2C, 0) // remixer_id: not modeled
	putU32(row, 0x30, uint32(t.BitrateKbps))
	putU32(row, 0x34, uint32(t.TrackNumber))
	putU32(row, 0x38, t.TempoCenti)
	putU32(row, 0x3C, uint32(t.GenreID))
	putU32(row, 0x40, uint32(t.AlbumID))
	putU32(row, 0x44, uint32(t.ArtistID))
	putU32(row, 0x48, uint32(t.ID))
	putU16(row, 0x4C, uint16(t.DiscNumber))
	putU16(row, 0x4E, uint16(t.PlayCount))
	putU16(row, 0x50, uint16(t.Year))
	putU16(row, 0x52, uint16(t.SampleDepthBits))
	putU16(row, 0x54, uint16(t.DurationSeconds))
	putU16(row, 0x56, trackU5Constant)
	row[0x58] = byte(t.ColorID)
	row[0x59] = byte(t.Rating)
	putU16(row, 0x5A, t.FileType)
	putU16(row, 0x5C, trackU7Constant)

	for i, off := range offsets {
		putU16(row, trackFixedHeaderSize+2*i, off)
	}
	copy(row[trackPayloadStart:], payload)
	return row
}

// Entity row subtypes: 0x60 marks the compact id+name shape (Artist and
// the tables sharing its layout), 0x80 the wider Album shape. Both mean
// "name stored nearby, reached through a u8 offset array".
const (
	entitySubtypeNearby      uint16 = 0x60
	entitySubtypeAlbumNearby uint16 = 0x80
)

// The u8 offset array is two bytes: offset[0] is the constant 0x03 tag of
// a u8-offset array, offset[1] the row-relative offset of the name string.
// Both shapes place the string immediately after the array, so offset[1]
// is fixed per shape.
const (
	offsetArrayTag   = 0x03
	entityNameOffset = 10 // 8-byte fixed header + 2-byte offset array
	albumNameOffset  = 22 // 20-byte fixed header + 2-byte offset array
)

// Entity row pads: a row shorter than its table's stride is zero-padded up
// to it; a long name simply makes the row larger. Albums use a slightly
// wider pad when they are the only row on their page.
const (
	artistRowPad      = 28
	albumRowPad       = 40
	albumRowPadSingle = 44
	genreRowPad       = 20
	keyRowPad         = 12
)

func entityRowSize(name string, pad int) int {
	size := entityNameOffset + len(EncodeString(name))
	if size < pad {
		size = pad
	}
	return size
}

// encodeEntityRow renders the compact 0x60 shape shared by Artist, Genre,
// Key, Label, Color, and Artwork rows:
//
//	0x00 u16 subtype (0x60)
//	0x02 u16 index_shift (always 0 for entity rows)
//	0x04 u32 id
//	0x08 u8  offset[0] (0x03, u8-offset-array tag)
//	0x09 u8  offset[1] (row-relative offset of the name string)
//	0x0A     DeviceSQL name string
//
// zero-padded to pad bytes.
func encodeEntityRow(id int, name string, pad int) []byte {
	str := EncodeString(name)
	total := entityNameOffset + len(str)
	if total < pad {
		total = pad
	}
	row := make([]byte, total)
	putU16(row, 0x00, entitySubtypeNearby)
	putU16(row, 0x02, 0) // index_shift
	putU32(row, 0x04, uint32(id))
	row[0x08] = offsetArrayTag
	row[0x09] = entityNameOffset
	copy(row[entityNameOffset:], str)
	return row
}

func EncodeArtistRow(id int, name string, pageRowCount int) []byte {
	return encodeEntityRow(id, name, artistRowPad)
}

func EncodeGenreRow(id int, name string, pageRowCount int) []byte {
	return encodeEntityRow(id, name, genreRowPad)
}

func EncodeKeyRow(id int, name string, pageRowCount int) []byte {
	return encodeEntityRow(id, name, keyRowPad)
}

// Labels, Colors, and Artwork rows carry no table stride; their sizes are
// purely data-dependent.
func EncodeLabelRow(id int, name string, pageRowCount int) []byte {
	return encodeEntityRow(id, name, 0)
}

func EncodeColorRow(id int, name string, pageRowCount int) []byte {
	return encodeEntityRow(id, name, 0)
}

func EncodeArtworkRow(id int, path string, pageRowCount int) []byte {
	return encodeEntityRow(id, path, 0)
}

// EncodeAlbumRow renders the wider 0x80 album shape:
//
//	0x00 u16 subtype (0x80)
//	0x02 u16 index_shift (0)
//	0x04 u32 unknown2 (0)
//	0x08 u32 artist_id (always 0: albums carry no artist reference)
//	0x0C u32 album_id
//	0x10 u32 unknown3 (0)
//	0x14 u8  offset[0] (0x03)
//	0x15 u8  offset[1] (22)
//	0x16     DeviceSQL name string
//
// padded to 40 bytes, widening to 44 when the row sits alone on its page.
func EncodeAlbumRow(id int, name string, pageRowCount int) []byte {
	pad := albumRowPad
	if pageRowCount <= 1 {
		pad = albumRowPadSingle
	}
	str := EncodeString(name)
	total := albumNameOffset + len(str)
	if total < pad {
		total = pad
	}
	row := make([]byte, total)
	putU16(row, 0x00, entitySubtypeAlbumNearby)
	putU16(row, 0x02, 0) // index_shift
	putU32(row, 0x04, 0) // unknown2
	putU32(row, 0x08, 0) // artist_id
	putU32(row, 0x0C, uint32(id))
	putU32(row, 0x10, 0) // unknown3
	row[0x14] = offsetArrayTag
	row[0x15] = albumNameOffset
	copy(row[albumNameOffset:], str)
	return row
}

func ArtistRowSize(name string) int  { return entityRowSize(name, artistRowPad) }
func GenreRowSize(name string) int   { return entityRowSize(name, genreRowPad) }
func KeyRowSize(name string) int     { return entityRowSize(name, keyRowPad) }
func LabelRowSize(name string) int   { return entityRowSize(name, 0) }
func ColorRowSize(name string) int   { return entityRowSize(name, 0) }
func ArtworkRowSize(path string) int { return entityRowSize(path, 0) }

// AlbumRowSize always reports the multi-row pad; the wider single-row pad
// can only apply to a page holding one row, which trivially fits either way.
func AlbumRowSize(name string) int {
	size := albumNameOffset + len(EncodeString(name))
	if size < albumRowPad {
		size = albumRowPad
	}
	return size
}

const playlistTreeHeaderSize = 16

// EncodePlaylistTreeRow renders one playlist entry in the playlist folder
// tree. This exporter never creates folders, so
// isFolder/parentID are always false/0, but the fields exist for fidelity.
func EncodePlaylistTreeRow(id, parentID, sortOrder int, isFolder bool, name string, rowIndex int) []byte {
	str := EncodeString(name)
	total := playlistTreeHeaderSize + len(str)
	row := make([]byte, total)
	putU32(row, 0x00, uint32(id))
	putU32(row, 0x04, uint32(parentID))
	putU32(row, 0x08, uint32(sortOrder))
	if isFolder {
		row[0x0C] = 1
	}
	row[0x0D] = playlistTreeHeaderSize
	putU16(row, 0x0E, uint16(rowIndex*total))
	copy(row[playlistTreeHeaderSize:], str)
	return row
}

func PlaylistTreeRowSize(name string) int { return playlistTreeHeaderSize + len(EncodeString(name)) }

const playlistEntryRowSize = 12

// EncodePlaylistEntryRow renders one (track_id, playlist_id, entry_index)
// row. Entries are fixed-size and carry no string, so page packing for this
// table is a simple fixed-stride count.
func EncodePlaylistEntryRow(trackID, playlistID, entryIndex int) []byte {
	row := make([]byte, playlistEntryRowSize)
	putU32(row, 0x00, uint32(entryIndex))
	putU32(row, 0x04, uint32(trackID))
	putU32(row, 0x08, uint32(playlistID))
	return row
}

// TrackStride returns the per-row pad for a Tracks data page holding
// pageRowCount rows: 332 bytes when it is the page's only row, 344
// otherwise.
func TrackStride(pageRowCount int) int {
	if pageRowCount <= 1 {
		return 332
	}
	return 344
}

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}

func putU32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}
