// Package model is the frozen input contract between the exporter core and
// its external collaborators (audio decoder, BPM/key detectors, artwork
// extractor, library-source parser). Nothing in this package depends on the
// pdb/anlz/export packages.
package model

// FileType is the on-disk audio container, encoded into the track row.
type FileType uint16

const (
	FileTypeUnknown FileType = 0x00
	FileTypeMP3     FileType = 0x01
	FileTypeM4A     FileType = 0x04
	FileTypeFLAC    FileType = 0x05
	FileTypeWAV     FileType = 0x0b
	FileTypeAIFF    FileType = 0x0c
)

// FileTypeFromExtension maps a lowercase extension (without the dot) to its
// FileType, defaulting to FileTypeUnknown.
func FileTypeFromExtension(ext string) FileType {
	switch ext {
	case "mp3":
		return FileTypeMP3
	case "m4a", "mp4", "aac":
		return FileTypeM4A
	case "flac":
		return FileTypeFLAC
	case "wav":
		return FileTypeWAV
	case "aiff", "aif":
		return FileTypeAIFF
	default:
		return FileTypeUnknown
	}
}

// Beat is one beatgrid marker: milliseconds from track start and the beat's
// position within its bar (1-4).
type Beat struct {
	TimeMs    uint32
	BeatInBar uint16
}

// VBREntry is one row of a variable-bitrate time-to-byte lookup table.
type VBREntry struct {
	TimeMs  uint32
	BytePos uint32
}

// PCMStats carries just enough of the decoded waveform for normalization;
// the decoder itself is an external collaborator.
type PCMStats struct {
	OverallPeak         float64
	WindowedPeaksByRate map[int][]float64 // sample rate (entries/sec) -> per-window peak, 0..1
}

// AnalysisBundle is everything the BPM/key detector and waveform analyzer
// produce for one track. A zero-value bundle (TempoBPM==0, KeyID==0, no
// beats) is valid and represents AnalysisUnavailable: the
// track still exports with zeroed fields and zero-height waveforms.
type AnalysisBundle struct {
	TempoBPM float64
	KeyID    int
	Beats    []Beat
	VBR      []VBREntry

	Preview      []byte // PWAV source samples, pre-quantization
	TinyPreview  []byte // PWV2 source samples
	DetailMono   []byte // PWV3 source samples
	ColorPreview []byte // PWV4 source samples
	ColorDetail  []byte // PWV5 source samples

	PCM PCMStats
}

// ArtworkPair is the pre-rendered cover art a collaborator supplies; the
// exporter never resizes or re-encodes artwork.
type ArtworkPair struct {
	JPEG80  []byte // 80x80
	JPEG240 []byte // 240x240
}

// Track is one library entry. IDs referenced by name (ArtistName, ...) are
// resolved to integer table IDs by the ExportOrganizer's entity registries,
// not here: this struct is the frozen collaborator-facing shape.
type Track struct {
	ID int

	Title      string
	ArtistName string
	AlbumName  string
	GenreName  string
	LabelName  string
	KeyName    string
	ColorIndex int

	FileType        FileType
	FileSizeBytes   int64
	BitrateKbps     int
	SampleRateHz    int
	SampleDepthBits int
	DurationSeconds int
	TrackNumber     int
	DiscNumber      int
	PlayCount       int
	Year            int
	Rating          int    // 0-5
	DateAdded       string // YYYY-MM-DD

	AudioFilePath string // relative, FAT32-safe

	Analysis AnalysisBundle
	Artwork  *ArtworkPair
}

// Playlist is an ordered list of track IDs; track IDs are Track.ID values
// from the same LibraryInput.
type Playlist struct {
	Name     string
	TrackIDs []int
}

// AuxiliaryBlobs are the opaque, content-addressed fixed assets embedded
// verbatim into the PDB. Each must be
// exactly one 4096-byte page.
type AuxiliaryBlobs struct {
	ColumnsPage          [4096]byte
	HistoryPlaylistsPage [4096]byte
	HistoryEntriesPage   [4096]byte
	HistoryPage          [4096]byte
}

// LibraryInput is the complete, frozen interface surface collaborators
// fill in: everything the core encoders need, and nothing they are
// allowed to compute themselves (no audio decoding, no tag parsing).
type LibraryInput struct {
	Tracks    []Track
	Playlists []Playlist
	Auxiliary AuxiliaryBlobs
}
