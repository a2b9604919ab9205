// Package pdb implements the paged "DeviceSQL" binary database written to
// PIONEER/rekordbox/export.pdb: fixed 4096-byte pages, inter-table page
// chains, heap-backed variable-length rows, and a 16-slot row-index footer
// per page. All integers are little-endian.
package pdb

// TableType identifies one of the 20 tables in the file header's table
// pointer array, in the fixed order the real Rekordbox format expects.
type TableType uint32

const (
	TableTracks           TableType = 0x00
	TableGenres           TableType = 0x01
	TableArtists          TableType = 0x02
	TableAlbums           TableType = 0x03
	TableLabels           TableType = 0x04
	TableKeys             TableType = 0x05
	TableColors           TableType = 0x06
	TablePlaylistTree     TableType = 0x07
	TablePlaylistEntries  TableType = 0x08
	TableUnknown9         TableType = 0x09
	TableUnknown10        TableType = 0x0A
	TableUnknown11        TableType = 0x0B
	TableUnknown12        TableType = 0x0C
	TableArtwork          TableType = 0x0D
	TableUnknown14        TableType = 0x0E
	TableUnknown15        TableType = 0x0F
	TableColumns          TableType = 0x10
	TableHistoryPlaylists TableType = 0x11
	TableHistoryEntries   TableType = 0x12
	TableHistory          TableType = 0x13
)

// tableOrder is the order table pointers appear in the file header, and the
// order tables are laid out across pages 1-40.
var tableOrder = []TableType{
	TableTracks, TableGenres, TableArtists, TableAlbums, TableLabels,
	TableKeys, TableColors, TablePlaylistTree, TablePlaylistEntries,
	TableUnknown9, TableUnknown10, TableUnknown11, TableUnknown12,
	TableArtwork, TableUnknown14, TableUnknown15,
	TableColumns, TableHistoryPlaylists, TableHistoryEntries, TableHistory,
}

// Page header page_flags values.
const (
	pageFlagData         = 0x24
	pageFlagExtendedRows = 0x34
	pageFlagHeader       = 0x64
	pageFlagAuxiliary    = 0x44
)

// sequenceBase gives each table's base for the data-page sequence formula
// (base + (rows-1)*5 on the first page). Reference exports pin Tracks=10,
// Genres=8, Artists=7, Albums=9, PlaylistTree=6, PlaylistEntries=11,
// History=10, Keys=8. The remaining tables never carry rows in real
// exports; they get deterministic bases anyway so the formula stays
// well-defined if one ever does (see DESIGN.md).
var sequenceBase = map[TableType]uint32{
	TableTracks:          10,
	TableGenres:          8,
	TableArtists:         7,
	TableAlbums:          9,
	TablePlaylistTree:    6,
	TablePlaylistEntries: 11,
	TableHistory:         10,
	TableKeys:            8,
	TableLabels:          5,
	TableColors:          4,
	TableArtwork:         12,
}

// PAGE_DATA_CAPACITY is the budget (heap + projected footer) a page's rows
// must fit within.
const pageDataCapacity = 4000

const (
	pageSize  = 4096
	heapStart = 0x28 // 40-byte page header

	// maxFileSize caps next_unused_page * pageSize at 2^31, the largest
	// file the players' FAT32 stacks address safely.
	maxFileSize = int64(1) << 31
)
