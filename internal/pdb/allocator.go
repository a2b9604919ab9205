package pdb

// PageAllocator assigns absolute page numbers to every table's header,
// data, overflow, and empty-candidate pages under the rigid layout the
// device expects. Pages 0-40 are a fixed per-table triple; 41-49 are always
// reserved zero; 50/51/52 are the Keys/Tracks/PlaylistEntries empty
// candidates; 53+ is the dynamic overflow pool.

// TablePages is the page-number outcome for one table.
type TablePages struct {
	Table          TableType
	Header         uint32
	Data           []uint32 // absolute page numbers, in chain order
	EmptyCandidate uint32   // 0 means the chain ends directly (next_page=0), no reserved page
}

// Layout is the complete page plan for one export.
type Layout struct {
	Tables         map[TableType]TablePages
	NextUnusedPage uint32
}

const (
	reservedZeroStart = 41
	reservedZeroEnd   = 49 // inclusive
	keysFixedEC       = 50
	tracksFixedEC     = 51
	playlistEntriesEC = 52
	dynamicPoolStart  = 53
)

// tableConfig captures one table's fixed anchor page(s). Every table here
// follows the same shape: a header page, one fixed "anchor" page right
// after it (which doubles as the empty-candidate when the table turns out
// to be empty, unless the table has a fixed reserved candidate at 50/51/52,
// which is used instead), and — only for Tracks — a second fixed anchor (page 51)
// that is reused as data before the dynamic pool is touched at all.
type tableConfig struct {
	header    uint32
	firstData uint32
	fixedEC   uint32 // 0 = no reserved candidate beyond firstData itself
	reuseEC   uint32 // 0 = no second fixed anchor; Tracks sets this to 51
}

var tableConfigs = map[TableType]tableConfig{
	TableTracks:          {header: 1, firstData: 2, fixedEC: tracksFixedEC, reuseEC: tracksFixedEC},
	TableGenres:          {header: 3, firstData: 4},
	TableArtists:         {header: 5, firstData: 6},
	TableAlbums:          {header: 7, firstData: 8},
	TableLabels:          {header: 9, firstData: 10},
	TableKeys:            {header: 11, firstData: 12, fixedEC: keysFixedEC},
	TableColors:          {header: 13, firstData: 14},
	TablePlaylistTree:    {header: 15, firstData: 16},
	TablePlaylistEntries: {header: 17, firstData: 18, fixedEC: playlistEntriesEC},
	TableUnknown9:        {header: 19, firstData: 20},
	TableUnknown10:       {header: 21, firstData: 22},
	TableUnknown11:       {header: 23, firstData: 24},
	TableUnknown12:       {header: 25, firstData: 26},
	TableArtwork:         {header: 27, firstData: 28},
	TableUnknown14:       {header: 29, firstData: 30},
	TableUnknown15:       {header: 31, firstData: 32},
}

// verbatimTables carry fixed header/data page pairs but their data page is
// a caller-supplied opaque blob, never planned by row count.
var verbatimTables = map[TableType][2]uint32{
	TableColumns:          {33, 34},
	TableHistoryPlaylists: {35, 36},
	TableHistoryEntries:   {37, 38},
	TableHistory:          {39, 40},
}

// cascadeOrder is the order dynamic-pool overflow is drawn in once a
// table's fixed anchors are exhausted: the artist overflow starts right
// after the track empty-candidate, albums after artists, and so on down
// the list.
var cascadeOrder = []TableType{
	TableTracks, TableArtists, TableAlbums, TableGenres, TableLabels,
	TableKeys, TableColors, TablePlaylistTree, TablePlaylistEntries, TableArtwork,
	TableUnknown9, TableUnknown10, TableUnknown11, TableUnknown12, TableUnknown14, TableUnknown15,
}

type pageCursor struct{ next uint32 }

func (c *pageCursor) take() uint32 {
	if c.next < dynamicPoolStart {
		c.next = dynamicPoolStart
	}
	if c.next == playlistEntriesEC {
		c.next++
	}
	p := c.next
	c.next++
	return p
}

// Plan assigns page numbers given, for every table with real rows, the
// number of data pages PlanRowGroups computed for it. Tables absent from
// pagesNeeded are treated as empty (0 data pages).
func Plan(pagesNeeded map[TableType]int) Layout {
	cursor := pageCursor{next: dynamicPoolStart}
	tables := make(map[TableType]TablePages, len(tableOrder))

	for _, t := range cascadeOrder {
		cfg, ok := tableConfigs[t]
		if !ok {
			continue
		}
		tables[t] = allocateTable(t, cfg, pagesNeeded[t], &cursor)
	}
	for t, pages := range verbatimTables {
		tables[t] = TablePages{Table: t, Header: pages[0], Data: []uint32{pages[1]}}
	}

	var maxEC uint32
	for _, tp := range tables {
		if tp.EmptyCandidate > maxEC {
			maxEC = tp.EmptyCandidate
		}
		for _, d := range tp.Data {
			if d > maxEC {
				maxEC = d
			}
		}
	}
	next := maxEC + 1
	if next < dynamicPoolStart {
		next = dynamicPoolStart
	}

	return Layout{Tables: tables, NextUnusedPage: next}
}

func allocateTable(t TableType, cfg tableConfig, pagesNeeded int, cursor *pageCursor) TablePages {
	tp := TablePages{Table: t, Header: cfg.header}

	switch {
	case pagesNeeded <= 0:
		// Fixed reserved candidates (50/51/52) stay claimed even when the
		// table turns out empty: they are part of the rigid page map, and
		// next_unused_page must clear them on every export.
		if cfg.fixedEC != 0 {
			tp.EmptyCandidate = cfg.fixedEC
		} else {
			tp.EmptyCandidate = cfg.firstData
		}
	case pagesNeeded == 1:
		tp.Data = []uint32{cfg.firstData}
		tp.EmptyCandidate = cfg.fixedEC // 0 if the table has no reserved candidate
	default:
		data := []uint32{cfg.firstData}
		remaining := pagesNeeded - 1
		if cfg.reuseEC != 0 {
			data = append(data, cfg.reuseEC)
			remaining--
		}
		for remaining > 0 {
			data = append(data, cursor.take())
			remaining--
		}
		tp.Data = data
		tp.EmptyCandidate = cursor.take()
	}
	return tp
}
