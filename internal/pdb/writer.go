package pdb

import (
	"fmt"
	"os"
	"path/filepath"
)

// AuxiliaryBlobs are the four opaque, content-addressed fixed pages
// embedded verbatim. pdb has no
// dependency on the model package; internal/export converts into this
// shape at the call site.
type AuxiliaryBlobs struct {
	ColumnsPage          [pageSize]byte
	HistoryPlaylistsPage [pageSize]byte
	HistoryEntriesPage   [pageSize]byte
	HistoryPage          [pageSize]byte
}

// RowBuilder renders one row's final bytes. globalIndex is the row's
// position within the whole table (used for content, not placement);
// rowIndexInPage and pageRowCount describe where it lands once page
// grouping is decided — only EncodeTrackRow's 332/344 stride choice and
// EncodeAlbumRow's 40/44 pad choice read pageRowCount, everything else
// ignores it.
type RowBuilder func(globalIndex, rowIndexInPage, pageRowCount int) []byte

// TableInput is one table's rows, ready for planning and rendering.
type TableInput struct {
	NaturalSizes []int // per-row natural size, for PlanRowGroups
	Build        RowBuilder
}

// WriteInput is everything PdbWriter needs to assemble export.pdb.
type WriteInput struct {
	Tables          map[TableType]TableInput // keys among tableConfigs (Tracks..Artwork)
	Auxiliary       AuxiliaryBlobs
	HistoryRowCount int // current export's track count, for the History sequence patch
}

// Write plans, renders, and atomically writes the PDB to path (temp file +
// rename).
func Write(path string, in WriteInput) error {
	buf := Render(in)
	if int64(len(buf)) > maxFileSize {
		return &PlanningError{Reason: fmt.Sprintf("pdb of %d bytes exceeds the 2 GiB device limit", len(buf))}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IoError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".export-*.pdb.tmp")
	if err != nil {
		return &IoError{Op: "create temp", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &IoError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &IoError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &IoError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Render produces the full in-memory PDB image (exported for tests, which
// check byte layout without touching the filesystem).
func Render(in WriteInput) []byte {
	pagesNeeded := make(map[TableType]int, len(in.Tables))
	groupsByTable := make(map[TableType][][]int, len(in.Tables))
	for t, ti := range in.Tables {
		plan := PlanRowGroups(ti.NaturalSizes)
		pagesNeeded[t] = len(plan.Groups)
		groupsByTable[t] = plan.Groups
	}

	layout := Plan(pagesNeeded)

	buf := make([]byte, int(layout.NextUnusedPage)*pageSize)
	put := func(pageIndex uint32, page [pageSize]byte) {
		copy(buf[int(pageIndex)*pageSize:], page[:])
	}

	finalSequences := make(map[TableType]uint32, len(tableConfigs))
	for t, cfg := range tableConfigs {
		tp := layout.Tables[t]
		firstLink := tp.EmptyCandidate
		if len(tp.Data) > 0 {
			firstLink = tp.Data[0]
		}
		put(cfg.header, RenderHeaderPage(cfg.header, t, firstLink))

		ti, hasRows := in.Tables[t]
		groups := groupsByTable[t]
		var prevSeq uint32
		for i, pageNum := range tp.Data {
			group := groups[i]
			rowCount := len(group)
			rows := make([][]byte, rowCount)
			if hasRows {
				for j, rowIdx := range group {
					rows[j] = ti.Build(rowIdx, j, rowCount)
				}
			}
			var seq uint32
			if i == 0 {
				seq = Sequence(t, 0, true, rowCount)
			} else {
				seq = Sequence(t, prevSeq, false, rowCount)
			}
			prevSeq = seq
			finalSequences[t] = seq

			next := tp.EmptyCandidate
			if i+1 < len(tp.Data) {
				next = tp.Data[i+1]
			}
			put(pageNum, RenderDataPage(NewDataPageHeader(pageNum, t, next, seq, rowCount), rows))
		}

		// A dynamically allocated empty-candidate carries a bare page header
		// with the auxiliary flag. The fixed reserved candidates at 50/51/52
		// stay fully zeroed instead.
		if tp.EmptyCandidate >= dynamicPoolStart {
			var ec [pageSize]byte
			writeHeader(&ec, pageHeaderFields{
				PageIndex: tp.EmptyCandidate,
				Table:     t,
				PageFlags: pageFlagAuxiliary,
				Unk5:      0x0001,
			}, 0, pageSize-heapStart-4)
			put(tp.EmptyCandidate, ec)
		}
	}

	historySeq := Sequence(TableHistory, 0, true, in.HistoryRowCount)
	finalSequences[TableHistory] = historySeq

	writeFileHeaderPage(buf, layout, finalSequences)
	writeVerbatimTables(buf, in, historySeq)

	return buf
}

func writeVerbatimTables(buf []byte, in WriteInput, historySeq uint32) {
	blobs := map[TableType][pageSize]byte{
		TableColumns:          in.Auxiliary.ColumnsPage,
		TableHistoryPlaylists: in.Auxiliary.HistoryPlaylistsPage,
		TableHistoryEntries:   in.Auxiliary.HistoryEntriesPage,
		TableHistory:          in.Auxiliary.HistoryPage,
	}
	for t, pages := range verbatimTables {
		header, data := pages[0], pages[1]
		var headerPage [pageSize]byte
		if t == TableHistory {
			headerPage = renderHistoryHeaderPage(header, data, in.HistoryRowCount)
		} else {
			headerPage = RenderHeaderPage(header, t, data)
		}
		copy(buf[int(header)*pageSize:], headerPage[:])
		page := blobs[t]
		if t == TableHistory {
			PatchSequence(&page, historySeq)
		}
		copy(buf[int(data)*pageSize:], page[:])
	}
}

// renderHistoryHeaderPage is RenderHeaderPage for the History table, whose
// header carries the special unk5/unk6/unk7 values keyed on the current
// export's row count.
func renderHistoryHeaderPage(pageIndex, dataPage uint32, historyRows int) [pageSize]byte {
	var page [pageSize]byte
	f := pageHeaderFields{
		PageIndex: pageIndex,
		Table:     TableHistory,
		NextPage:  dataPage,
		PageFlags: pageFlagHeader,
		Unk5:      0x0001,
		Unk6:      0x03ec,
		Unk7:      0x0001,
	}
	if historyRows >= 2 {
		f.Unk5 = 0x1fff
	}
	writeHeader(&page, f, 0, pageSize-heapStart-4)
	if historyRows >= 2 {
		putU16(page[:], 0x22, 0x1fff)
	}
	return page
}

// writeFileHeaderPage emits page 0: the fixed preamble, the file-level
// sequence counter, next_unused_page, and the table pointer array. The
// file-level sequence at 0x14 has no closed-form definition in any public
// format description; summing each table's final data-page sequence matches
// the small reference exports we calibrate against (see DESIGN.md).
func writeFileHeaderPage(buf []byte, layout Layout, finalSequences map[TableType]uint32) {
	var page [pageSize]byte
	putU32(page[:], 0x00, 0)
	putU32(page[:], 0x04, pageSize)
	putU32(page[:], 0x08, uint32(len(tableOrder)))
	putU32(page[:], 0x0C, 5) // unknown1

	var fileSeq uint32
	for _, seq := range finalSequences {
		fileSeq += seq
	}
	putU32(page[:], 0x14, fileSeq)
	putU32(page[:], 0x1C, layout.NextUnusedPage)

	const tableArrayStart = 0x24
	for i, t := range tableOrder {
		tp := layout.Tables[t]
		last := tp.Header
		if len(tp.Data) > 0 {
			last = tp.Data[len(tp.Data)-1]
		}
		off := tableArrayStart + i*16
		putU32(page[:], off+0x00, uint32(t))
		putU32(page[:], off+0x04, tp.EmptyCandidate)
		putU32(page[:], off+0x08, tp.Header)
		putU32(page[:], off+0x0C, last)
	}
	copy(buf[0:], page[:])
}
