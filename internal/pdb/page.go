package pdb

// PageBuilder packs row images into 4096-byte pages: a 40-byte header, a
// forward-growing row heap, and a row-index footer built from 16-row groups
// written backward from the page end.

// PagePlan is the outcome of greedily grouping a table's rows into pages
// within pageDataCapacity. PageAllocator uses it to learn
// how many pages a table needs before absolute page numbers exist; the
// writer re-derives the identical grouping (a pure function of row sizes)
// once page numbers are known.
type PagePlan struct {
	Groups [][]int // each inner slice holds row indices placed on one page, in order
}

// PlanRowGroups splits sizes (one natural encoded size per row, input
// order) into pages so each page's row bytes plus its row-index footer stay
// within pageDataCapacity. Packing is greedy in input order.
func PlanRowGroups(sizes []int) PagePlan {
	var plan PagePlan
	var current []int
	budget := 0
	for i, sz := range sizes {
		if len(current) > 0 && budget+sz+FooterLength(len(current)+1) > pageDataCapacity {
			plan.Groups = append(plan.Groups, current)
			current = nil
			budget = 0
		}
		current = append(current, i)
		budget += sz
	}
	if len(current) > 0 {
		plan.Groups = append(plan.Groups, current)
	}
	if len(plan.Groups) == 0 {
		plan.Groups = [][]int{}
	}
	return plan
}

// Sequence returns a data page's sequence header field given the previous
// page's sequence (0 for a table's first data page) and this page's row
// count: base + (r-1)*5 on the first page, prev + r*5 after that.
func Sequence(table TableType, prevSequence uint32, isFirstPage bool, rowCount int) uint32 {
	if isFirstPage {
		return sequenceBase[table] + uint32(rowCount-1)*5
	}
	return prevSequence + uint32(rowCount)*5
}

// CyclicMarker returns unk3 (0x19) for a data page with rowCount rows:
// (r mod 8) * 0x20, cycling 0x20..0xE0, 0x00, 0x20, ...
func CyclicMarker(rowCount int) byte {
	return byte((rowCount % 8) * 0x20)
}

// pageHeaderFields bundles every header-page field so render call sites
// stay readable.
type pageHeaderFields struct {
	PageIndex uint32
	Table     TableType
	NextPage  uint32
	Sequence  uint32
	NumRows   int
	Unk3      byte
	Heavy     bool
	PageFlags byte
	Unk5      uint16
	Unk6      uint16
	Unk7      uint16
}

// RenderDataPage lays out one table data page: header, concatenated row
// bytes, and the reverse-order row-index footer.
func RenderDataPage(f pageHeaderFields, rows [][]byte) [pageSize]byte {
	var page [pageSize]byte

	cursor := heapStart
	offsets := make([]uint16, len(rows))
	for i, rb := range rows {
		copy(page[cursor:], rb)
		offsets[i] = uint16(cursor)
		cursor += len(rb)
	}

	footer := buildFooter(offsets)
	footerStart := pageSize - len(footer)
	copy(page[footerStart:], footer)

	writeHeader(&page, f, uint16(cursor-heapStart), uint16(footerStart-cursor))
	return page
}

// RenderHeaderPage lays out a table's header page: no rows, just the
// 40-byte header.
func RenderHeaderPage(pageIndex uint32, table TableType, firstDataOrCandidate uint32) [pageSize]byte {
	var page [pageSize]byte
	writeHeader(&page, pageHeaderFields{
		PageIndex: pageIndex,
		Table:     table,
		NextPage:  firstDataOrCandidate,
		PageFlags: pageFlagHeader,
		Unk5:      0x0001,
	}, 0, pageSize-heapStart-4)
	return page
}

func writeHeader(page *[pageSize]byte, f pageHeaderFields, usedSize, freeSize uint16) {
	b := page[:]
	putU32(b, 0x00, 0)
	putU32(b, 0x04, f.PageIndex)
	putU32(b, 0x08, uint32(f.Table))
	putU32(b, 0x0C, f.NextPage)
	putU32(b, 0x10, f.Sequence)
	putU32(b, 0x14, 0)

	numRowsSmall := f.NumRows
	numRowsLarge := uint16(f.NumRows)
	if numRowsSmall > 0xFE {
		numRowsSmall = 0xFF
		numRowsLarge = 0x1fff
	}
	b[0x18] = byte(numRowsSmall)
	b[0x19] = f.Unk3
	if f.Heavy {
		b[0x1A] = 0x01
	}
	flags := f.PageFlags
	if flags == 0 {
		flags = pageFlagData
	}
	b[0x1B] = flags
	putU16(b, 0x1C, freeSize)
	putU16(b, 0x1E, usedSize)
	unk5 := f.Unk5
	if unk5 == 0 {
		unk5 = 0x0001
	}
	putU16(b, 0x20, unk5)
	putU16(b, 0x22, numRowsLarge)
	putU16(b, 0x24, f.Unk6)
	putU16(b, 0x26, f.Unk7)
}

// NewDataPageHeader is the convenience entry point PdbWriter uses once a
// page's absolute index, chain link, and row count are all known.
func NewDataPageHeader(pageIndex uint32, table TableType, nextPage, sequence uint32, rowCount int) pageHeaderFields {
	flags := byte(pageFlagData)
	if rowCount > 0xFE {
		flags = pageFlagExtendedRows
	}
	return pageHeaderFields{
		PageIndex: pageIndex,
		Table:     table,
		NextPage:  nextPage,
		Sequence:  sequence,
		NumRows:   rowCount,
		Unk3:      CyclicMarker(rowCount),
		Heavy:     rowCount > 16,
		PageFlags: flags,
		Unk5:      0x0001,
	}
}

// buildFooter renders the row-index footer for rowOffsets (absolute page
// offsets, in row order). Rows form groups of 16 starting from row 0, and
// the groups are written in reverse: the last, possibly
// partial group lands closest to the heap, and group 0 ends exactly at
// byte 0xFFF.
func buildFooter(rowOffsets []uint16) []byte {
	r := len(rowOffsets)
	if r == 0 {
		return nil
	}
	numGroups := (r + 15) / 16

	var out []byte
	for gi := numGroups - 1; gi >= 0; gi-- {
		lo := gi * 16
		hi := lo + 16
		if hi > r {
			hi = r
		}
		out = append(out, encodeFooterGroup(rowOffsets[lo:hi])...)
	}
	return out
}

func encodeFooterGroup(offsets []uint16) []byte {
	k := len(offsets)
	var presentFlags, unknown uint16
	var buf []byte
	if k == 16 {
		presentFlags = 0xFFFF
		unknown = 0x0000
	} else {
		presentFlags = uint16(1<<uint(k)) - 1
		unknown = 1 << uint(k-1)
	}
	for _, off := range offsets {
		buf = append(buf, byte(off), byte(off>>8))
	}
	buf = append(buf, byte(presentFlags), byte(presentFlags>>8))
	buf = append(buf, byte(unknown), byte(unknown>>8))
	return buf
}

// FooterLength returns the exact byte length buildFooter would produce for
// r rows, without building it.
func FooterLength(r int) int {
	if r == 0 {
		return 0
	}
	fullGroups := r / 16
	partialRows := r % 16
	if partialRows == 0 {
		return fullGroups * 36
	}
	return fullGroups*36 + partialRows*2 + 4
}

// PatchSequence overwrites the sequence field (offset 0x10) of a verbatim
// auxiliary page in place.
func PatchSequence(page *[pageSize]byte, sequence uint32) {
	putU32(page[:], 0x10, sequence)
}
