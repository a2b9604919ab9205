package pdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceFirstPage(t *testing.T) {
	assert.Equal(t, uint32(10), Sequence(TableTracks, 0, true, 1))
	assert.Equal(t, uint32(8), Sequence(TableKeys, 0, true, 1))
	assert.Equal(t, uint32(20), Sequence(TableTracks, 0, true, 3))
}

func TestSequenceChained(t *testing.T) {
	first := Sequence(TableTracks, 0, true, 7)
	second := Sequence(TableTracks, first, false, 6)
	assert.Equal(t, first+6*5, second)
}

func TestCyclicMarker(t *testing.T) {
	assert.Equal(t, byte(0x20), CyclicMarker(1))
	assert.Equal(t, byte(0x60), CyclicMarker(3))
	assert.Equal(t, byte(0x00), CyclicMarker(8))
	assert.Equal(t, byte(0x20), CyclicMarker(9))
}

func TestFooterLengthMatchesBuiltFooter(t *testing.T) {
	cases := []int{0, 1, 3, 16, 17, 35}
	for _, r := range cases {
		offsets := make([]uint16, r)
		for i := range offsets {
			offsets[i] = uint16(heapStart + i*10)
		}
		got := buildFooter(offsets)
		assert.Equal(t, FooterLength(r), len(got), "r=%d", r)
	}
}

func TestFooterPartialGroupFlags(t *testing.T) {
	offsets := []uint16{40, 384, 728}
	footer := buildFooter(offsets)
	require.Len(t, footer, 10)
	presentFlags := uint16(footer[6]) | uint16(footer[7])<<8
	unknown := uint16(footer[8]) | uint16(footer[9])<<8
	assert.Equal(t, uint16(0x0007), presentFlags)
	assert.Equal(t, uint16(0x0004), unknown)
}

func TestFooterFullGroupFlags(t *testing.T) {
	offsets := make([]uint16, 16)
	for i := range offsets {
		offsets[i] = uint16(heapStart + i*12)
	}
	footer := buildFooter(offsets)
	require.Len(t, footer, 36)
	presentFlags := uint16(footer[32]) | uint16(footer[33])<<8
	unknown := uint16(footer[34]) | uint16(footer[35])<<8
	assert.Equal(t, uint16(0xFFFF), presentFlags)
	assert.Equal(t, uint16(0x0000), unknown)
}

func TestFooterGroupsReverseOrder(t *testing.T) {
	// 17 rows: the partial group (row 16 alone) lands closest to the heap,
	// and group 0 (rows 0-15) ends exactly at 0xFFF.
	offsets := make([]uint16, 17)
	for i := range offsets {
		offsets[i] = uint16(heapStart + i*10)
	}
	footer := buildFooter(offsets)
	require.Equal(t, FooterLength(17), len(footer))

	// Partial group (2 offset bytes + 4 flag bytes = 6) comes first and
	// holds the last row's offset.
	firstOffset := uint16(footer[0]) | uint16(footer[1])<<8
	assert.Equal(t, offsets[16], firstOffset)

	// Group 0's first slot follows and holds row 0's offset.
	g0 := footer[6:]
	require.Len(t, g0, 36)
	assert.Equal(t, offsets[0], uint16(g0[0])|uint16(g0[1])<<8)
	assert.Equal(t, offsets[15], uint16(g0[30])|uint16(g0[31])<<8)
}

func TestPlanRowGroupsRespectsCapacity(t *testing.T) {
	sizes := make([]int, 40)
	for i := range sizes {
		sizes[i] = 150
	}
	plan := PlanRowGroups(sizes)
	for _, g := range plan.Groups {
		total := 0
		for _, idx := range g {
			total += sizes[idx]
		}
		assert.LessOrEqual(t, total, pageDataCapacity)
	}
	var total int
	for _, g := range plan.Groups {
		total += len(g)
	}
	assert.Equal(t, 40, total)
}

func TestRenderDataPageHeaderFields(t *testing.T) {
	rows := [][]byte{
		EncodeArtistRow(1, "A", 2),
		EncodeArtistRow(2, "B", 2),
	}
	page := RenderDataPage(NewDataPageHeader(6, TableArtists, 0, Sequence(TableArtists, 0, true, 2), 2), rows)
	assert.Equal(t, uint32(6), leU32(page[0x04:]))
	assert.Equal(t, uint32(TableArtists), leU32(page[0x08:]))
	assert.Equal(t, byte(pageFlagData), page[0x1B])
	assert.Equal(t, byte(2), page[0x18])
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
