package pdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSingleTrackExport(t *testing.T) {
	layout := Plan(map[TableType]int{
		TableTracks:  1,
		TableArtists: 1,
		TableAlbums:  1,
		TableKeys:    1,
	})
	assert.Equal(t, uint32(53), layout.NextUnusedPage)

	tracks := layout.Tables[TableTracks]
	assert.Equal(t, []uint32{2}, tracks.Data)
	assert.Equal(t, uint32(51), tracks.EmptyCandidate)

	keys := layout.Tables[TableKeys]
	assert.Equal(t, []uint32{12}, keys.Data)
	assert.Equal(t, uint32(50), keys.EmptyCandidate)

	genres := layout.Tables[TableGenres] // referenced by no track
	assert.Empty(t, genres.Data)
	assert.Equal(t, uint32(4), genres.EmptyCandidate)
}

func TestPlanTrackOverflowSkipsPlaylistEntriesCandidate(t *testing.T) {
	layout := Plan(map[TableType]int{TableTracks: 5})
	tracks := layout.Tables[TableTracks]
	require.Len(t, tracks.Data, 5)
	assert.Equal(t, []uint32{2, 51, 53, 54, 55}, tracks.Data)
	assert.Equal(t, uint32(56), tracks.EmptyCandidate)
	assert.NotContains(t, tracks.Data, uint32(52))
}

func TestPlanArtistOverflowCascadesAfterTracks(t *testing.T) {
	layout := Plan(map[TableType]int{
		TableTracks:  5,
		TableArtists: 2,
	})
	tracks := layout.Tables[TableTracks]
	artists := layout.Tables[TableArtists]
	assert.Equal(t, tracks.EmptyCandidate+1, artists.Data[1])
}

func TestPlanPageDisjointness(t *testing.T) {
	layout := Plan(map[TableType]int{
		TableTracks:          6,
		TableArtists:         3,
		TableAlbums:          2,
		TableGenres:          2,
		TableKeys:            1,
		TablePlaylistEntries: 3,
	})
	seen := map[uint32]TableType{}
	claim := func(page uint32, owner TableType) {
		if page == 0 {
			return
		}
		if existing, ok := seen[page]; ok {
			t.Fatalf("page %d claimed by both %v and %v", page, existing, owner)
		}
		seen[page] = owner
	}
	for table, tp := range layout.Tables {
		claim(tp.Header, table)
		for _, d := range tp.Data {
			claim(d, table)
		}
	}
}
