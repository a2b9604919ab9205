package model

// Derived entities are assigned 1-indexed IDs in first-seen order by the
// ExportOrganizer's registries (internal/registry); these types are just the
// row payloads.

type Artist struct {
	ID   int
	Name string
}

type Album struct {
	ID   int
	Name string
	// Albums carry no artist reference: always 0 in the row.
}

type Genre struct {
	ID   int
	Name string
}

type Label struct {
	ID   int
	Name string
}

type Key struct {
	ID   int
	Name string
}

type Color struct {
	ID   int
	Name string
}

// FixedColors are the 8 preset color rows, IDs 1-8, present in every export
// regardless of whether a track references them.
var FixedColors = []Color{
	{ID: 1, Name: "Pink"},
	{ID: 2, Name: "Red"},
	{ID: 3, Name: "Orange"},
	{ID: 4, Name: "Yellow"},
	{ID: 5, Name: "Green"},
	{ID: 6, Name: "Aqua"},
	{ID: 7, Name: "Blue"},
	{ID: 8, Name: "Purple"},
}

// ArtworkEntry is one deduplicated artwork asset: an ID and the device path
// to its JPEG-80 file.
type ArtworkEntry struct {
	ID   int
	Path string
}
