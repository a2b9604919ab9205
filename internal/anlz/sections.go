// Package anlz implements the per-track tagged-section ANLZ0000.DAT/.EXT
// files: big-endian throughout (opposite of the PDB's little-endian), a
// 4-byte ASCII tag plus two length fields per section, then a
// section-specific body.
package anlz

import "unicode/utf16"

const commonHeaderSize = 12 // tag(4) + len_header(4) + len_tag(4)

// section concatenates one tagged section: 4-byte tag, a fixed 12-byte
// common header (len_header always equals commonHeaderSize — no section
// here carries extra fixed fields ahead of its body), and body.
func section(tag string, body []byte) []byte {
	out := make([]byte, commonHeaderSize+len(body))
	copy(out[0:4], tag)
	putU32BE(out[4:8], commonHeaderSize)
	putU32BE(out[8:12], uint32(len(body)))
	copy(out[commonHeaderSize:], body)
	return out
}

func putU32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putU16BE(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// PMAI is the file-level header: 28 bytes total including the common
// 12-byte section header.
func PMAI(totalFileLength uint32, sectionCount uint32) []byte {
	body := make([]byte, 16)
	putU32BE(body[4:8], totalFileLength)
	putU32BE(body[8:12], sectionCount)
	return section("PMAI", body)
}

// PPTH is the UTF-16BE, NUL-terminated absolute device path to the audio
// file.
func PPTH(devicePath string) []byte {
	units := utf16.Encode([]rune(devicePath))
	body := make([]byte, 2*(len(units)+1))
	for i, u := range units {
		putU16BE(body[2*i:], u)
	}
	// trailing NUL left zero.
	return section("PPTH", body)
}

// PVBR is the variable-bitrate time-to-byte lookup: 4-byte constant header,
// 400 u16 entries, and a trailing u16 constant.
func PVBR(entries [400]uint16) []byte {
	body := make([]byte, 4+400*2+2)
	for i, e := range entries {
		putU16BE(body[4+2*i:], e)
	}
	return section("PVBR", body)
}

// Beat is one beatgrid marker written into PQTZ.
type Beat struct {
	BeatInBar  uint16
	TempoCenti uint16
	TimeMs     uint32
}

// PQTZ is the beatgrid: a 24-byte section (12-byte common header + 12-byte
// fixed body header) when there are no beats, plus 8 bytes per beat
// otherwise.
func PQTZ(defaultTempoCenti uint32, beats []Beat) []byte {
	body := make([]byte, 12+8*len(beats))
	putU32BE(body[0:4], defaultTempoCenti)
	putU32BE(body[4:8], uint32(len(beats)))
	for i, b := range beats {
		off := 12 + 8*i
		putU16BE(body[off:], b.BeatInBar)
		putU16BE(body[off+2:], b.TempoCenti)
		putU32BE(body[off+4:], b.TimeMs)
	}
	return section("PQTZ", body)
}

const (
	pwavWhiteness = 5
	pwv3Whiteness = 7
)

// PWAV is the 400-byte monochrome preview: each byte is
// (whiteness:3 | height:5), whiteness fixed at pwavWhiteness.
func PWAV(heights [400]int) []byte {
	body := make([]byte, 400)
	for i, h := range heights {
		body[i] = byte((pwavWhiteness<<5)&0xE0) | byte(h&0x1F)
	}
	return section("PWAV", body)
}

// PWV2 is the 100-byte tiny preview: one height-only byte per entry. The
// normal floor of 1 is the quantizer's job (buildPWV2 passes
// floor=1); this encoder just packs whatever heights it's given, so a
// genuine zero-height entry (analysis unavailable) is
// written as 0, not clamped back up to 1.
func PWV2(heights [100]int) []byte {
	body := make([]byte, 100)
	for i, h := range heights {
		body[i] = byte(h & 0x0F)
	}
	return section("PWV2", body)
}

// PWV3 is the monochrome detail track: 150 entries/sec, each
// (whiteness:3 | height:5), whiteness fixed at pwv3Whiteness.
func PWV3(heights []int) []byte {
	body := make([]byte, len(heights))
	for i, h := range heights {
		body[i] = byte((pwv3Whiteness<<5)&0xE0) | byte(h&0x1F)
	}
	return section("PWV3", body)
}

// ColorBand is one (height, color) pair within a PWV4 entry.
type ColorBand struct {
	Height byte
	Color  byte
}

// PWV4 is the color preview: a fixed 1200 entries x 6 bytes, each entry
// three (low/mid/high) ColorBand pairs.
func PWV4(entries [1200][3]ColorBand) []byte {
	body := make([]byte, 1200*6)
	for i, e := range entries {
		off := i * 6
		for b := 0; b < 3; b++ {
			body[off+2*b] = e[b].Height
			body[off+2*b+1] = e[b].Color
		}
	}
	return section("PWV4", body)
}

// PWV5 is the color detail track: 150 entries/sec x 2 bytes. Byte 0 =
// (blue_low3<<5)|(height&0x1F); byte 1 = (red3<<5)|(green3<<2)|blue_high2.
func PWV5(heights []int, blue, red, green []byte) []byte {
	body := make([]byte, 2*len(heights))
	for i, h := range heights {
		b := blue[i]
		blueLow3 := b & 0x07
		blueHigh2 := (b >> 3) & 0x03
		body[2*i] = (blueLow3 << 5) | byte(h&0x1F)
		body[2*i+1] = ((red[i] & 0x07) << 5) | ((green[i] & 0x07) << 2) | blueHigh2
	}
	return section("PWV5", body)
}
