package anlz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPMAILength(t *testing.T) {
	got := PMAI(1000, 6)
	assert.Equal(t, 28, len(got))
	assert.Equal(t, "PMAI", string(got[0:4]))
}

func TestPPTHUTF16BETerminated(t *testing.T) {
	got := PPTH("AB")
	require.Equal(t, commonHeaderSize+6, len(got)) // 2 chars * 2 bytes + 2-byte NUL
	body := got[commonHeaderSize:]
	assert.Equal(t, []byte{0x00, 'A', 0x00, 'B', 0x00, 0x00}, body)
}

func TestPQTZHeaderOnlyWhenNoBeats(t *testing.T) {
	// Scenario: unknown tempo/key emits only the 24-byte header.
	got := PQTZ(0, nil)
	assert.Equal(t, 24, len(got))
}

func TestPQTZGrowsWithBeats(t *testing.T) {
	got := PQTZ(12000, []Beat{{BeatInBar: 1, TempoCenti: 12000, TimeMs: 0}, {BeatInBar: 2, TempoCenti: 12000, TimeMs: 500}})
	assert.Equal(t, 24+2*8, len(got))
}

func TestPWAVWhitenessFixed(t *testing.T) {
	var heights [400]int
	heights[0] = 31
	got := PWAV(heights)
	body := got[commonHeaderSize:]
	assert.Equal(t, byte(pwavWhiteness<<5)|0x1F, body[0])
}

func TestPWV2WritesGivenHeightsVerbatim(t *testing.T) {
	// PWV2 is a dumb byte packer: the floor of 1 for available analysis
	// (and true zero for AnalysisUnavailable) is WaveformQuantizer's job,
	// not this encoder's.
	var heights [100]int
	heights[0] = 1
	heights[1] = 0
	got := PWV2(heights)
	body := got[commonHeaderSize:]
	assert.Equal(t, byte(1), body[0])
	assert.Equal(t, byte(0), body[1])
}

func TestPWV4FixedSize(t *testing.T) {
	var entries [1200][3]ColorBand
	got := PWV4(entries)
	assert.Equal(t, commonHeaderSize+1200*6, len(got))
}

func TestPWV5PackedBits(t *testing.T) {
	heights := []int{20}
	blue := []byte{0b1010_1101} // low3=0b101, high2=0b01
	red := []byte{0b0000_0110}
	green := []byte{0b0000_0011}
	got := PWV5(heights, blue, red, green)
	body := got[commonHeaderSize:]
	assert.Equal(t, byte((0b101<<5)|20), body[0])
	assert.Equal(t, byte((0b110<<5)|(0b011<<2)|0b01), body[1])
}
