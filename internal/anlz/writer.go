package anlz

import (
	"math"

	"rekordboxport/model"
)

const (
	previewEntries      = 400
	tinyPreviewEntries  = 100
	detailRateHz        = 150
	colorPreviewEntries = 1200
)

// deinterleave splits a raw byte slice holding stride interleaved channels
// (e.g. height,color,height,color,...) into one slice per channel.
func deinterleave(raw []byte, stride int) [][]byte {
	n := len(raw) / stride
	chans := make([][]byte, stride)
	for c := range chans {
		chans[c] = make([]byte, n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < stride; c++ {
			chans[c][i] = raw[i*stride+c]
		}
	}
	return chans
}

func tempoCenti(bpm float64) uint32 {
	if bpm <= 0 {
		return 0
	}
	return uint32(math.Round(bpm * 100))
}

func beatgrid(bundle model.AnalysisBundle) (uint32, []Beat) {
	centi := tempoCenti(bundle.TempoBPM)
	if centi == 0 || len(bundle.Beats) == 0 {
		return centi, nil
	}
	beats := make([]Beat, len(bundle.Beats))
	for i, b := range bundle.Beats {
		beats[i] = Beat{BeatInBar: b.BeatInBar, TempoCenti: uint16(centi), TimeMs: b.TimeMs}
	}
	return centi, beats
}

func buildPWAV(q WaveformQuantizer, raw []byte) []byte {
	var heights [previewEntries]int
	copy(heights[:], q.Heights(Resample(raw, previewEntries), 0, 31))
	return PWAV(heights)
}

func buildPWV2(q WaveformQuantizer, raw []byte) []byte {
	var heights [tinyPreviewEntries]int
	copy(heights[:], q.Heights(Resample(raw, tinyPreviewEntries), 1, 15))
	return PWV2(heights)
}

func buildPWV3(q WaveformQuantizer, raw []byte, entries int) []byte {
	return PWV3(q.Heights(Resample(raw, entries), 0, 31))
}

// Color preview band color ranges: the low band reads bright, mid/high dim.
const (
	lowBandColorMin = 0xE0
	lowBandColorMax = 0xFF
	dimBandColorMin = 0x01
	dimBandColorMax = 0x30
)

func clampByte(v, lo, hi byte) byte {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func buildPWV4(q WaveformQuantizer, raw []byte) []byte {
	chans := deinterleave(raw, 6)
	var low, lowColor, mid, midColor, high, highColor []byte
	if len(chans) == 6 {
		low, lowColor, mid, midColor, high, highColor = chans[0], chans[1], chans[2], chans[3], chans[4], chans[5]
	}
	lowH := q.Heights(Resample(low, colorPreviewEntries), 0, 127)
	midH := q.Heights(Resample(mid, colorPreviewEntries), 0, 127)
	highH := q.Heights(Resample(high, colorPreviewEntries), 0, 127)
	lowC := Resample(lowColor, colorPreviewEntries)
	midC := Resample(midColor, colorPreviewEntries)
	highC := Resample(highColor, colorPreviewEntries)

	var entries [colorPreviewEntries][3]ColorBand
	for i := range entries {
		entries[i] = [3]ColorBand{
			{Height: byte(lowH[i]), Color: clampByte(lowC[i], lowBandColorMin, lowBandColorMax)},
			{Height: byte(midH[i]), Color: clampByte(midC[i], dimBandColorMin, dimBandColorMax)},
			{Height: byte(highH[i]), Color: clampByte(highC[i], dimBandColorMin, dimBandColorMax)},
		}
	}
	return PWV4(entries)
}

func buildPWV5(q WaveformQuantizer, raw []byte, entries int) []byte {
	chans := deinterleave(raw, 4)
	var heightRaw, blue, red, green []byte
	if len(chans) == 4 {
		heightRaw, blue, red, green = chans[0], chans[1], chans[2], chans[3]
	}
	heights := q.Heights(Resample(heightRaw, entries), 12, 31)
	return PWV5(heights, Resample(blue, entries), Resample(red, entries), Resample(green, entries))
}

func assemble(sections [][]byte) []byte {
	var total uint32
	for _, s := range sections {
		total += uint32(len(s))
	}
	header := PMAI(28+total, uint32(len(sections)+1))
	out := make([]byte, 0, len(header)+int(total))
	out = append(out, header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// BuildDAT assembles the .DAT file: PMAI, PPTH, PVBR, PQTZ, PWAV, PWV2, in
// that order.
func BuildDAT(track model.Track, devicePath string) []byte {
	q := WaveformQuantizer{OverallPeak: track.Analysis.PCM.OverallPeak}
	tempo, beats := beatgrid(track.Analysis)

	var vbr [400]uint16
	for i := 0; i < 400 && i < len(track.Analysis.VBR); i++ {
		vbr[i] = uint16(track.Analysis.VBR[i].BytePos & 0xFFFF)
	}

	sections := [][]byte{
		PPTH(devicePath),
		PVBR(vbr),
		PQTZ(tempo, beats),
		buildPWAV(q, track.Analysis.Preview),
		buildPWV2(q, track.Analysis.TinyPreview),
	}
	return assemble(sections)
}

// BuildEXT assembles the .EXT file: PMAI, PPTH, PWV3, PWV4, PWV5, in that
// order.
func BuildEXT(track model.Track, devicePath string) []byte {
	q := WaveformQuantizer{OverallPeak: track.Analysis.PCM.OverallPeak}
	detailEntries := detailRateHz * track.DurationSeconds

	sections := [][]byte{
		PPTH(devicePath),
		buildPWV3(q, track.Analysis.DetailMono, detailEntries),
		buildPWV4(q, track.Analysis.ColorPreview),
		buildPWV5(q, track.Analysis.ColorDetail, detailEntries),
	}
	return assemble(sections)
}
