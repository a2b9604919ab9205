package export

import "fmt"

// AnalysisUnavailable marks a track whose BPM/key/waveform analysis
// collaborator failed or was never run. This is logged, not fatal: the
// track still exports with tempo=0, key=0, and zero-height waveforms.
type AnalysisUnavailable struct {
	TrackID int
	Reason  string
}

func (e *AnalysisUnavailable) Error() string {
	return fmt.Sprintf("analysis unavailable for track %d: %s", e.TrackID, e.Reason)
}
