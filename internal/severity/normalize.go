package severity

import "strings"

// Input is a fully selected rule submission before normalization.
type Input struct {
	Title       string
	Description string
	DPC         float64
	EI          float64
	CB          float64
}

// Normalized holds rule fields with every range invariant enforced.
type Normalized struct {
	Title       string
	Description string
	DPC         int
	EI          float64
	CB          int
}

// Normalize trims text fields and clamps the three scored dimensions.
// EI is kept at two decimals so the stored score never diverges from the
// displayed one. An empty title is returned as-is; rejecting it is the
// caller's job.
func Normalize(in Input) Normalized {
	return Normalized{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DPC:         ClampInt(in.DPC, MinDPC, MaxDPC),
		EI:          Round2(Clamp01(in.EI)),
		CB:          ClampInt(in.CB, MinCB, MaxCB),
	}
}

// Score computes the final severity and its level for normalized input.
func Score(n Normalized) (float64, Level) {
	s := CalcFinalSeverity(n.DPC, n.EI, n.CB)
	return s, MapSeverityLevel(s)
}
