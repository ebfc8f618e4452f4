package severity

import (
	"math"
	"strings"
)

// Level is the discrete classification of a final severity score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMed      Level = "MED"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Score bounds and input ranges of the rubric.
const (
	MinDPC = 1
	MaxDPC = 4
	MinCB  = 0
	MaxCB  = 4

	MinScore = 0.0
	MaxScore = 8.0
)

// Levels lists every level from least to most severe.
var Levels = []Level{LevelLow, LevelMed, LevelHigh, LevelCritical}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMed, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// Weight returns a sortable rank, higher is more severe. Unknown levels rank 0.
func (l Level) Weight() int {
	switch l {
	case LevelCritical:
		return 4
	case LevelHigh:
		return 3
	case LevelMed:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

func (l Level) String() string {
	return string(l)
}

// ParseLevel accepts a level name in any case. "MEDIUM" is accepted as MED.
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		return LevelLow, true
	case "MED", "MEDIUM":
		return LevelMed, true
	case "HIGH":
		return LevelHigh, true
	case "CRITICAL":
		return LevelCritical, true
	}
	return "", false
}

// ClampInt floors x and clamps it into [lo, hi]. Non-finite input yields lo.
func ClampInt(x float64, lo, hi int) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return lo
	}
	f := math.Floor(x)
	if f < float64(lo) {
		return lo
	}
	if f > float64(hi) {
		return hi
	}
	return int(f)
}

// Clamp01 clamps x into [0, 1]. Non-finite input yields 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// CalcFinalSeverity returns dpc*ei + cb rounded to two decimals.
// Callers pass normalized values; the result then lies in [0, 8].
func CalcFinalSeverity(dpc int, ei float64, cb int) float64 {
	return Round2(float64(dpc)*ei + float64(cb))
}

// MapSeverityLevel classifies a score. Bands are left-closed, so a score
// sitting exactly on a threshold belongs to the higher band.
func MapSeverityLevel(score float64) Level {
	switch {
	case score < 2.0:
		return LevelLow
	case score < 4.0:
		return LevelMed
	case score < 6.0:
		return LevelHigh
	default:
		return LevelCritical
	}
}
