package enhance

import "math"

// AspectPreset is an output aspect ratio supported by the image model.
type AspectPreset struct {
	Name  string
	Ratio float64
}

// Presets in tie-break order.
var Presets = []AspectPreset{
	{"1:1", 1.0},
	{"3:4", 0.75},
	{"4:3", 1.33},
	{"9:16", 0.5625},
	{"16:9", 1.77},
}

// NearestAspect picks the preset whose ratio is closest to ratio. Ties go to
// the earlier preset; unknown ratios (<= 0) yield the first.
func NearestAspect(ratio float64) AspectPreset {
	best := Presets[0]
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return best
	}
	bestDist := math.Abs(best.Ratio - ratio)
	for _, p := range Presets[1:] {
		if d := math.Abs(p.Ratio - ratio); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
