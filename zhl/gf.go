package zhl

import (
	"math"

	"github.com/m5lapp/decoplanner/units"
)

// gfLowDepth returns the cached GF-low depth anchor, computing and caching
// it if necessary. The cache is invalidated in recordSegment whenever the
// GF_high-anchored ceiling becomes non-positive (the compartments leave
// "in deco") — see DESIGN.md.
func (m *Model) gfLowDepth() float64 {
	if m.State.gfLowDepth != nil {
		return *m.State.gfLowDepth
	}

	g := float64(m.Config.GradientFactors.Low) / 100.0
	surfaceBar := float64(m.Config.SurfacePressureMbar) / 1000.0

	maxDepth := 0.0
	for i := range m.Compartments {
		pAmb := m.Compartments[i].ambAtGF(g)
		d := math.Max(0, 10*(pAmb-surfaceBar))
		if d > maxDepth {
			maxDepth = d
		}
	}

	m.State.gfLowDepth = &maxDepth
	return maxDepth
}

// slopedMaxGF is the sloped GF at the given depth. When GFLow==GFHigh, or
// the compartments are not currently in a decompression obligation
// (ceilingAtHigh<=0), the maxGF is always GFHigh.
func (m *Model) slopedMaxGF(depth units.Depth, ceilingAtHigh units.Depth) float64 {
	gfLow := float64(m.Config.GradientFactors.Low)
	gfHigh := float64(m.Config.GradientFactors.High)

	if gfLow == gfHigh {
		return gfHigh
	}
	if ceilingAtHigh <= 0 {
		return gfHigh
	}

	dLow := m.gfLowDepth()
	if dLow <= 0 {
		return gfHigh
	}

	d := depth.Meters()
	if d >= dLow {
		return gfLow
	}
	return gfHigh - (gfHigh-gfLow)*d/dLow
}
