package zhl

import (
	"math"

	"github.com/m5lapp/decoplanner/gas"
	"github.com/m5lapp/decoplanner/units"
)

// Compartment is one of the sixteen parallel tissue compartments of the
// ZH-L16C model. PN2/PHe are the inert-gas partial tissue pressures in
// bar; MValueRaw/MValueCalc/MinTolerableAmbient are re-derived on every
// update.
type Compartment struct {
	c coefs

	PN2 float64
	PHe float64

	// aw/bw are the current tissue-weighted Bühlmann a/b coefficients,
	// cached after every update so Supersaturation can re-evaluate M_raw
	// at an arbitrary ambient pressure (e.g. the surface) without
	// re-deriving them.
	aw float64
	bw float64

	MValueRaw           float64
	MValueCalc          float64
	MinTolerableAmbient float64
}

// newCompartment returns a compartment equilibrated with air at the given
// surface pressure: PN2 = 0.79*(Psurf - PWV), PHe = 0.
func newCompartment(row coefs, surfacePressureMbar int) Compartment {
	surfaceBar := float64(surfacePressureMbar) / 1000.0
	c := Compartment{
		c:   row,
		PN2: gas.AirN2Fraction * (surfaceBar - gas.PWV),
		PHe: 0,
	}
	c.refreshCoefficients()
	c.recomputeMValues(units.NewDepthMeters(0), surfacePressureMbar, 100)
	return c
}

// PTotal is the combined inert-gas tissue pressure.
func (c *Compartment) PTotal() float64 {
	return c.PN2 + c.PHe
}

// refreshCoefficients recomputes the tissue-weighted a/b coefficients.
// If the compartment carries no inert gas at all (only possible before
// the first update), it falls back to the Nitrogen coefficients.
func (c *Compartment) refreshCoefficients() {
	total := c.PTotal()
	if total == 0 {
		c.aw = c.c.n2A
		c.bw = c.c.n2B
		return
	}
	c.aw = (c.c.heA*c.PHe + c.c.n2A*c.PN2) / total
	c.bw = (c.c.heB*c.PHe + c.c.n2B*c.PN2) / total
}

// haldane applies the Haldane tissue-loading equation for one inert
// species over a segment of duration dtMinutes at inspired partial
// pressure pInsp.
func haldane(p, pInsp, dtMinutes, halfTime float64) float64 {
	return p + (pInsp-p)*(1-math.Exp2(-dtMinutes/halfTime))
}

// update performs the Haldane loading update for both inert gases over the
// segment, then refreshes the GF-adjusted M-value fields at the given
// maxGF (a percentage, e.g. 100 for no conservatism). Passing dt=0
// recomputes the M-value fields in place without changing tissue loading.
func (c *Compartment) update(depth units.Depth, dt units.Time, g gas.Gas, surfacePressureMbar int, maxGF float64) {
	dtMinutes := dt.Minutes()
	_, ppHeInsp, ppN2Insp := g.InspiredPartialPressures(depth, surfacePressureMbar)

	c.PHe = haldane(c.PHe, ppHeInsp, dtMinutes, c.c.heHalfTime)
	c.PN2 = haldane(c.PN2, ppN2Insp, dtMinutes, c.c.n2HalfTime)

	c.refreshCoefficients()
	c.recomputeMValues(depth, surfacePressureMbar, maxGF)
}

// recomputeMValues derives MValueRaw, MValueCalc and MinTolerableAmbient
// from the current aw/bw and tissue loading.
func (c *Compartment) recomputeMValues(depth units.Depth, surfacePressureMbar int, maxGF float64) {
	surfaceBar := float64(surfacePressureMbar) / 1000.0
	pAmb := surfaceBar + depth.Meters()/10.0

	g := maxGF / 100.0
	aAdj := c.aw * g
	bAdj := c.bw / (g - g*c.bw + c.bw)

	c.MValueCalc = aAdj + pAmb/bAdj
	c.MinTolerableAmbient = (c.PTotal() - aAdj) * bAdj
	c.MValueRaw = c.aw + pAmb/c.bw
}

// Ceiling returns this compartment's ceiling in metres given its current
// MinTolerableAmbient.
func (c *Compartment) Ceiling(surfacePressureMbar int) units.Depth {
	surfaceBar := float64(surfacePressureMbar) / 1000.0
	return units.NewDepthMeters(math.Max(0, 10*(c.MinTolerableAmbient-surfaceBar)))
}

// ambAtGF returns the ambient pressure (bar) at which this compartment
// would reach gradient g: the GF-low-depth anchor formula.
func (c *Compartment) ambAtGF(g float64) float64 {
	denom := 1 - g + g/c.bw
	return (c.PTotal() - g*c.aw) / denom
}

// Supersaturation returns this compartment's gf99 and gfSurf. Both are
// independent of maxGF: they use MValueRaw, which is always evaluated at
// g=1.
func (c *Compartment) Supersaturation(depth units.Depth, surfacePressureMbar int) (gf99, gfSurf float64) {
	surfaceBar := float64(surfacePressureMbar) / 1000.0
	pAmb := surfaceBar + depth.Meters()/10.0

	mRawAtDepth := c.aw + pAmb/c.bw
	mRawAtSurface := c.aw + surfaceBar/c.bw

	gf99 = math.Max(0, (c.PTotal()-pAmb)/(mRawAtDepth-pAmb)*100)
	gfSurf = math.Max(0, (c.PTotal()-surfaceBar)/(mRawAtSurface-surfaceBar)*100)
	return gf99, gfSurf
}
