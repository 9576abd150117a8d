// Package gas implements immutable breathing-gas mixtures and the
// partial-pressure/MOD/END queries the decompression engine needs.
// fO2+fHe+fN2 always sums to exactly 1, with fN2 rounded to four decimal
// places, so two mixtures compare equal by plain struct equality.
package gas

import (
	"fmt"
	"math"

	"github.com/m5lapp/decoplanner/units"
)

// PWV is the alveolar water-vapour pressure at 37°C, in bar.
const PWV = 0.0627

// AirN2Fraction is the fraction of Nitrogen in atmospheric air.
const AirN2Fraction = 0.79

// SwitchPPO2 is the ppO2 (bar) used when computing a gas-switch MOD in the
// deco planner.
const SwitchPPO2 = 1.6

// InvalidGas is returned when a gas mixture's fractions violate the
// invariant 0 ≤ fO2,fHe ≤ 1 and fO2+fHe ≤ 1.
type InvalidGas struct {
	FO2    float64
	FHe    float64
	Reason string
}

func (e *InvalidGas) Error() string {
	return fmt.Sprintf("gas: invalid mix (fO2=%.4f, fHe=%.4f): %s", e.FO2, e.FHe, e.Reason)
}

// Gas is an immutable breathing-gas mixture. fN2 is always derived from fO2
// and fHe so that the three fractions sum to exactly 1 (to four decimal
// places).
type Gas struct {
	FO2 float64
	FHe float64
	FN2 float64
}

// New constructs a Gas, validating that both fractions lie in [0,1] and
// their sum does not exceed 1.
func New(fo2, fhe float64) (Gas, error) {
	if fo2 < 0 || fo2 > 1 {
		return Gas{}, &InvalidGas{FO2: fo2, FHe: fhe, Reason: "fO2 out of [0,1]"}
	}
	if fhe < 0 || fhe > 1 {
		return Gas{}, &InvalidGas{FO2: fo2, FHe: fhe, Reason: "fHe out of [0,1]"}
	}
	if fo2+fhe > 1 {
		return Gas{}, &InvalidGas{FO2: fo2, FHe: fhe, Reason: "fO2+fHe exceeds 1"}
	}

	fn2 := math.Round((1.0-fo2-fhe)*10000) / 10000
	return Gas{FO2: fo2, FHe: fhe, FN2: fn2}, nil
}

// Air is the canonical pure-air mix.
func Air() Gas {
	g, _ := New(0.21, 0.0)
	return g
}

// NewNitrox constructs a Nitrox mix with the given fO2; fHe is zero.
func NewNitrox(fo2 float64) (Gas, error) {
	return New(fo2, 0.0)
}

// NewTrimix constructs a Trimix mix with the given fO2 and fHe.
func NewTrimix(fo2, fhe float64) (Gas, error) {
	return New(fo2, fhe)
}

// NewHeliox constructs a Heliox mix with the given fO2; fHe is derived.
func NewHeliox(fo2 float64) (Gas, error) {
	return New(fo2, 1.0-fo2)
}

// ambientBar returns the absolute ambient pressure in bar at the given
// depth and surface pressure (mbar).
func ambientBar(depth units.Depth, surfacePressureMbar int) float64 {
	return float64(surfacePressureMbar)/1000.0 + depth.Meters()/10.0
}

// PartialPressures returns the ambient partial pressures (bar) of O2, He and
// N2 for this mix at the given depth and surface pressure.
func (g Gas) PartialPressures(depth units.Depth, surfacePressureMbar int) (ppO2, ppHe, ppN2 float64) {
	amb := ambientBar(depth, surfacePressureMbar)
	return g.FO2 * amb, g.FHe * amb, g.FN2 * amb
}

// InspiredPartialPressures is like PartialPressures but subtracts the
// alveolar water-vapour pressure from the ambient pressure first, as air is
// humidified in the lungs.
func (g Gas) InspiredPartialPressures(depth units.Depth, surfacePressureMbar int) (ppO2, ppHe, ppN2 float64) {
	amb := ambientBar(depth, surfacePressureMbar) - PWV
	return g.FO2 * amb, g.FHe * amb, g.FN2 * amb
}

// MOD returns the Maximum Operating Depth in metres for the given ppO2
// limit (bar).
func (g Gas) MOD(ppO2Limit float64) units.Depth {
	return units.NewDepthMeters(10.0 * (ppO2Limit/g.FO2 - 1.0))
}

// EquivalentNarcoticDepth returns the depth in metres at which air would
// produce the same narcotic effect as this mix at depth d. Oxygen is
// treated as narcotic along with Nitrogen (the conservative convention);
// Helium is treated as non-narcotic.
func (g Gas) EquivalentNarcoticDepth(d units.Depth) units.Depth {
	end := (d.Meters()+10.0)*(1.0-g.FHe) - 10.0
	return units.NewDepthMeters(math.Max(0, end))
}
