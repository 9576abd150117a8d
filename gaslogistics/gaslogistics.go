// Package gaslogistics is a trip-planning layer built on top of the core
// decompression engine: SAC-rate gas consumption, rule-of-thirds reserve
// planning, and minimum-gas-for-an-emergency-ascent, generalized to
// consume a deco.Runtime instead of a flat list of manually-entered
// stops.
package gaslogistics

import (
	"github.com/m5lapp/decoplanner/deco"
	"github.com/m5lapp/decoplanner/gas"
	"github.com/m5lapp/decoplanner/units"
)

// Common dive-factor multipliers: a simple conservatism multiplier
// applied to a diver's surface air consumption rate to account for
// elevated breathing under stress.
const (
	DiveFactorEasy          = 1.5
	DiveFactorModerate      = 1.8
	DiveFactorTough         = 2.0
	DiveFactorStressful     = 2.5
	DiveFactorSeriousStress = 3.0
)

// SafetyStopDepth is the default depth held for MinimumGas's safety-stop
// allowance.
const SafetyStopDepth units.Depth = 5.0

// buddyMultiplier doubles the minimum-gas reserve to account for sharing
// air with a buddy (or, for a solo diver, carrying two independent gas
// sources).
const buddyMultiplier = 2.0

// ambientBar converts a depth to absolute pressure in bar, taking a
// nominal 1 bar surface pressure (independent of whatever surface
// pressure the dive engine itself was configured with — gas-volume
// planning is done at a nominal sea-level reference).
func ambientBar(d units.Depth) float64 {
	return d.Meters()/10.0 + 1.0
}

// GasPlan describes a diver's equipment and consumption assumptions for a
// single dive.
type GasPlan struct {
	Gas             gas.Gas
	SACRate         float64 // litres/minute at the surface
	DiveFactor      float64 // conservatism multiplier, see the DiveFactor* constants
	TankCount       int
	TankCapacity    float64 // litres water capacity per tank
	WorkingPressure int     // bar
	AscentRateMPerM float64
}

// GasAvailable returns the total amount of gas available across all tanks.
func (p GasPlan) GasAvailable() float64 {
	return float64(p.TankCount) * p.TankCapacity * float64(p.WorkingPressure)
}

// MinimumGas returns the gas required to get two divers (or a solo diver
// with two independent sources) to the surface in an emergency from the
// given maximum depth, including a safety stop.
func (p GasPlan) MinimumGas(maxDepth units.Depth) float64 {
	maxPressure := ambientBar(maxDepth)
	avgPressure := ambientBar(units.NewDepthMeters(maxDepth.Meters() / 2.0))
	stopPressure := ambientBar(SafetyStopDepth)
	ascentMinutes := maxDepth.Meters() / p.AscentRateMPerM

	elevatedSAC := p.SACRate * p.DiveFactor * buddyMultiplier * 1.5

	preparationGas := 1.0 * maxPressure * elevatedSAC
	ascentGas := ascentMinutes * avgPressure * elevatedSAC
	stopGas := 3.0 * stopPressure * elevatedSAC

	return preparationGas + ascentGas + stopGas
}

// WorkingGas is the gas available once the minimum-gas reserve has been
// set aside in every tank.
func (p GasPlan) WorkingGas(maxDepth units.Depth) float64 {
	return p.GasAvailable() - p.MinimumGas(maxDepth)*float64(p.TankCount)
}

// ProfileGas returns the amount of gas required to breathe the given
// decompression runtime at this plan's SAC rate and dive factor, applying
// the rule of thirds (one third out, one third back, one third in
// reserve).
func (p GasPlan) ProfileGas(runtime deco.Runtime) float64 {
	var total float64
	for _, s := range runtime.Stages {
		avgDepth := units.NewDepthMeters((s.StartDepth.Meters() + s.EndDepth.Meters()) / 2.0)
		pressure := ambientBar(avgDepth)
		total += pressure * p.SACRate * p.DiveFactor * s.Duration.Minutes()
	}
	return total * 1.5
}

// GasSpare is the gas remaining once MinimumGas and ProfileGas have both
// been accounted for.
func (p GasPlan) GasSpare(maxDepth units.Depth, runtime deco.Runtime) float64 {
	return p.WorkingGas(maxDepth) - p.ProfileGas(runtime)
}
