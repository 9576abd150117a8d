// Package oxtox implements oxygen-toxicity exposure tracking: a CNS
// percentage accumulator driven by the NOAA piecewise-linear rate table,
// and an OTU accumulator. It is an external collaborator the engine
// drives on every non-simulated segment.
package oxtox

import "math"

// segment is one row of the NOAA CNS rate table: the rate at a given ppO2
// is slope*ppO2 + intercept, valid over [lo, hi] bar.
type segment struct {
	lo, hi, slope, intercept float64
}

var cnsTable = []segment{
	{0.5, 0.6, -1800, 1800},
	{0.6, 0.7, -1500, 1620},
	{0.7, 0.8, -1200, 1410},
	{0.8, 0.9, -900, 1170},
	{0.9, 1.1, -600, 900},
	{1.1, 1.5, -300, 570},
	{1.5, 1.65, -750, 1245},
}

// otuThreshold is the ppO2 (bar) above which OTU accumulates.
const otuThreshold = 0.5

// Tracker accumulates CNS and OTU exposure across a dive. The zero value is
// a tracker for a diver freshly equilibrated at the surface.
type Tracker struct {
	CNS float64 // percent
	OTU float64
}

// AddExposure accumulates CNS and OTU for `minutes` minutes spent at the
// given inspired ppO2 (bar), per the NOAA table and OTU power law. ppO2
// below 0.5 bar contributes nothing; ppO2 above 1.65 bar uses the last
// table row's coefficients.
func (t *Tracker) AddExposure(ppO2, minutes float64) {
	if minutes <= 0 {
		return
	}

	if ppO2 > otuThreshold {
		t.OTU += math.Pow((ppO2-otuThreshold)/otuThreshold, 0.83) * minutes
	}

	if ppO2 < cnsTable[0].lo {
		return
	}

	seg := cnsTable[len(cnsTable)-1]
	for _, s := range cnsTable {
		if ppO2 >= s.lo && ppO2 <= s.hi {
			seg = s
			break
		}
	}
	rate := seg.slope*ppO2 + seg.intercept
	t.CNS += minutes / rate
}

// Clone returns a value copy of the tracker for use in a forked model.
func (t Tracker) Clone() Tracker {
	return t
}
