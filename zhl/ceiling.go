package zhl

import (
	"math"

	"github.com/m5lapp/decoplanner/config"
	"github.com/m5lapp/decoplanner/units"

	"github.com/sirupsen/logrus"
)

// maxAdaptiveIterations is the hard cap on the adaptive-ceiling fixed-point
// loop.
const maxAdaptiveIterations = 50

// Ceiling returns the current decompression ceiling. A simulated fork
// always uses the actual ceiling, regardless of CeilingType, to prevent
// adaptive-ceiling recursion.
func (m *Model) Ceiling() units.Depth {
	if m.Simulated {
		return m.actualCeiling()
	}

	switch m.Config.CeilingType {
	case config.Actual:
		return m.actualCeiling()
	case config.Adaptive:
		return m.adaptiveCeiling()
	default:
		// Unreachable in practice: config.Validate rejects any other
		// CeilingType at Model construction time. Guarded again here
		// since Ceiling()'s public signature has no error return to
		// surface it through.
		logrus.Errorf("zhl: unsupported ceiling type %v, falling back to actual", m.Config.CeilingType)
		return m.actualCeiling()
	}
}

// actualCeiling is the leading compartment's ceiling, optionally rounded up
// to the next whole metre.
func (m *Model) actualCeiling() units.Depth {
	lead := m.leadingCompartmentIndex()
	c := m.Compartments[lead].Ceiling(m.Config.SurfacePressureMbar)
	if m.Config.RoundCeiling {
		c = units.NewDepthMeters(math.Ceil(c.Meters()))
	}
	return c
}

// adaptiveCeiling iterates a forked ascent simulation to find a ceiling
// that accounts for off-gassing during the ascent itself. The fork it
// operates on always uses the actual ceiling internally
// (Ceiling() forces that when Simulated is set).
func (m *Model) adaptiveCeiling() units.Depth {
	fork := m.fork()
	c := fork.actualCeiling()

	for i := 0; i < maxAdaptiveIterations; i++ {
		if fork.State.Depth <= 0 || fork.State.Depth <= c {
			break
		}
		if err := fork.RecordTravelWithRate(c, m.Config.DecoAscentRateMPerM, fork.State.Gas); err != nil {
			break
		}
		c = fork.actualCeiling()
	}

	return c
}

// InDeco reports whether the diver currently has a mandatory decompression
// obligation, i.e. the actual ceiling is positive. This uses the actual
// ceiling regardless of CeilingType, since "in deco" is a physical fact
// about the tissue loading, not a display-conservatism choice.
func (m *Model) InDeco() bool {
	return m.actualCeiling() > 0
}
