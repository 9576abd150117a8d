// Package deco implements the decompression-schedule state machine: the
// ascent/stop/gas-switch loop with stage coalescing. It depends on the
// core engine only through the Engine capability interface below, which
// both describes the seam for future non-Bühlmann engines and avoids an
// import cycle with package zhl.
package deco

import (
	"errors"
	"fmt"

	"github.com/m5lapp/decoplanner/gas"
	"github.com/m5lapp/decoplanner/units"

	"github.com/sirupsen/logrus"
)

// Engine is the subset of a dive-state engine's public surface the planner
// needs. *zhl.Model satisfies it.
type Engine interface {
	Depth() units.Depth
	Gas() gas.Gas
	Time() units.Time
	Ceiling() units.Depth
	InDeco() bool
	Record(d units.Depth, t units.Time, g gas.Gas) error
	RecordTravelWithRate(target units.Depth, rateMPerMin float64, g gas.Gas) error
	Fork() Engine
}

// StageType identifies the kind of a DecoStage.
type StageType int

const (
	Ascent StageType = iota
	DecoStop
	GasSwitch
)

func (t StageType) String() string {
	switch t {
	case Ascent:
		return "Ascent"
	case DecoStop:
		return "DecoStop"
	case GasSwitch:
		return "GasSwitch"
	default:
		return fmt.Sprintf("StageType(%d)", int(t))
	}
}

// Stage is one leg of a decompression schedule.
type Stage struct {
	Type       StageType
	StartDepth units.Depth
	EndDepth   units.Depth
	Duration   units.Time
	Gas        gas.Gas
}

// Runtime is the full result of planning a decompression schedule.
type Runtime struct {
	Stages     []Stage
	TTS        units.Time
	TTSSurface units.Time
	Sim        bool
}

// ErrEmptyGasList is returned when Plan is called with no candidate gases.
var ErrEmptyGasList = errors.New("deco: gas list is empty")

// CurrentGasNotInListError is returned when the engine's current gas is not
// among the candidate gases supplied to Plan.
type CurrentGasNotInListError struct {
	Current gas.Gas
}

func (e *CurrentGasNotInListError) Error() string {
	return fmt.Sprintf("deco: current gas %+v is not in the supplied gas list", e.Current)
}

// maxStages is a defensive hard cap on the planning loop, bounding it
// well beyond any physically plausible dive: time-to-surface plus total
// stop time is finite for any valid starting state, so this cap only
// guards against a programming error making that untrue.
const maxStages = 200000

// stopDepth rounds a ceiling up to the next multiple of 3m, the
// deco-window stop-depth policy.
func stopDepth(ceiling units.Depth) units.Depth {
	c := ceiling.Meters()
	if c <= 0 {
		return units.NewDepthMeters(0)
	}
	n := int(c / 3)
	if float64(n)*3 < c {
		n++
	}
	return units.NewDepthMeters(float64(n) * 3)
}

// bestSwitch finds the best gas-switch candidate at the current depth: the
// gas among `gases` whose O2 partial pressure at depth exceeds the current
// gas's, preferring the smallest fO2 among those (the least-rich
// improvement). Partial pressure at a common depth is fO2*Pamb for every
// candidate, so comparing ppO2 is equivalent to comparing fO2 directly.
func bestSwitch(current gas.Gas, gases []gas.Gas) (gas.Gas, bool) {
	var best gas.Gas
	found := false
	for _, g := range gases {
		if g.FO2 <= current.FO2 {
			continue
		}
		if !found || g.FO2 < best.FO2 {
			best = g
			found = true
		}
	}
	return best, found
}

// appendCoalesced appends s to stages, merging it into the previous stage
// when they share a StageType and Gas and the previous stage's EndDepth
// equals s's StartDepth. Ascent stages are always appended as-is since
// each spans a distinct depth band.
func appendCoalesced(stages []Stage, s Stage) []Stage {
	if s.Type == Ascent {
		return append(stages, s)
	}
	if n := len(stages); n > 0 {
		last := &stages[n-1]
		if last.Type == s.Type && last.Gas == s.Gas && last.EndDepth == s.StartDepth {
			last.Duration = last.Duration.Add(s.Duration)
			last.EndDepth = s.EndDepth
			return stages
		}
	}
	return append(stages, s)
}

// Plan runs the decompression-schedule state machine on an internal fork
// of engine, so the caller's live engine is never mutated.
func Plan(engine Engine, gases []gas.Gas, ascentRateMPerMin float64) (Runtime, error) {
	if len(gases) == 0 {
		return Runtime{}, ErrEmptyGasList
	}

	current := engine.Gas()
	inList := false
	for _, g := range gases {
		if g == current {
			inList = true
			break
		}
	}
	if !inList {
		return Runtime{}, &CurrentGasNotInListError{Current: current}
	}

	sim := engine.Fork()
	var stages []Stage

	for iter := 0; iter < maxStages; iter++ {
		depth := sim.Depth()
		if depth <= 0 {
			break
		}

		ceiling := sim.Ceiling()
		curGas := sim.Gas()
		stop := stopDepth(ceiling)

		switch {
		case ceiling <= 0:
			stages = ascend(sim, stages, units.NewDepthMeters(0), curGas, ascentRateMPerMin)
		case depth < stop:
			stages = ascend(sim, stages, stop, curGas, ascentRateMPerMin)
		default:
			gNext, hasNext := bestSwitch(curGas, gases)
			switch {
			case hasNext && gNext != curGas && depth <= gNext.MOD(gas.SwitchPPO2):
				stages = gasSwitch(sim, stages, gNext, ascentRateMPerMin)
			case depth == stop:
				stages = decoStop(sim, stages, curGas)
			case hasNext && gNext.MOD(gas.SwitchPPO2) >= ceiling:
				stages = gasSwitch(sim, stages, gNext, ascentRateMPerMin)
			default:
				stages = ascend(sim, stages, stop, curGas, ascentRateMPerMin)
			}
		}

		logrus.Debugf("deco: depth=%s ceiling=%s stages=%d", depth, ceiling, len(stages))
	}

	var tts units.Time
	for _, s := range stages {
		tts = tts.Add(s.Duration)
	}

	return Runtime{Stages: stages, TTS: tts, TTSSurface: tts, Sim: true}, nil
}

// ascend travels sim from its current depth to target at the configured
// ascent rate, appending an Ascent stage.
func ascend(sim Engine, stages []Stage, target units.Depth, g gas.Gas, rate float64) []Stage {
	start := sim.Depth()
	t0 := sim.Time()
	if err := sim.RecordTravelWithRate(target, rate, g); err != nil {
		return stages
	}
	duration := sim.Time().Sub(t0)
	return appendCoalesced(stages, Stage{
		Type:       Ascent,
		StartDepth: start,
		EndDepth:   sim.Depth(),
		Duration:   duration,
		Gas:        g,
	})
}

// decoStop holds sim at its current depth for one second, appending a
// (coalesced) DecoStop stage.
func decoStop(sim Engine, stages []Stage, g gas.Gas) []Stage {
	depth := sim.Depth()
	if err := sim.Record(depth, units.NewTimeSeconds(1), g); err != nil {
		return stages
	}
	return appendCoalesced(stages, Stage{
		Type:       DecoStop,
		StartDepth: depth,
		EndDepth:   depth,
		Duration:   units.NewTimeSeconds(1),
		Gas:        g,
	})
}

// gasSwitch swaps sim's breathing gas to next, first ascending to next's
// MOD if sim is currently deeper than that.
func gasSwitch(sim Engine, stages []Stage, next gas.Gas, ascentRateMPerMin float64) []Stage {
	mod := next.MOD(gas.SwitchPPO2)
	if sim.Depth() > mod {
		stages = ascend(sim, stages, mod, sim.Gas(), ascentRateMPerMin)
	}

	depth := sim.Depth()
	if err := sim.Record(depth, units.NewTimeSeconds(0), next); err != nil {
		return stages
	}
	return appendCoalesced(stages, Stage{
		Type:       GasSwitch,
		StartDepth: depth,
		EndDepth:   depth,
		Duration:   units.NewTimeSeconds(0),
		Gas:        next,
	})
}
