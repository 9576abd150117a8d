// Package zhl implements the sixteen-compartment Bühlmann ZH-L16C
// inert-gas integrator, the gradient-factor-sloped ceiling derivation, the
// NDL forward simulator, and the Model type that owns all of it.
package zhl

import (
	"fmt"

	"github.com/m5lapp/decoplanner/config"
	"github.com/m5lapp/decoplanner/deco"
	"github.com/m5lapp/decoplanner/gas"
	"github.com/m5lapp/decoplanner/oxtox"
	"github.com/m5lapp/decoplanner/units"
)

// MaxRecordDepth is the deepest depth a caller may record.
const MaxRecordDepth = 200

// DepthError is returned when a recorded depth falls outside [0, 200]m.
type DepthError struct {
	Depth units.Depth
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("zhl: depth %s out of range [0,%dm]", e.Depth, MaxRecordDepth)
}

// DiveState is the live dive-state carried by a Model: current depth,
// cumulative time, current gas, an optional cached GF-low depth, and the
// oxygen-toxicity tracker.
type DiveState struct {
	Depth      units.Depth
	Time       units.Time
	Gas        gas.Gas
	gfLowDepth *float64
	OxTox      oxtox.Tracker
}

// Model owns the configuration, the sixteen compartments, the live dive
// state, and the simulated flag that marks fork()ed copies.
type Model struct {
	Config       config.Config
	Compartments [CompartmentCount]Compartment
	State        DiveState
	Simulated    bool
}

// New constructs a Model with compartments equilibrated to air at the
// configured surface pressure. The configuration is validated once, here.
func New(cfg config.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Model{Config: cfg}
	for i := range m.Compartments {
		m.Compartments[i] = newCompartment(zhl16c[i], cfg.SurfacePressureMbar)
	}
	m.State.Gas = gas.Air()
	return m, nil
}

// Depth returns the model's current depth (part of the deco.Engine
// capability set).
func (m *Model) Depth() units.Depth { return m.State.Depth }

// Gas returns the model's current breathing gas.
func (m *Model) Gas() gas.Gas { return m.State.Gas }

// Time returns the model's cumulative elapsed dive time.
func (m *Model) Time() units.Time { return m.State.Time }

// Record updates every compartment's inert-gas loading for a segment of
// duration dt at depth d breathing gas g, then re-derives the ceiling
// fields and (unless this Model is a simulated fork) feeds exposure to the
// oxygen-toxicity tracker.
func (m *Model) Record(d units.Depth, dt units.Time, g gas.Gas) error {
	if d < 0 || d.Meters() > MaxRecordDepth {
		return &DepthError{Depth: d}
	}
	m.recordSegment(d, dt, g)
	return nil
}

// RecordTravel discretises a transition to targetDepth over dt into
// one-second steps, linearly interpolating depth.
func (m *Model) RecordTravel(targetDepth units.Depth, dt units.Time, g gas.Gas) error {
	if targetDepth < 0 || targetDepth.Meters() > MaxRecordDepth {
		return &DepthError{Depth: targetDepth}
	}

	totalSeconds := dt.Seconds()
	if totalSeconds <= 0 {
		return m.Record(targetDepth, dt, g)
	}

	steps := int(totalSeconds + 0.5)
	startDepth := m.State.Depth
	ratePerSecond := (targetDepth.Meters() - startDepth.Meters()) / totalSeconds

	for i := 1; i <= steps; i++ {
		next := units.NewDepthMeters(startDepth.Meters() + ratePerSecond*float64(i))
		if i == steps {
			next = targetDepth
		}
		if err := m.Record(next, units.NewTimeSeconds(1), g); err != nil {
			return err
		}
	}
	return nil
}

// RecordTravelWithRate derives the transition duration from a rate in
// metres/minute (always positive; direction is derived from the
// start/target depths) and delegates to RecordTravel.
func (m *Model) RecordTravelWithRate(targetDepth units.Depth, rateMPerMin float64, g gas.Gas) error {
	distance := targetDepth.Meters() - m.State.Depth.Meters()
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 {
		return m.Record(targetDepth, units.NewTimeSeconds(0), g)
	}
	dtMinutes := distance / rateMPerMin
	return m.RecordTravel(targetDepth, units.NewTimeMinutes(dtMinutes), g)
}

// recordSegment loads every compartment at the high gradient factor, then
// re-derives the leading compartment's M-value at the sloped gradient
// factor for the current ceiling, without advancing tissue loading again.
func (m *Model) recordSegment(depth units.Depth, dt units.Time, g gas.Gas) {
	gfHigh := float64(m.Config.GradientFactors.High)

	for i := range m.Compartments {
		m.Compartments[i].update(depth, dt, g, m.Config.SurfacePressureMbar, gfHigh)
	}

	leadIdx := m.leadingCompartmentIndex()
	ceilingAtHigh := m.Compartments[leadIdx].Ceiling(m.Config.SurfacePressureMbar)

	if m.Config.GradientFactors.Low != m.Config.GradientFactors.High {
		maxGF := m.slopedMaxGF(depth, ceilingAtHigh)
		m.Compartments[leadIdx].update(depth, units.NewTimeSeconds(0), g, m.Config.SurfacePressureMbar, maxGF)
	}

	if ceilingAtHigh <= 0 {
		m.State.gfLowDepth = nil
	}

	if !m.Simulated {
		ppO2, _, _ := g.InspiredPartialPressures(depth, m.Config.SurfacePressureMbar)
		m.State.OxTox.AddExposure(ppO2, dt.Minutes())
	}

	m.State.Depth = depth
	m.State.Time = m.State.Time.Add(dt)
	m.State.Gas = g
}

// leadingCompartmentIndex returns the index of the leading compartment:
// the one with the greatest minimum tolerable ambient pressure.
func (m *Model) leadingCompartmentIndex() int {
	lead := 0
	for i := 1; i < CompartmentCount; i++ {
		if m.Compartments[i].MinTolerableAmbient > m.Compartments[lead].MinTolerableAmbient {
			lead = i
		}
	}
	return lead
}

// Fork returns a value-semantic deep copy of the model, marked simulated,
// for use by read-only queries. It satisfies deco.Engine so the deco
// package never needs to import zhl.
func (m *Model) Fork() deco.Engine {
	return m.fork()
}

func (m *Model) fork() *Model {
	clone := &Model{
		Config:       m.Config,
		Compartments: m.Compartments,
		State:        m.State,
		Simulated:    true,
	}
	if m.State.gfLowDepth != nil {
		d := *m.State.gfLowDepth
		clone.State.gfLowDepth = &d
	}
	clone.State.OxTox = m.State.OxTox.Clone()
	return clone
}

// CNS returns the accumulated central-nervous-system oxygen-toxicity
// exposure.
func (m *Model) CNS() float64 { return m.State.OxTox.CNS }

// OTU returns the accumulated oxygen-tolerance-unit exposure.
func (m *Model) OTU() float64 { return m.State.OxTox.OTU }

// TissuePressure is one compartment's inert-gas loading snapshot.
type TissuePressure struct {
	N2    float64
	He    float64
	Total float64
}

// TissuePressures returns the N2/He/total tissue pressures of every
// compartment, in bar.
func (m *Model) TissuePressures() []TissuePressure {
	out := make([]TissuePressure, CompartmentCount)
	for i := range m.Compartments {
		out[i] = TissuePressure{
			N2:    m.Compartments[i].PN2,
			He:    m.Compartments[i].PHe,
			Total: m.Compartments[i].PTotal(),
		}
	}
	return out
}

// Supersaturation is one compartment's current gf99/gfSurf.
type Supersaturation struct {
	GF99   float64
	GFSurf float64
}

// SupersaturationAll returns gf99/gfSurf for every compartment.
func (m *Model) SupersaturationAll() []Supersaturation {
	out := make([]Supersaturation, CompartmentCount)
	for i := range m.Compartments {
		gf99, gfSurf := m.Compartments[i].Supersaturation(m.State.Depth, m.Config.SurfacePressureMbar)
		out[i] = Supersaturation{GF99: gf99, GFSurf: gfSurf}
	}
	return out
}

// Supersaturation returns the maximum gf99/gfSurf across all compartments.
func (m *Model) Supersaturation() Supersaturation {
	all := m.SupersaturationAll()
	max := all[0]
	for _, s := range all[1:] {
		if s.GF99 > max.GF99 {
			max.GF99 = s.GF99
		}
		if s.GFSurf > max.GFSurf {
			max.GFSurf = s.GFSurf
		}
	}
	return max
}

// Deco synthesizes a full decompression schedule over the given gas list.
// It always runs on an internally-created fork.
func (m *Model) Deco(gases []gas.Gas) (deco.Runtime, error) {
	return deco.Plan(m, gases, m.Config.DecoAscentRateMPerM)
}
