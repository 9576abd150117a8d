package zhl

import (
	"math"
	"testing"

	"github.com/m5lapp/decoplanner/config"
	"github.com/m5lapp/decoplanner/gas"
	"github.com/m5lapp/decoplanner/units"
)

func newModel(t *testing.T, gfLow, gfHigh int) *Model {
	t.Helper()
	cfg := config.Default()
	cfg.GradientFactors = config.GradientFactors{Low: gfLow, High: gfHigh}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func withinPercent(got, want, pct float64) bool {
	tol := math.Abs(want) * pct / 100.0
	return math.Abs(got-want) <= tol
}

func withinAbs(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

// S1 — GF 100/100, air: record(40m,30min) then record(30m,30min) => ceiling ~7.80m.
func TestScenarioS1Ceiling(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()

	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(30), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(30), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got := m.Ceiling().Meters()
	if !withinPercent(got, 7.80, 0.5) {
		t.Errorf("ceiling = %v, want ~7.80 (±0.5%%)", got)
	}
}

// S2 — GF 100/100, air at 50m for 20min: gfSurf ~193.86; then record(40m,10min): gfSurf ~208.00.
func TestScenarioS2Supersaturation(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()

	if err := m.Record(units.NewDepthMeters(50), units.NewTimeMinutes(20), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ss := m.Supersaturation()
	if !withinAbs(ss.GFSurf, 193.86, 0.1) {
		t.Errorf("gfSurf after first segment = %v, want ~193.86", ss.GFSurf)
	}

	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(10), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ss = m.Supersaturation()
	if !withinAbs(ss.GFSurf, 208.00, 0.1) {
		t.Errorf("gfSurf after second segment = %v, want ~208.00", ss.GFSurf)
	}
}

// S3 — GF 100/100, air at 30m: NDL progression, then EAN28 switch.
func TestScenarioS3NDLProgression(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()

	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(0), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := m.NDL().Minutes(); got != 16 {
		t.Errorf("initial NDL at 30m = %v, want 16", got)
	}

	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(1), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := m.NDL().Minutes(); got != 15 {
		t.Errorf("NDL after 1 min = %v, want 15", got)
	}

	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(9), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := m.NDL().Minutes(); got != 6 {
		t.Errorf("NDL after 10 min total = %v, want 6", got)
	}

	ean28, err := gas.NewNitrox(0.28)
	if err != nil {
		t.Fatalf("NewNitrox() error = %v", err)
	}
	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(0), ean28); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := m.NDL().Minutes(); got != 10 {
		t.Errorf("NDL after EAN28 switch = %v, want 10", got)
	}
}

// S4 — GF 30/70, air 40m/40min + 30m/3min + EAN50 21m/10min => ceiling ~12.46m.
func TestScenarioS4Ceiling(t *testing.T) {
	m := newModel(t, 30, 70)
	air := gas.Air()
	ean50, err := gas.NewNitrox(0.50)
	if err != nil {
		t.Fatalf("NewNitrox() error = %v", err)
	}

	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(40), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(3), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := m.Record(units.NewDepthMeters(21), units.NewTimeMinutes(10), ean50); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got := m.Ceiling().Meters()
	if !withinAbs(got, 12.46, 0.01) {
		t.Errorf("ceiling = %v, want ~12.46 (±0.01)", got)
	}
}

// S7 — GF 100/100, air surface record(0,0) => gf99=gfSurf=0, NDL=99; record(10m,10min) still NDL=99.
func TestScenarioS7Surface(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()

	if err := m.Record(units.NewDepthMeters(0), units.NewTimeMinutes(0), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ss := m.Supersaturation()
	if !withinAbs(ss.GF99, 0, 1e-6) || !withinAbs(ss.GFSurf, 0, 1e-6) {
		t.Errorf("surface supersaturation = %+v, want all zero", ss)
	}
	if got := m.NDL().Minutes(); got != 99 {
		t.Errorf("surface NDL = %v, want 99", got)
	}

	if err := m.Record(units.NewDepthMeters(10), units.NewTimeMinutes(10), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := m.NDL().Minutes(); got != 99 {
		t.Errorf("NDL after shallow 10m/10min segment = %v, want 99", got)
	}
}

// P1 — non-negativity of tissue pressures.
func TestInvariantNonNegativePressures(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()
	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(25), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for i, tp := range m.TissuePressures() {
		if tp.N2 < 0 || tp.He < 0 {
			t.Errorf("compartment %d has negative pressure: %+v", i, tp)
		}
		if !withinAbs(tp.Total, tp.N2+tp.He, 1e-9) {
			t.Errorf("compartment %d PTotal != PN2+PHe: %+v", i, tp)
		}
	}
}

// P2 — a resting surface interval on air strictly decreases every
// over-saturated compartment's total tissue pressure.
func TestInvariantSurfaceOffGassing(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()
	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(30), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	before := m.TissuePressures()

	if err := m.Record(units.NewDepthMeters(0), units.NewTimeMinutes(60), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	after := m.TissuePressures()

	surfaceN2 := gas.AirN2Fraction * (float64(m.Config.SurfacePressureMbar)/1000.0 - gas.PWV)
	for i := range before {
		if before[i].Total > surfaceN2 && after[i].Total >= before[i].Total {
			t.Errorf("compartment %d did not off-gas: before=%v after=%v", i, before[i].Total, after[i].Total)
		}
	}
}

// P3 — subdivision equivalence: record(d,dt,g) == n subdivisions of
// record(d,dt/n,g), to integer-metre ceiling precision.
func TestInvariantSubdivisionEquivalence(t *testing.T) {
	for _, n := range []int{1, 60} {
		whole := newModel(t, 100, 100)
		air := gas.Air()
		if err := whole.Record(units.NewDepthMeters(40), units.NewTimeMinutes(30), air); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		subdivided := newModel(t, 100, 100)
		sub := units.NewTimeMinutes(30.0 / float64(n))
		for i := 0; i < n; i++ {
			if err := subdivided.Record(units.NewDepthMeters(40), sub, air); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}

		wantCeil := math.Round(whole.Ceiling().Meters())
		gotCeil := math.Round(subdivided.Ceiling().Meters())
		if wantCeil != gotCeil {
			t.Errorf("n=%d: ceiling(n subdivisions)=%v, ceiling(whole)=%v", n, gotCeil, wantCeil)
		}
	}
}

// P4 — ceiling is never negative.
func TestInvariantCeilingNonNegative(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()
	if err := m.Record(units.NewDepthMeters(5), units.NewTimeMinutes(5), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if m.Ceiling().Meters() < 0 {
		t.Errorf("ceiling = %v, want >= 0", m.Ceiling().Meters())
	}
}

// P8 — idempotent gas switch at depth.
func TestInvariantIdempotentGasSwitch(t *testing.T) {
	ean32, err := gas.NewNitrox(0.32)
	if err != nil {
		t.Fatalf("NewNitrox() error = %v", err)
	}

	once := newModel(t, 100, 100)
	if err := once.Record(units.NewDepthMeters(20), units.NewTimeMinutes(0), ean32); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	twice := newModel(t, 100, 100)
	if err := twice.Record(units.NewDepthMeters(20), units.NewTimeMinutes(0), ean32); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := twice.Record(units.NewDepthMeters(20), units.NewTimeMinutes(0), ean32); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for i := range once.Compartments {
		a, b := once.Compartments[i], twice.Compartments[i]
		if a.PN2 != b.PN2 || a.PHe != b.PHe {
			t.Errorf("compartment %d differs after idempotent switch: %+v vs %+v", i, a, b)
		}
	}
}

func TestRecordRejectsOutOfRangeDepth(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()

	if err := m.Record(units.NewDepthMeters(-1), units.NewTimeMinutes(1), air); err == nil {
		t.Error("expected DepthError for negative depth")
	} else if _, ok := err.(*DepthError); !ok {
		t.Errorf("error type = %T, want *DepthError", err)
	}

	if err := m.Record(units.NewDepthMeters(201), units.NewTimeMinutes(1), air); err == nil {
		t.Error("expected DepthError for depth > 200m")
	}
}

func TestForkDoesNotMutateParent(t *testing.T) {
	m := newModel(t, 100, 100)
	air := gas.Air()
	if err := m.Record(units.NewDepthMeters(30), units.NewTimeMinutes(20), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	before := m.State.Depth
	beforeCNS := m.CNS()

	fork := m.fork()
	if !fork.Simulated {
		t.Error("fork should be marked simulated")
	}
	if err := fork.Record(units.NewDepthMeters(40), units.NewTimeMinutes(10), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if m.State.Depth != before {
		t.Errorf("parent depth mutated by fork: %v != %v", m.State.Depth, before)
	}
	if m.CNS() != beforeCNS {
		t.Errorf("parent CNS mutated by fork: %v != %v", m.CNS(), beforeCNS)
	}
}

func TestAdaptiveCeilingNeverExceedsActual(t *testing.T) {
	cfg := config.Default()
	cfg.CeilingType = config.Adaptive
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	air := gas.Air()
	if err := m.Record(units.NewDepthMeters(40), units.NewTimeMinutes(30), air); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	adaptive := m.Ceiling().Meters()
	actual := m.actualCeiling().Meters()
	if adaptive > actual+1e-9 {
		t.Errorf("adaptive ceiling %v should never exceed actual ceiling %v", adaptive, actual)
	}
}
