package gas

import (
	"math"
	"testing"

	"github.com/m5lapp/decoplanner/units"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		fo2     float64
		fhe     float64
		wantErr bool
	}{
		{"air", 0.21, 0.0, false},
		{"trimix", 0.21, 0.35, false},
		{"fo2 too high", 1.1, 0.0, true},
		{"fhe negative", 0.21, -0.1, true},
		{"sum exceeds one", 0.6, 0.6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fo2, tt.fhe)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%v, %v) error = %v, wantErr %v", tt.fo2, tt.fhe, err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*InvalidGas); !ok {
					t.Errorf("error type = %T, want *InvalidGas", err)
				}
			}
		})
	}
}

func TestFN2Derivation(t *testing.T) {
	g, err := New(0.32, 0.0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if g.FN2 != 0.68 {
		t.Errorf("FN2 = %v, want 0.68", g.FN2)
	}
}

func TestEquality(t *testing.T) {
	a, _ := New(0.21, 0.0)
	b := Air()
	if a != b {
		t.Errorf("Air() and New(0.21,0) should compare equal: %+v vs %+v", a, b)
	}
}

func TestMOD(t *testing.T) {
	g, _ := NewNitrox(0.32)
	got := g.MOD(1.4)
	want := units.NewDepthMeters(10.0 * (1.4/0.32 - 1.0))
	if !almostEqual(got.Meters(), want.Meters()) {
		t.Errorf("MOD() = %v, want %v", got, want)
	}
}

func TestEquivalentNarcoticDepth(t *testing.T) {
	air := Air()
	// Air's END at any depth should equal that depth exactly (fHe=0).
	got := air.EquivalentNarcoticDepth(units.NewDepthMeters(30))
	if !almostEqual(got.Meters(), 30) {
		t.Errorf("air END(30) = %v, want 30", got)
	}

	trimix, _ := NewTrimix(0.21, 0.35)
	got = trimix.EquivalentNarcoticDepth(units.NewDepthMeters(40))
	want := (40.0+10.0)*(1.0-0.35) - 10.0
	if !almostEqual(got.Meters(), want) {
		t.Errorf("trimix END(40) = %v, want %v", got, want)
	}
}

func TestPartialPressures(t *testing.T) {
	air := Air()
	ppO2, ppHe, ppN2 := air.PartialPressures(units.NewDepthMeters(30), 1013)
	amb := 1.013 + 3.0
	if !almostEqual(ppO2, 0.21*amb) || ppHe != 0 || !almostEqual(ppN2, 0.79*amb) {
		t.Errorf("PartialPressures() = (%v,%v,%v)", ppO2, ppHe, ppN2)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}
