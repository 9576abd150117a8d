package zhl

import "github.com/m5lapp/decoplanner/units"

// NDLCutoff is the bottom-time cap beyond which NDL is reported as simply
// "at the cutoff".
const NDLCutoff = 99

// NDL computes the no-decompression limit by forward-simulating the
// current depth and gas minute by minute on a fork until a decompression
// obligation appears. Config.NDLType's two variants are observably
// identical in this implementation — see DESIGN.md.
func (m *Model) NDL() units.Time {
	if m.InDeco() {
		return units.NewTimeMinutes(0)
	}

	fork := m.fork()
	depth := fork.State.Depth
	g := fork.State.Gas

	for i := 0; i < NDLCutoff; i++ {
		if err := fork.Record(depth, units.NewTimeMinutes(1), g); err != nil {
			break
		}
		if fork.InDeco() {
			return units.NewTimeMinutes(float64(i))
		}
	}

	return units.NewTimeMinutes(NDLCutoff)
}
