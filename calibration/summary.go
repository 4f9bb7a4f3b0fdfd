package calibration

import "github.com/samber/lo"

// MethodTally accumulates the distinct bad-pixel-method bytes observed
// across every line of a run, for the end-of-run summary.
type MethodTally struct {
	seen []uint8
}

// Observe folds one line's non-zero BadPixMethod bytes into the running
// distinct-value set.
func (m *MethodTally) Observe(methodBytes []uint8) {
	if methodBytes == nil {
		return
	}
	nonZero := make([]uint8, 0, len(methodBytes))
	for _, b := range methodBytes {
		if b != 0 {
			nonZero = append(nonZero, b)
		}
	}
	if len(nonZero) == 0 {
		return
	}
	m.seen = lo.Union(m.seen, nonZero)
}

// Distinct returns the distinct non-zero method bytes observed so far.
func (m *MethodTally) Distinct() []uint8 {
	return m.seen
}
