package calibration

import (
	"fmt"

	"github.com/arsf-go/hyperspec/sensor"
)

// maxWrapDrop bounds how many dropped frames a 16-bit counter
// wraparound may hide before the jump stops looking like a wrap and
// starts looking like corruption: a signed decrease in
// (-MaxFrameCounter, -MaxFrameCounter+maxWrapDrop] is read as a wrap,
// any other non-positive change is fatal.
const maxWrapDrop = 3

// frameIncrease returns the signed frame-counter change from raw line a
// to raw line b, or an error when the change is non-positive outside
// the wraparound window.
func frameIncrease(a, b uint16) (int, error) {
	jump := int(b) - int(a)
	switch {
	case jump >= 1:
		return jump, nil
	case jump > -sensor.MaxFrameCounter && jump <= -sensor.MaxFrameCounter+maxWrapDrop:
		return jump + sensor.MaxFrameCounter, nil
	default:
		return 0, fmt.Errorf("%w: counter changed by %d", ErrFrameCounterJump, jump)
	}
}

// MissingFramesBetween counts the total number of dropped scans implied
// by frame-counter jumps across raw lines [lo, hi).
func MissingFramesBetween(counterAt func(line int) uint16, lo, hi int) (int, error) {
	missing := 0
	for line := lo; line < hi; line++ {
		jump, err := frameIncrease(counterAt(line), counterAt(line+1))
		if err != nil {
			return 0, fmt.Errorf("between raw lines %d and %d: %w", line, line+1, err)
		}
		missing += jump - 1
	}
	return missing, nil
}

// NumCalibratedLines returns the output line count for a run over
// [startLine, endLine) of raw lines, accounting for dropped-scan
// insertion when requested.
func NumCalibratedLines(counterAt func(line int) uint16, startLine, endLine int, insertMissing bool) (int, error) {
	n := endLine - startLine
	if insertMissing {
		missing, err := MissingFramesBetween(counterAt, startLine, endLine-1)
		if err != nil {
			return 0, err
		}
		n += missing
	}
	return n, nil
}

// StepKind distinguishes a real calibrated line from an inserted
// placeholder for a dropped scan.
type StepKind int

const (
	StepRaw StepKind = iota
	StepDropped
)

// Step is one output line of a run with dropped-scan insertion enabled:
// either a real raw line to calibrate, or a placeholder to emit as-is.
type Step struct {
	Kind    StepKind
	RawLine int // valid when Kind == StepRaw
}

// BuildLinePlan walks [startLine, endLine) of raw lines and produces the
// output line sequence, inserting one StepDropped per missing frame
// wherever the frame counter jumps by more than 1 between consecutive
// raw lines. A counter change that is neither a positive jump nor a
// wraparound aborts the run.
func BuildLinePlan(counterAt func(line int) uint16, startLine, endLine int) ([]Step, error) {
	var plan []Step
	for line := startLine; line < endLine; line++ {
		plan = append(plan, Step{Kind: StepRaw, RawLine: line})
		if line+1 < endLine {
			jump, err := frameIncrease(counterAt(line), counterAt(line+1))
			if err != nil {
				return nil, fmt.Errorf("between raw lines %d and %d: %w", line, line+1, err)
			}
			for i := 1; i < jump; i++ {
				plan = append(plan, Step{Kind: StepDropped})
			}
		}
	}
	return plan, nil
}

// DroppedLine returns a Line matching a dropped scan placeholder: a
// zeroed image and a mask carrying only the DroppedScan bit.
func DroppedLine(d *sensor.Descriptor) *Line {
	n := d.NumBands * d.NumSamples
	l := &Line{Image: make([]float64, n), Mask: make([]uint8, n)}
	for i := range l.Mask {
		l.Mask[i] = sensor.Set(l.Mask[i], sensor.DroppedScan)
	}
	return l
}

// CorruptLine returns a Line for a raw line the caller has named as
// corrupt (--corruptscans): calibration is skipped entirely and the
// output carries a zeroed image with only the CorruptData bit set.
func CorruptLine(d *sensor.Descriptor) *Line {
	n := d.NumBands * d.NumSamples
	l := &Line{Image: make([]float64, n), Mask: make([]uint8, n)}
	for i := range l.Mask {
		l.Mask[i] = sensor.Set(l.Mask[i], sensor.CorruptData)
	}
	return l
}
