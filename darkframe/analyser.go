// Package darkframe computes the two-pass robust mean dark-frame
// statistics used for dark subtraction.
package darkframe

import (
	"math"

	"github.com/arsf-go/hyperspec/sensor"
)

// LineSource is the minimal raw-line reading capability the analyser
// needs; satisfied by *raster.Dataset.
type LineSource interface {
	ReadLineU16(line int) ([]uint16, error)
}

// counterDiff returns the wrap-aware forward distance from a to b on the
// 16-bit frame counter.
func counterDiff(a, b uint16) int {
	d := int(b) - int(a)
	if d < 0 {
		d += sensor.MaxFrameCounter
	}
	return d
}

// LocateDarkStart resolves the first dark-frame line index, applying the
// frame-counter-jump sanity check.
//
// counterAt reads the frame counter at a given raw line; numLines is the
// total number of raw lines in the file; claimedStart is the
// "autodarkstartline" header value; sensorID and darkForce drive the
// ambiguous-jump fallback.
func LocateDarkStart(counterAt func(line int) uint16, numLines, claimedStart int, sensorID string, darkForce bool) (int, error) {
	if claimedStart <= 0 || claimedStart >= numLines {
		return claimedStart, nil
	}

	prevJump := counterDiff(counterAt(claimedStart-1), counterAt(claimedStart))
	var nextJump int
	if claimedStart+1 < numLines {
		nextJump = counterDiff(counterAt(claimedStart), counterAt(claimedStart+1))
	}

	switch {
	case prevJump > nextJump:
		// darklinestart already points at the first dark line.
		return claimedStart, nil
	case nextJump > prevJump:
		// darklinestart points at the last light line.
		return claimedStart + 1, nil
	default:
		if sensor.NoFrameJumpAtDarkStart(sensorID) {
			// this sensor variant is known not to exhibit a jump at
			// dark-start; darklinestart points to the last light line.
			return claimedStart + 1, nil
		}
		if darkForce {
			// forced acceptance of the ambiguous jump keeps the
			// claimed value unchanged: darklinestart already points
			// to the first dark frame.
			return claimedStart, nil
		}
		return claimedStart, ErrDarkStartAmbiguous
	}
}

// Stats is the per-(band,sample) dark-frame statistics over the
// (Bands*Samples) flattened raw-pixel domain.
type Stats struct {
	Mean        []float64 // pass 1 arithmetic mean
	Stdev       []float64 // pass 2 sample standard deviation
	Refined     []float64 // pass 3 sigma-clipped mean, used for subtraction
	LowCoverage []bool    // true where <50% of frames contributed to Refined
	N           int       // number of dark frames averaged
}

// Analyse runs the three-pass dark-frame statistics computation over
// [darkStart, darkStart+count) raw lines of src. The reserved
// frame-counter cell (index 0) is forced to 0 in every pass.
func Analyse(src LineSource, darkStart, count int) (*Stats, error) {
	if count <= 0 {
		return nil, ErrNoDarkFrames
	}

	first, err := src.ReadLineU16(darkStart)
	if err != nil {
		return nil, err
	}
	n := len(first)
	s := &Stats{
		Mean:        make([]float64, n),
		Stdev:       make([]float64, n),
		Refined:     make([]float64, n),
		LowCoverage: make([]bool, n),
		N:           count,
	}

	frames := make([][]uint16, count)
	frames[0] = first
	for i := 1; i < count; i++ {
		frames[i], err = src.ReadLineU16(darkStart + i)
		if err != nil {
			return nil, err
		}
	}

	// pass 1: arithmetic mean
	for _, f := range frames {
		for c := 1; c < n; c++ {
			s.Mean[c] += float64(f[c])
		}
	}
	for c := 1; c < n; c++ {
		s.Mean[c] /= float64(count)
	}

	// pass 2: sample standard deviation
	for _, f := range frames {
		for c := 1; c < n; c++ {
			d := float64(f[c]) - s.Mean[c]
			s.Stdev[c] += d * d
		}
	}
	divisor := float64(count)
	if count > 1 {
		divisor = float64(count - 1)
	}
	for c := 1; c < n; c++ {
		s.Stdev[c] = math.Sqrt(s.Stdev[c] / divisor)
	}

	// pass 3: sigma-clipped refined mean
	counts := make([]int, n)
	for _, f := range frames {
		for c := 1; c < n; c++ {
			v := float64(f[c])
			lo, hi := s.Mean[c]-3*s.Stdev[c], s.Mean[c]+3*s.Stdev[c]
			if v >= lo && v <= hi {
				s.Refined[c] += v
				counts[c]++
			}
		}
	}
	half := float64(count) / 2.0
	for c := 1; c < n; c++ {
		if counts[c] == 0 {
			continue
		}
		if float64(counts[c]) < half {
			s.LowCoverage[c] = true
		}
		s.Refined[c] /= float64(counts[c])
	}

	return s, nil
}

// IntegrationScalar computes s = raw_tint / dark_tint for an external
// dark file pairing. The pipeline rejects the pairing when s != 1 once
// dark subtraction has been requested.
func IntegrationScalar(rawTint, darkTint float64) float64 {
	return rawTint / darkTint
}

// CheckScalar returns ErrTimeScalarNotUnity when an external dark file's
// integration time does not match the raw file's.
func CheckScalar(scalar float64) error {
	const eps = 1e-9
	if math.Abs(scalar-1.0) > eps {
		return ErrTimeScalarNotUnity
	}
	return nil
}
