package calibration

import (
	"fmt"
	"math"
)

// searchBound is the wavelength tolerance (nm) used when matching raw to
// calibration centre wavelengths; exact floating point equality is never
// expected between two independently-derived header values.
const searchBound = 0.006

// BinningRatio returns rawBinning/calBinning, requiring it to be a
// positive integer; a calibration file binned coarser than the raw data
// can never be reconciled against it.
func BinningRatio(rawBinning, calBinning int) (int, error) {
	if calBinning <= 0 || rawBinning < calBinning {
		return 0, ErrCalBinningTooCoarse
	}
	if rawBinning%calBinning != 0 {
		return 0, ErrBinningRatioNotInteger
	}
	return rawBinning / calBinning, nil
}

// BandMap is the injective raw-band <-> calibration-band correspondence
// built by matching centre wavelengths.
type BandMap struct {
	RawToCal map[int]int
	CalToRaw map[int]int
}

// BuildBandMap bins calWavelengths down by specBinRatio (simple mean per
// group) and matches each raw centre wavelength against the binned list
// within searchBound, in raw-band order, searching the binned list from
// its start for every raw band (not resuming from a prior match).
//
// Every raw band must find exactly one match or the calibration file is
// rejected as incompatible with the raw file.
func BuildBandMap(rawWavelengths, calWavelengths []float64, specBinRatio int) (*BandMap, error) {
	if specBinRatio <= 0 || len(calWavelengths)%specBinRatio != 0 {
		return nil, ErrBinningRatioNotInteger
	}
	numBinned := len(calWavelengths) / specBinRatio
	binned := make([]float64, numBinned)
	for j := 0; j < numBinned; j++ {
		var sum float64
		for i := 0; i < specBinRatio; i++ {
			sum += calWavelengths[specBinRatio*j+i]
		}
		binned[j] = sum / float64(specBinRatio)
	}
	if len(rawWavelengths) > numBinned {
		return nil, fmt.Errorf("%w: %d raw wavelengths vs %d binned calibration bands", ErrWavelengthDisagreement, len(rawWavelengths), numBinned)
	}

	bm := &BandMap{RawToCal: make(map[int]int), CalToRaw: make(map[int]int)}
	numAgree := 0
	for w, raw := range rawWavelengths {
		for iter := 0; iter < numBinned; iter++ {
			if math.Abs(raw-binned[iter]) <= searchBound {
				bm.RawToCal[w] = iter
				bm.CalToRaw[iter] = w
				numAgree++
				break
			}
		}
	}
	if numAgree != len(rawWavelengths) {
		return nil, fmt.Errorf("%w: %d of %d bands agree", ErrWavelengthDisagreement, numAgree, len(rawWavelengths))
	}
	return bm, nil
}

// BinAndTrimGains reads a single-line calibration gain array (nbands x
// nsamps, band-major) and reduces it to the raw image's own
// (NumBands x NumSamples) grid: spectral and spatial binning applied
// at the calibration-file binning ratio, then trimmed/reordered through
// bandMap to the raw image's band order.
//
// eagleOrHawk selects the sum-of-binned-cells divisor (both binned
// quantities are sums, so the divisor squares the bin ratio in each
// axis); the Fenix divisor instead treats the spectral axis as already
// averaged by the raw sensor and only squares the spatial axis.
//
// Negative calibration-file gain cells are clamped to zero before
// binning, a defensive guard against one bad cell pulling an entire
// bin negative.
func BinAndTrimGains(gains []float64, calBands, calSamples int, specBinRatio, spatBinRatio int, numRawBands, numRawSamples int, eagleOrHawk bool, bandMap *BandMap) ([]float64, error) {
	numBinnedBand := calBands / specBinRatio
	numBinnedSamps := calSamples / spatBinRatio
	if numBinnedSamps != numRawSamples {
		return nil, ErrSampleCountMismatch
	}

	clamped := make([]float64, len(gains))
	for i, g := range gains {
		if g < 0 {
			g = 0
		}
		clamped[i] = g
	}

	binned := make([]float64, numBinnedBand*numBinnedSamps)
	for j := 0; j < numBinnedBand; j++ {
		sampleCount := 0
		for s := 0; s < calSamples; s += spatBinRatio {
			idx := j*numBinnedSamps + sampleCount
			var sum float64
			for i := 0; i < specBinRatio; i++ {
				for p := 0; p < spatBinRatio; p++ {
					sum += clamped[(j*specBinRatio+i)*calSamples+(s+p)]
				}
			}
			if eagleOrHawk {
				sum /= float64(specBinRatio * specBinRatio * spatBinRatio * spatBinRatio)
			} else {
				// Fenix: spectral axis summed-then-averaged once,
				// spatial axis summed twice (binned gains + binned raw).
				sum /= float64(specBinRatio * spatBinRatio * spatBinRatio)
			}
			binned[idx] = sum
			sampleCount++
		}
	}

	trimmed := make([]float64, numRawBands*numRawSamples)
	for b := 0; b < numRawBands; b++ {
		calBand, ok := bandMap.RawToCal[b]
		if !ok {
			return nil, fmt.Errorf("%w: no calibration band for raw band %d", ErrWavelengthDisagreement, b)
		}
		for s := 0; s < numRawSamples; s++ {
			trimmed[b*numRawSamples+s] = binned[calBand*numBinnedSamps+s]
		}
	}
	return trimmed, nil
}
