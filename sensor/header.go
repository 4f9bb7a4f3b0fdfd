package sensor

import (
	"strconv"
	"strings"

	"github.com/arsf-go/hyperspec/raster"
)

// eagleFrameTransferMS is the Eagle CCD frame transfer time in
// milliseconds, from the CCD document's recommended operating rate (not
// necessarily the true rate); the smear-correction scalar is computed
// from it and the integration time.
const eagleFrameTransferMS = 0.002

func intField(h *raster.Header, key string) (int, bool) {
	v, ok := h.Raw[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func pairField(h *raster.Header, key string) (lo, hi int, ok bool) {
	vals, present := h.StringSliceKey(key)
	if !present || len(vals) < 2 {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(vals[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(vals[1]))
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

func wavelengths(h *raster.Header) []float64 {
	vals, ok := h.StringSliceKey("wavelength")
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ParseDescriptor builds an EAGLE or HAWK Descriptor from a raw file's
// parsed header. Use ParseFenixPair for a FENIX raw file, which carries
// two sub-sensor descriptors sharing one header.
func ParseDescriptor(h *raster.Header) (*Descriptor, error) {
	id, ok := h.Raw["sensorid"]
	if !ok {
		return nil, ErrUnknownSensorID
	}
	kind, err := KindFromID(id)
	if err != nil {
		return nil, err
	}
	if kind == FENIX {
		return nil, ErrFenixSubRange
	}

	tint, err := h.FloatKey("tint")
	if err != nil {
		return nil, err
	}
	specBin, spatBin, ok := pairField(h, "binning")
	if !ok {
		specBin, spatBin = 1, 1
	}

	d := NewDescriptor(kind)
	d.ID = id
	d.NumBands = h.Bands
	d.NumSamples = h.Samples
	d.NumLines = h.Lines
	d.SpectralBinning = specBin
	d.SpatialBinning = spatBin
	d.IntegrationTime = tint
	d.Wavelengths = wavelengths(h)

	if lo, hi, ok := pairField(h, "himg"); ok {
		d.SampleWindow = SampleWindow{Lower: lo, Upper: hi}
	}
	if kind == EAGLE {
		if lo, hi, ok := pairField(h, "fodis"); ok {
			d.Fodis = FodisRegion{Lower: lo, Upper: hi, Valid: true}
		}
		d.FrameTransferTime = eagleFrameTransferMS
	}
	if start, ok := intField(h, "autodarkstartline"); ok {
		d.DarkStartLine = start
		d.DarkFrameCount = h.Lines - start
	}
	return d, nil
}

// ParseFenixPair builds the VNIR/SWIR sub-sensor pair from a FENIX raw
// file's header. The two sub-ranges share one raw file at distinct band
// ranges; VNIR occupies the low bands, SWIR the remainder, split at
// the header's "vnirbands" key.
func ParseFenixPair(h *raster.Header) (*FenixDescriptor, error) {
	id, ok := h.Raw["sensorid"]
	if !ok {
		return nil, ErrUnknownSensorID
	}
	kind, err := KindFromID(id)
	if err != nil {
		return nil, err
	}
	if kind != FENIX {
		return nil, ErrFenixSubRange
	}

	vnirBands, ok := intField(h, "vnirbands")
	if !ok || vnirBands <= 0 || vnirBands >= h.Bands {
		return nil, ErrFenixSubRange
	}

	tint1, err := h.FloatKey("tint1")
	if err != nil {
		return nil, err
	}
	tint2, err := h.FloatKey("tint2")
	if err != nil {
		return nil, err
	}
	specBin1, spatBin1, ok := pairField(h, "binning")
	if !ok {
		specBin1, spatBin1 = 1, 1
	}
	specBin2, spatBin2, ok := pairField(h, "binning2")
	if !ok {
		specBin2, spatBin2 = 1, 1
	}

	vnir := NewDescriptor(FENIX)
	vnir.RawMaxDN = eagleRawMax // the Fenix VNIR chip shares the Eagle's 12-bit ADC
	vnir.ID = id
	vnir.NumBands = vnirBands
	vnir.NumSamples = h.Samples
	vnir.NumLines = h.Lines
	vnir.SpectralBinning = specBin1
	vnir.SpatialBinning = spatBin1
	vnir.IntegrationTime = tint1
	vnir.LowerBandLimit = 0
	allWave := wavelengths(h)
	if len(allWave) >= vnirBands {
		vnir.Wavelengths = allWave[:vnirBands]
	}
	if lo, hi, ok := pairField(h, "himg1"); ok {
		vnir.SampleWindow = SampleWindow{Lower: lo, Upper: hi}
	}
	vnir.ApplyRawMaxScaling()

	swir := NewDescriptor(FENIX)
	swir.ID = id
	swir.NumBands = h.Bands - vnirBands
	swir.NumSamples = h.Samples
	swir.NumLines = h.Lines
	swir.SpectralBinning = specBin2
	swir.SpatialBinning = spatBin2
	swir.IntegrationTime = tint2
	swir.LowerBandLimit = vnirBands
	if len(allWave) > vnirBands {
		swir.Wavelengths = allWave[vnirBands:]
	}
	if lo, hi, ok := pairField(h, "himg2"); ok {
		swir.SampleWindow = SampleWindow{Lower: lo, Upper: hi}
	}
	swir.ApplyRawMaxScaling()

	return &FenixDescriptor{VNIR: vnir, SWIR: swir}, nil
}
