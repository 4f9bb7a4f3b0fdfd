// Package calibration implements the per-scan-line radiometric
// calibration pipeline: dark subtraction, Eagle frame-smear correction,
// gain application, FODIS averaging, and pixel flagging.
package calibration

import (
	"github.com/arsf-go/hyperspec/badpixel"
	"github.com/arsf-go/hyperspec/darkframe"
	"github.com/arsf-go/hyperspec/sensor"
)

// Config names the ten independent calibration steps a run can opt
// into or out of.
type Config struct {
	RemoveDarkFrames   bool
	SmearCorrect       bool
	ApplyGains         bool
	CalibrateFodis     bool
	FlipBands          bool
	FlipSamples        bool
	OutputMask         bool
	OutputMaskMethod   bool
	ApplyQCFailures    bool
	InsertMissingScans bool
}

// QCFailure is one externally-supplied (band, sample) pixel to flag,
// read from a quality-control failure file.
type QCFailure struct {
	Band   int
	Sample int
}

// Line is the per-scan-line scratch buffer the pipeline reads and
// mutates in place; each raw line owns exactly one Line for its
// lifetime.
type Line struct {
	Image        []float64 // Bands*Samples, band-major
	Mask         []uint8   // Bands*Samples
	BadPixMethod []uint8   // Bands*Samples, nil unless the catalogue carries methods
	Fodis        []float64 // one value per band, nil until AverageFodis runs

	// FodisEmptyBands counts the bands whose FODIS region held no
	// non-zero samples this line; warned about, never fatal.
	FodisEmptyBands int
}

// NewLine allocates a zeroed per-line scratch buffer sized to d.
func NewLine(d *sensor.Descriptor, withBadPixMethod bool) *Line {
	n := d.NumBands * d.NumSamples
	l := &Line{
		Image: make([]float64, n),
		Mask:  make([]uint8, n),
	}
	if withBadPixMethod {
		l.BadPixMethod = make([]uint8, n)
	}
	return l
}

// Pipeline holds the state shared across every line of one sub-sensor's
// run: its descriptor, resolved dark statistics, binned gains, bad-pixel
// catalogue and externally supplied QC failures.
type Pipeline struct {
	Descriptor *sensor.Descriptor
	Dark       *darkframe.Stats
	Gains      []float64
	BadPixels  *badpixel.Catalogue
	QCFailures []QCFailure
	Config     Config
}

func (p *Pipeline) setMask(line *Line, idx int, bit sensor.MaskBit) {
	line.Mask[idx] = sensor.Set(line.Mask[idx], bit)
}

// FlagPixels flags underflow/overflow/bad-pixel/QC-failure cells. It
// must run before RemoveDarkFrames, since the underflow test compares
// the raw value against the dark statistic directly.
func (p *Pipeline) FlagPixels(line *Line) error {
	d := p.Descriptor
	for band := 0; band < d.NumBands; band++ {
		for sample := 0; sample < d.NumSamples; sample++ {
			idx := band*d.NumSamples + sample
			switch {
			case sensor.IsReserved(band, sample, d.LowerBandLimit):
				// the frame-counter cell and its neighbour; a Fenix
				// sub-sensor with LowerBandLimit>0 never owns them.
				line.Image[idx] = 0
				p.setMask(line, idx, sensor.BadPixel)
			case uint16(line.Image[idx]) == d.RawMaxDN:
				p.setMask(line, idx, sensor.OverFlow)
				if d.Name == sensor.EAGLE {
					for b := band + 1; b < d.NumBands; b++ {
						p.setMask(line, b*d.NumSamples+sample, sensor.SmearAffected)
					}
				}
			case p.Dark != nil:
				if line.Image[idx] <= p.Dark.Refined[idx] {
					line.Image[idx] = 0
					p.setMask(line, idx, sensor.UnderFlow)
				}
			}
		}
	}

	if err := p.flagBadPixels(line); err != nil {
		return err
	}
	if p.Config.ApplyQCFailures {
		for _, f := range p.QCFailures {
			p.setMask(line, f.Band*d.NumSamples+f.Sample, sensor.QCFailure)
		}
	}
	return nil
}

func (p *Pipeline) flagBadPixels(line *Line) error {
	d := p.Descriptor
	if p.BadPixels == nil {
		if d.Name == sensor.EAGLE {
			return nil // Eagle never carries a bad pixel file
		}
		return ErrMissingBadPixelFile
	}
	for _, e := range p.BadPixels.Entries {
		if e.Band == badpixel.BandNotInUse {
			continue
		}
		idx := e.Band*d.NumSamples + e.Sample
		p.setMask(line, idx, sensor.BadPixel)
		if p.BadPixels.Format == badpixel.ARSF && line.BadPixMethod != nil && e.HasMethod {
			line.BadPixMethod[idx] = uint8(e.Method)
		}
	}
	return nil
}

// RemoveDarkFrames subtracts the refined dark-frame mean from every
// in-range cell, flagging cells that would go non-positive as underflow.
func (p *Pipeline) RemoveDarkFrames(line *Line) error {
	if p.Dark == nil {
		return ErrDarkNotInitialised
	}
	d := p.Descriptor
	for ele, v := range line.Image {
		if v == 0 || v >= float64(d.CalibratedMaxDN) {
			continue
		}
		dark := p.Dark.Refined[ele]
		if dark > float64(d.RawMaxDN) {
			return ErrDarkExceedsRawMax
		}
		if v-dark <= 0 {
			line.Image[ele] = 0
			p.setMask(line, ele, sensor.UnderFlow)
		} else {
			line.Image[ele] = v - dark
		}
	}
	return nil
}

// SmearCorrect applies the Eagle frame-transfer smear correction: each
// band's correction uses the rolling sum of already-corrected previous
// bands, scaled by (frame transfer time / integration time) * spectral
// binning. It is a no-op returning false for non-Eagle sensors.
func (p *Pipeline) SmearCorrect(line *Line) bool {
	d := p.Descriptor
	if d.Name != sensor.EAGLE {
		return false
	}
	fsc := (d.FrameTransferTime / d.IntegrationTime) * float64(d.SpectralBinning)

	for s := 0; s < d.NumSamples; s++ {
		var bandsum float64
		for b := 1; b < d.NumBands; b++ {
			cur := b*d.NumSamples + s
			prev := (b-1)*d.NumSamples + s
			bandsum += line.Image[prev]
			line.Image[cur] -= fsc * bandsum
			if line.Image[cur] < 0 {
				line.Image[cur] = 0
				p.setMask(line, cur, sensor.UnderFlow)
			}
		}
	}
	return true
}

// ApplyGains scales every in-range cell by its binned calibration gain
// and the sensor's radiance scalar / integration time multiplier.
func (p *Pipeline) ApplyGains(line *Line) error {
	d := p.Descriptor
	if p.Gains == nil {
		return ErrNoCalibrationFile
	}
	if d.IntegrationTime == 0 {
		return ErrZeroIntegrationTime
	}
	radMultiplier := float64(d.RadianceScalar) / d.IntegrationTime

	for ele, v := range line.Image {
		if v == 0 || uint16(v) == d.CalibratedMaxDN {
			continue
		}
		scaled := v * p.Gains[ele] * radMultiplier
		if scaled >= float64(d.CalibratedMaxDN) {
			line.Image[ele] = float64(d.CalibratedMaxDN)
			p.setMask(line, ele, sensor.OverFlow)
		} else {
			line.Image[ele] = scaled
		}
	}
	return nil
}

// AverageFodis averages the FODIS tap's non-zero samples per band into
// line.Fodis. It is a no-op returning false for sensors without a FODIS
// region.
func (p *Pipeline) AverageFodis(line *Line) bool {
	d := p.Descriptor
	if !d.Fodis.Valid {
		return false
	}
	out := make([]float64, d.NumBands)
	for band := 0; band < d.NumBands; band++ {
		var sum float64
		count := 0
		for s := d.Fodis.Lower; s < d.Fodis.Upper; s++ {
			v := line.Image[band*d.NumSamples+s]
			if v != 0 {
				sum += v
				count++
			}
		}
		mean := 0.0
		if count != 0 {
			mean = sum / float64(count)
		} else {
			line.FodisEmptyBands++
		}
		if mean < float64(d.CalibratedMaxDN) {
			out[band] = mean
		} else {
			out[band] = float64(d.CalibratedMaxDN)
		}
	}
	line.Fodis = out
	return true
}

// FlipBands reverses the band (spectral) axis in place.
func FlipBands(vals []float64, bands, samples int) {
	for b := 0; b < bands/2; b++ {
		o := bands - 1 - b
		for s := 0; s < samples; s++ {
			i, j := b*samples+s, o*samples+s
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
}

// FlipSamples reverses the sample (across-track) axis in place.
func FlipSamples(vals []float64, bands, samples int) {
	for b := 0; b < bands; b++ {
		row := vals[b*samples : b*samples+samples]
		for s := 0; s < samples/2; s++ {
			row[s], row[samples-1-s] = row[samples-1-s], row[s]
		}
	}
}

// CalibrateLine runs the full per-line state machine in the fixed order
// the format requires: flag, dark-subtract, smear-correct, gain, FODIS,
// flip-bands, flip-samples. Config booleans gate each optional step;
// SmearCorrect and CalibrateFodis self-disable (by returning false)
// once a non-Eagle sensor is detected.
func (p *Pipeline) CalibrateLine(line *Line) error {
	if err := p.FlagPixels(line); err != nil {
		return err
	}
	if p.Config.RemoveDarkFrames {
		if err := p.RemoveDarkFrames(line); err != nil {
			return err
		}
	}
	if p.Config.SmearCorrect {
		p.Config.SmearCorrect = p.SmearCorrect(line)
	}
	if p.Config.ApplyGains {
		if err := p.ApplyGains(line); err != nil {
			return err
		}
	}
	if p.Config.CalibrateFodis {
		p.Config.CalibrateFodis = p.AverageFodis(line)
	}
	if p.Config.FlipBands {
		FlipBands(line.Image, p.Descriptor.NumBands, p.Descriptor.NumSamples)
	}
	if p.Config.FlipSamples {
		FlipSamples(line.Image, p.Descriptor.NumBands, p.Descriptor.NumSamples)
	}
	return nil
}
