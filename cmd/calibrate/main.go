// Command calibrate runs the Radiometric Calibration Engine over one
// raw Specim pushbroom file, writing a calibrated level-1 image plus
// its mask, bad-pixel-method, FODIS, and run-summary side products.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/arsf-go/hyperspec/badpixel"
	"github.com/arsf-go/hyperspec/calibration"
	"github.com/arsf-go/hyperspec/darkframe"
	"github.com/arsf-go/hyperspec/raster"
	"github.com/arsf-go/hyperspec/report"
	"github.com/arsf-go/hyperspec/sensor"
)

func openDataset(path string) (*raster.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hf, err := os.Open(path + ".hdr")
	if err != nil {
		f.Close()
		return nil, err
	}
	defer hf.Close()
	h, err := raster.ParseHeader(hf)
	if err != nil {
		f.Close()
		return nil, err
	}
	return raster.Open(f, h), nil
}

func createDataset(path string, h *raster.Header) (*raster.Dataset, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return raster.Open(f, h), nil
}

func writeHeaderFile(path string, h *raster.Header) error {
	hf, err := os.Create(path + ".hdr")
	if err != nil {
		return err
	}
	defer hf.Close()
	return raster.WriteHeader(hf, h)
}

func newOutputHeader(samples, bands int, dtype raster.DataType) *raster.Header {
	return &raster.Header{
		Samples: samples, Lines: 0, Bands: bands,
		DataType: dtype, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
}

// binningOf reads a header's "binning" pair, defaulting to (1, 1) when
// the key is absent (unbinned calibration files omit it).
func binningOf(h *raster.Header, key string) (spec, spat int) {
	spec, spat = 1, 1
	vals, ok := h.StringSliceKey(key)
	if !ok || len(vals) < 2 {
		return spec, spat
	}
	if n, err := strconv.Atoi(strings.TrimSpace(vals[0])); err == nil {
		spec = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(vals[1])); err == nil {
		spat = n
	}
	return spec, spat
}

// loadCalibration validates the calibration gain file against the raw
// descriptor, builds the band map, and returns the binned-and-trimmed
// gains plus the bad-pixel catalogue (where the sensor carries one).
func loadCalibration(calPrefix string, d *sensor.Descriptor) (gains []float64, cat *badpixel.Catalogue, err error) {
	calRaster, err := openDataset(calPrefix + ".cal")
	if err != nil {
		return nil, nil, fmt.Errorf("opening calibration gain file: %w", err)
	}
	defer calRaster.Close()
	if calRaster.Header.Lines != 1 {
		return nil, nil, calibration.ErrCalLinesNotOne
	}
	if calID, ok := calRaster.Header.Raw["sensorid"]; ok && calID != d.ID {
		return nil, nil, fmt.Errorf("calibration file sensorid %q does not match raw sensorid %q", calID, d.ID)
	}

	calWave, ok := calRaster.Header.StringSliceKey("wavelength")
	if !ok {
		return nil, nil, errors.New("calibration file missing wavelength key")
	}
	calWavelengths := make([]float64, len(calWave))
	for i, w := range calWave {
		calWavelengths[i], _ = strconv.ParseFloat(strings.TrimSpace(w), 64)
	}

	calSpecBin, calSpatBin := binningOf(calRaster.Header, "binning")
	specRatio, err := calibration.BinningRatio(d.SpectralBinning, calSpecBin)
	if err != nil {
		return nil, nil, err
	}
	spatRatio, err := calibration.BinningRatio(d.SpatialBinning, calSpatBin)
	if err != nil {
		return nil, nil, err
	}
	bandMap, err := calibration.BuildBandMap(d.Wavelengths, calWavelengths, specRatio)
	if err != nil {
		return nil, nil, fmt.Errorf("building band map: %w", err)
	}
	rawGains, err := calRaster.ReadLine(0)
	if err != nil {
		return nil, nil, err
	}
	eagleOrHawk := d.Name != sensor.FENIX
	gains, err = calibration.BinAndTrimGains(rawGains, calRaster.Header.Bands, calRaster.Header.Samples,
		specRatio, spatRatio, d.NumBands, d.NumSamples, eagleOrHawk, bandMap)
	if err != nil {
		return nil, nil, fmt.Errorf("binning gains: %w", err)
	}

	badPixContent, err := os.ReadFile(calPrefix + ".bad")
	if err == nil {
		cat, err = badpixel.Decode(string(badPixContent), bandMap.CalToRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding bad pixel catalogue: %w", err)
		}
	} else if d.Name != sensor.EAGLE {
		return nil, nil, calibration.ErrMissingBadPixelFile
	}
	return gains, cat, nil
}

// writeSingleLine writes a one-line raster plus its header sidecar,
// used for the refined average-dark and binned-gain diagnostics.
func writeSingleLine(path string, samples, bands int, vals []float64) error {
	h := newOutputHeader(samples, bands, raster.F32)
	h.Lines = 1
	ds, err := createDataset(path, h)
	if err != nil {
		return err
	}
	if err := ds.WriteLine(vals); err != nil {
		ds.Close()
		return err
	}
	ds.Close()
	return writeHeaderFile(path, h)
}

// run executes one calibration over cCtx's flags:
// --input/--calfile/--output/--darkfile/--sensor/--lines plus the
// per-step opt-out and flip flags.
func run(cCtx *cli.Context) error {
	rawPath := cCtx.String("input")
	if rawPath == "" {
		return errors.New("--input is required")
	}
	outPath := cCtx.String("output")
	if outPath == "" {
		return errors.New("--output is required")
	}

	raw, err := openDataset(rawPath)
	if err != nil {
		return fmt.Errorf("opening raw file: %w", err)
	}
	defer raw.Close()

	d, err := sensor.ParseDescriptor(raw.Header)
	if err != nil {
		return fmt.Errorf("parsing sensor descriptor: %w", err)
	}
	if forced := cCtx.String("sensor"); forced != "" {
		var want sensor.Kind
		switch forced {
		case "e":
			want = sensor.EAGLE
		case "h":
			want = sensor.HAWK
		default:
			return fmt.Errorf("sensor type %q is unrecognised", forced)
		}
		if d.Name != want {
			return fmt.Errorf("--sensor %q disagrees with raw header sensorid %q (%s)", forced, d.ID, d.Name)
		}
	}

	counterAt := func(line int) uint16 {
		v, _ := raw.ReadCellU16(0, line, 0)
		return v
	}

	darkStart := d.DarkStartLine
	if darkStart > 0 {
		darkStart, err = darkframe.LocateDarkStart(counterAt, d.NumLines, darkStart, d.ID, cCtx.Bool("darkforce"))
		if err != nil {
			return fmt.Errorf("locating dark frame start: %w", err)
		}
	}

	startLine, endLine := 0, d.NumLines
	if darkStart > 0 {
		// the dark-frame tail is never part of the calibrated image
		endLine = darkStart
	}
	if lines := cCtx.IntSlice("lines"); len(lines) == 2 {
		startLine, endLine = lines[0], lines[1]
	}

	corruptLines := map[int]bool{}
	if cs := cCtx.String("corruptscans"); cs != "" {
		for _, tok := range strings.Split(cs, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return fmt.Errorf("--corruptscans: bad line number %q: %w", tok, err)
			}
			corruptLines[n] = true
		}
	}

	tally := &report.Tally{}

	var dark *darkframe.Stats
	if !cCtx.Bool("nodark") {
		darkSrc := raw
		darkLo := darkStart
		darkCount := d.NumLines - darkStart
		if darkStart <= 0 {
			darkCount = 0
		}
		if darkFile := cCtx.String("darkfile"); darkFile != "" {
			ext, err := openDataset(darkFile)
			if err != nil {
				return fmt.Errorf("opening external dark file: %w", err)
			}
			defer ext.Close()
			extDesc, err := sensor.ParseDescriptor(ext.Header)
			if err != nil {
				return fmt.Errorf("parsing external dark descriptor: %w", err)
			}
			if extDesc.NumBands != d.NumBands || extDesc.NumSamples != d.NumSamples {
				return darkframe.ErrDimensionMismatch
			}
			scalar := darkframe.IntegrationScalar(d.IntegrationTime, extDesc.IntegrationTime)
			if err := darkframe.CheckScalar(scalar); err != nil {
				return err
			}
			darkSrc = ext
			darkLo = 0
			darkCount = extDesc.NumLines
		}
		dark, err = darkframe.Analyse(darkSrc, darkLo, darkCount)
		if err != nil {
			return fmt.Errorf("analysing dark frames: %w", err)
		}
		low := 0
		for _, l := range dark.LowCoverage {
			if l {
				low++
			}
		}
		tally.AddLowCoverageDarkPixels(low)
	}

	var cat *badpixel.Catalogue
	var gains []float64
	if calPrefix := cCtx.String("calfile"); calPrefix != "" {
		gains, cat, err = loadCalibration(calPrefix, d)
		if err != nil {
			return err
		}
	}

	var qcFailures []calibration.QCFailure
	if qcPath := cCtx.String("qcfailures"); qcPath != "" {
		content, err := os.ReadFile(qcPath)
		if err != nil {
			return fmt.Errorf("opening qc failures file: %w", err)
		}
		qcFailures, err = calibration.ParseQCFailures(string(content))
		if err != nil {
			return fmt.Errorf("parsing qc failures file: %w", err)
		}
	}

	withMethod := cat != nil && cat.Format == badpixel.ARSF
	cfg := calibration.Config{
		RemoveDarkFrames:   !cCtx.Bool("nodark"),
		SmearCorrect:       !cCtx.Bool("nosmear"),
		ApplyGains:         !cCtx.Bool("norad") && gains != nil,
		CalibrateFodis:     !cCtx.Bool("nofodis") && d.Fodis.Valid,
		FlipBands:          cCtx.Bool("flipbands"),
		FlipSamples:        cCtx.Bool("flipsamples"),
		OutputMask:         !cCtx.Bool("nomask"),
		OutputMaskMethod:   !cCtx.Bool("nomask") && withMethod,
		ApplyQCFailures:    len(qcFailures) > 0,
		InsertMissingScans: !cCtx.Bool("nomissscan"),
	}

	pipeline := &calibration.Pipeline{Descriptor: d, Dark: dark, Gains: gains, BadPixels: cat, QCFailures: qcFailures, Config: cfg}

	if avdarkPath := cCtx.String("avdark"); avdarkPath != "" && dark != nil {
		if err := writeSingleLine(avdarkPath, d.NumSamples, d.NumBands, dark.Refined); err != nil {
			return fmt.Errorf("writing average dark frame: %w", err)
		}
	}
	if gainsPath := cCtx.String("gains"); gainsPath != "" && gains != nil {
		if err := writeSingleLine(gainsPath, d.NumSamples, d.NumBands, gains); err != nil {
			return fmt.Errorf("writing binned gains: %w", err)
		}
	}

	outHeader := newOutputHeader(d.NumSamples, d.NumBands, raster.U16)
	outHeader.AddToHdr("sensorid", d.ID)
	outHeader.AddToHdr("x start", strconv.Itoa(d.SampleWindow.Lower))
	outHeader.AddToHdr("y start", strconv.Itoa(startLine))
	if wl, ok := raw.Header.Raw["wavelength"]; ok {
		outHeader.AddToHdr("wavelength", "{"+wl+"}")
		outHeader.AddToHdr("wavelength units", "nm")
	}
	outHeader.AddToHdr(";Raw data file: "+rawPath, "")
	out, err := createDataset(outPath, outHeader)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	var mask *raster.Dataset
	maskHeader := newOutputHeader(d.NumSamples, d.NumBands, raster.U8)
	if cfg.OutputMask {
		mask, err = createDataset(outPath+"_mask.bil", maskHeader)
		if err != nil {
			return fmt.Errorf("creating mask file: %w", err)
		}
		defer mask.Close()
	}

	var method *raster.Dataset
	methodHeader := newOutputHeader(d.NumSamples, d.NumBands, raster.U8)
	if cfg.OutputMaskMethod {
		method, err = createDataset(outPath+"_mask-badpixelmethod.bil", methodHeader)
		if err != nil {
			return fmt.Errorf("creating mask method file: %w", err)
		}
		defer method.Close()
	}

	var fodis *raster.Dataset
	fodisHeader := newOutputHeader(1, d.NumBands, raster.U16)
	if cfg.CalibrateFodis {
		fodis, err = createDataset(outPath+"_FODIS.bil", fodisHeader)
		if err != nil {
			return fmt.Errorf("creating fodis file: %w", err)
		}
		defer fodis.Close()
	}

	methodTally := &calibration.MethodTally{}

	var plan []calibration.Step
	if cfg.InsertMissingScans {
		plan, err = calibration.BuildLinePlan(counterAt, startLine, endLine)
		if err != nil {
			return err
		}
	} else {
		for l := startLine; l < endLine; l++ {
			plan = append(plan, calibration.Step{Kind: calibration.StepRaw, RawLine: l})
		}
	}

	bytesOf := func(bits []uint8) []float64 {
		vals := make([]float64, len(bits))
		for i, v := range bits {
			vals[i] = float64(v)
		}
		return vals
	}

	for _, step := range plan {
		var line *calibration.Line
		switch {
		case step.Kind == calibration.StepDropped:
			line = calibration.DroppedLine(d)
		case corruptLines[step.RawLine]:
			log.Printf("skipping line %d and marking it as corrupt", step.RawLine)
			line = calibration.CorruptLine(d)
		default:
			line = calibration.NewLine(d, withMethod)
			vals, err := raw.ReadLineToDoubles(step.RawLine)
			if err != nil {
				return fmt.Errorf("reading raw line %d: %w", step.RawLine, err)
			}
			line.Image = vals
			if err := pipeline.CalibrateLine(line); err != nil {
				return fmt.Errorf("calibrating line %d: %w", step.RawLine, err)
			}
			tally.AddFodisEmpty(line.FodisEmptyBands)
			methodTally.Observe(line.BadPixMethod)
		}
		if err := out.WriteLine(line.Image); err != nil {
			return err
		}
		if mask != nil {
			if err := mask.WriteLine(bytesOf(line.Mask)); err != nil {
				return err
			}
		}
		if method != nil {
			if line.BadPixMethod != nil {
				if err := method.WriteLine(bytesOf(line.BadPixMethod)); err != nil {
					return err
				}
			} else if err := method.WriteLineWithValue(0); err != nil {
				return err
			}
		}
		if fodis != nil {
			if line.Fodis != nil {
				if err := fodis.WriteLine(line.Fodis); err != nil {
					return err
				}
			} else if err := fodis.WriteLineWithValue(0); err != nil {
				return err
			}
		}
	}

	outHeader.Lines = len(plan)
	if err := writeHeaderFile(outPath, outHeader); err != nil {
		return err
	}
	if mask != nil {
		maskHeader.Lines = len(plan)
		if err := writeHeaderFile(outPath+"_mask.bil", maskHeader); err != nil {
			return err
		}
	}
	if method != nil {
		methodHeader.Lines = len(plan)
		if err := writeHeaderFile(outPath+"_mask-badpixelmethod.bil", methodHeader); err != nil {
			return err
		}
	}
	if fodis != nil {
		fodisHeader.Lines = len(plan)
		if err := writeHeaderFile(outPath+"_FODIS.bil", fodisHeader); err != nil {
			return err
		}
	}

	tally.BadPixelMethodsSeen = methodTally.Distinct()
	log.Print(tally.Summary())
	if summaryURI := cCtx.String("summary"); summaryURI != "" {
		if _, err := report.WriteSummary(summaryURI, cCtx.String("tiledb-config"), tally); err != nil {
			return fmt.Errorf("writing run summary: %w", err)
		}
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "calibrate",
		Usage: "radiometrically calibrate a Specim pushbroom raw file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Usage: "raw imagery file (RAW)"},
			&cli.StringFlag{Name: "calfile", Usage: "calibration file prefix (PREFIX), .cal/.bad extensions implied"},
			&cli.StringFlag{Name: "output", Usage: "calibrated output file (OUT)"},
			&cli.StringFlag{Name: "darkfile", Usage: "external dark frame file"},
			&cli.StringFlag{Name: "sensor", Usage: "sensor override: e(agle) or h(awk)"},
			&cli.IntSliceFlag{Name: "lines", Usage: "START END raw line range"},
			&cli.BoolFlag{Name: "flipbands", Usage: "reverse the band axis"},
			&cli.BoolFlag{Name: "flipsamples", Usage: "reverse the sample axis"},
			&cli.BoolFlag{Name: "nofodis", Usage: "disable fodis averaging"},
			&cli.BoolFlag{Name: "nomask", Usage: "disable mask output"},
			&cli.BoolFlag{Name: "nomissscan", Usage: "disable dropped-scan insertion"},
			&cli.BoolFlag{Name: "nodark", Usage: "disable dark subtraction"},
			&cli.BoolFlag{Name: "norad", Usage: "disable radiometric gain application"},
			&cli.BoolFlag{Name: "nosmear", Usage: "disable eagle smear correction"},
			&cli.StringFlag{Name: "avdark", Usage: "write the refined average dark frame array to this file"},
			&cli.StringFlag{Name: "gains", Usage: "write the binned gain array to this file"},
			&cli.StringFlag{Name: "qcfailures", Usage: "externally supplied qc failure file"},
			&cli.StringFlag{Name: "corruptscans", Usage: "comma separated list of corrupt raw line numbers"},
			&cli.BoolFlag{Name: "darkforce", Usage: "force the ambiguous dark-start jump resolution"},
			&cli.StringFlag{Name: "summary", Usage: "uri to write the end-of-run summary"},
			&cli.StringFlag{Name: "tiledb-config", Usage: "uri to a tiledb config file"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
