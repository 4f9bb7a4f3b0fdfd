// Command geolocate runs the Geolocation Engine over a calibrated
// level-1 image: it combines the View-Vector Table and Navigation
// Record stream to produce a per-pixel ground position, optionally
// intersected against a DEM, writing an IGM (lon/lat/height) raster
// and an ancillary view-geometry/slope raster.
package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/urfave/cli/v2"

	"github.com/arsf-go/hyperspec/dem"
	"github.com/arsf-go/hyperspec/geocorrection"
	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/navigation"
	"github.com/arsf-go/hyperspec/raster"
	"github.com/arsf-go/hyperspec/report"
	"github.com/arsf-go/hyperspec/viewvector"
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

// demSections splits [lowerScan, upperScan) into scan sub-ranges whose
// DEM AOIs each fit within dem.MaxAOIBytes, bisecting recursively until
// every sub-range's crop fits.
func demSections(d *dem.DEM, ell *geodesy.Ellipsoid, nav *navigation.Reader, lowerScan, upperScan int, maxViewAngle float64) ([][2]int, error) {
	lim, err := nav.FindLimits(lowerScan, upperScan)
	if err != nil {
		return nil, err
	}
	if _, ok := dem.SectionAOI(d, ell, lim, maxViewAngle); !ok {
		return nil, fmt.Errorf("%w: scans [%d,%d)", geocorrection.ErrDEMNotCovered, lowerScan, upperScan)
	}
	if d.AOIBytes() <= dem.MaxAOIBytes || upperScan-lowerScan <= 1 {
		return [][2]int{{lowerScan, upperScan}}, nil
	}
	aLo, aHi, bLo, bHi := dem.Bisect(lowerScan, upperScan)
	left, err := demSections(d, ell, nav, aLo, aHi, maxViewAngle)
	if err != nil {
		return nil, err
	}
	right, err := demSections(d, ell, nav, bLo, bHi, maxViewAngle)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// loadSection re-snaps the DEM's AOI to one scan section and
// materialises its crop, releasing any previously-loaded section. The
// crop is read from store when one is supplied, else from the BIL file.
func loadSection(d *dem.DEM, store *dem.Store, ell *geodesy.Ellipsoid, nav *navigation.Reader, lo, hi int, maxViewAngle float64) error {
	lim, err := nav.FindLimits(lo, hi)
	if err != nil {
		return err
	}
	if _, ok := dem.SectionAOI(d, ell, lim, maxViewAngle); !ok {
		return fmt.Errorf("%w: scans [%d,%d)", geocorrection.ErrDEMNotCovered, lo, hi)
	}
	if store != nil {
		return d.FillArrayFromStore(store)
	}
	return d.FillArray()
}

// resolveEllipsoid parses the --ellipsoid flag: "WGS84" (the default)
// selects the standard reference ellipsoid; "a,b" (semi-major,
// semi-minor metres) builds a custom one via geodesy.NewEllipsoid.
func resolveEllipsoid(spec string) (*geodesy.Ellipsoid, error) {
	if spec == "" || strings.EqualFold(spec, "WGS84") {
		return geodesy.WGS84(), nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("--ellipsoid: expected \"WGS84\" or \"a,b\" semi-axes, got %q", spec)
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errA != nil || errB != nil {
		return nil, fmt.Errorf("--ellipsoid: bad semi-axes in %q", spec)
	}
	return geodesy.NewEllipsoid(a, b), nil
}

// fitToLevel1 reduces the native-resolution view-vector table to the
// level-1 image's own sample grid: spatial binning averaged down, then
// the "x start" lead columns trimmed off.
func fitToLevel1(vv *viewvector.Table, lev1 *raster.Header) (*viewvector.Table, error) {
	spatBin := 1
	if vals, ok := lev1.StringSliceKey("binning"); ok && len(vals) >= 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(vals[1])); err == nil && n > 0 {
			spatBin = n
		}
	}
	xStart := 0
	if v, ok := lev1.Raw["x start"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			xStart = n
		}
	}
	if spatBin == 1 && xStart == 0 && vv.CCDRows == lev1.Samples {
		return vv, nil
	}
	return vv.BinAndTrim(spatBin, xStart, lev1.Samples)
}

func run(cCtx *cli.Context) error {
	vvPath := cCtx.String("vvfile")
	navPath := cCtx.String("navfile")
	igmPath := cCtx.String("igmfile")
	if vvPath == "" || navPath == "" || igmPath == "" {
		return errors.New("--vvfile, --navfile and --igmfile are required")
	}

	navDS, err := openDataset(navPath)
	if err != nil {
		return fmt.Errorf("opening navigation file: %w", err)
	}
	defer navDS.Close()
	nav, err := navigation.Open(navDS)
	if err != nil {
		return fmt.Errorf("parsing navigation file: %w", err)
	}

	vvDS, err := openDataset(vvPath)
	if err != nil {
		return fmt.Errorf("opening view-vector file: %w", err)
	}
	defer vvDS.Close()
	vv, err := viewvector.Load(vvDS)
	if err != nil {
		return fmt.Errorf("parsing view-vector table: %w", err)
	}

	var lev1 *raster.Header
	if lev1Path := cCtx.String("lev1file"); lev1Path != "" {
		lev1DS, err := openDataset(lev1Path)
		if err != nil {
			return fmt.Errorf("opening level-1 file: %w", err)
		}
		lev1 = lev1DS.Header
		lev1DS.Close()
		vv, err = fitToLevel1(vv, lev1)
		if err != nil {
			return fmt.Errorf("%w: %v", geocorrection.ErrViewVectorCountMismatch, err)
		}
	}

	lowerScan, upperScan := 0, nav.TotalScans()
	if err := nav.CheckMonotonicTime(lowerScan, upperScan); err != nil {
		return err
	}

	ell, err := resolveEllipsoid(cCtx.String("ellipsoid"))
	if err != nil {
		return err
	}
	method := geocorrection.Combined
	if cCtx.Bool("vvsplit") {
		method = geocorrection.Split
	}
	maxViewAngle := cCtx.Float64("maxvvangle")
	if maxViewAngle <= 0 {
		maxViewAngle = geocorrection.DefaultMaxAllowedViewVectorAngle
	}

	pipeline := &geocorrection.Pipeline{
		Nav: nav,
		VV:  vv,
		Config: geocorrection.Config{
			Ellipsoid:    ell,
			HeightOffset: cCtx.Float64("heightoffset"),
			Boresight: geocorrection.Boresight{
				Theta: cCtx.Float64("boresight-theta"),
				Phi:   cCtx.Float64("boresight-phi"),
				Kappa: cCtx.Float64("boresight-kappa"),
			},
			Method:             method,
			MaxViewVectorAngle: maxViewAngle,
		},
	}

	// bufferAngle bounds the DEM AOI by the widest look the table can
	// produce, boresight included; the horizon guard has its own limit.
	bufferAngle := vv.AbsMaxX() + math.Abs(cCtx.Float64("boresight-theta"))

	sections := [][2]int{{lowerScan, upperScan}}
	var demFile *dem.DEM
	var demStore *dem.Store
	if demPath := cCtx.String("dem"); demPath != "" {
		ds, err := openDataset(demPath)
		if err != nil {
			return fmt.Errorf("opening dem: %w", err)
		}
		defer ds.Close()
		demFile, err = dem.Open(ds)
		if err != nil {
			return fmt.Errorf("parsing dem: %w", err)
		}
		if storeURI := cCtx.String("demstore"); storeURI != "" {
			config, err := tiledb.NewConfig()
			if err != nil {
				return err
			}
			defer config.Free()
			tdbCtx, err := tiledb.NewContext(config)
			if err != nil {
				return err
			}
			defer tdbCtx.Free()
			if cCtx.Bool("stage-demstore") {
				heights, err := ds.ReadBand(0)
				if err != nil {
					return fmt.Errorf("reading dem for staging: %w", err)
				}
				demStore, err = dem.CreateStore(tdbCtx, storeURI, demFile.Rows(), demFile.Cols())
				if err != nil {
					return err
				}
				if err := demStore.WriteFull(heights); err != nil {
					return err
				}
			} else {
				demStore = dem.OpenStore(tdbCtx, storeURI, demFile.Rows(), demFile.Cols())
			}
		}
		sections, err = demSections(demFile, ell, nav, lowerScan, upperScan, bufferAngle)
		if err != nil {
			return err
		}
		pipeline.Walker = dem.NewWalker(demFile, ell)
	}

	samples := vv.CCDRows
	igmHeader := &raster.Header{
		Samples: samples, Lines: 0, Bands: 3,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	igm, err := createDataset(igmPath, igmHeader)
	if err != nil {
		return fmt.Errorf("creating igm file: %w", err)
	}
	defer igm.Close()

	var atmos *raster.Dataset
	atmosHeader := &raster.Header{
		Samples: samples, Lines: 0, Bands: 5,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	if atmosPath := cCtx.String("atmosfile"); atmosPath != "" {
		atmos, err = createDataset(atmosPath, atmosHeader)
		if err != nil {
			return fmt.Errorf("creating atmospheric file: %w", err)
		}
		defer atmos.Close()
	}

	tally := &report.Tally{}
	nLines := 0
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for _, sec := range sections {
		if demFile != nil {
			if err := loadSection(demFile, demStore, ell, nav, sec[0], sec[1], bufferAngle); err != nil {
				return err
			}
		}
		for scan := sec[0]; scan < sec[1]; scan++ {
			res, err := pipeline.LocateLine(scan)
			if err != nil {
				return fmt.Errorf("locating scan %d: %w", scan, err)
			}
			igmLine := make([]float64, 3*samples)
			for i := 0; i < samples; i++ {
				igmLine[0*samples+i] = res.Lon[i]
				igmLine[1*samples+i] = res.Lat[i]
				igmLine[2*samples+i] = res.Hei[i]
				if res.Lon[i] != geocorrection.BadDataValue {
					minX = math.Min(minX, res.Lon[i])
					maxX = math.Max(maxX, res.Lon[i])
					minY = math.Min(minY, res.Lat[i])
					maxY = math.Max(maxY, res.Lat[i])
				}
			}
			if err := igm.WriteLine(igmLine); err != nil {
				return err
			}
			if atmos != nil {
				atmosLine := make([]float64, 5*samples)
				for i := 0; i < samples; i++ {
					atmosLine[0*samples+i] = res.ViewAzimuth[i]
					atmosLine[1*samples+i] = res.ViewZenith[i]
					atmosLine[2*samples+i] = res.SlantDistance[i]
					atmosLine[3*samples+i] = res.Slope[i]
					atmosLine[4*samples+i] = res.Aspect[i]
				}
				if err := atmos.WriteLine(atmosLine); err != nil {
					return err
				}
			}
			nLines++
		}
	}
	tally.AddAboveHorizon(pipeline.BadPixelCount)

	igmHeader.Lines = nLines
	igmHeader.AddToHdr("data ignore value", strconv.FormatFloat(geocorrection.BadDataValue, 'f', -1, 64))
	if lev1 != nil {
		if v, ok := lev1.Raw["x start"]; ok {
			igmHeader.AddToHdr("x start", v)
		}
		if v, ok := lev1.Raw["y start"]; ok {
			igmHeader.AddToHdr("y start", v)
		}
	}
	if nLines > 0 && minX <= maxX {
		igmHeader.AddToHdr(fmt.Sprintf(";Min X = %f", minX), "")
		igmHeader.AddToHdr(fmt.Sprintf(";Max X = %f", maxX), "")
		igmHeader.AddToHdr(fmt.Sprintf(";Min Y = %f", minY), "")
		igmHeader.AddToHdr(fmt.Sprintf(";Max Y = %f", maxY), "")
	}
	if err := writeHeaderFile(igmPath, igmHeader); err != nil {
		return err
	}
	if atmos != nil {
		atmosHeader.Lines = nLines
		if err := writeHeaderFile(cCtx.String("atmosfile"), atmosHeader); err != nil {
			return err
		}
	}

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
		Name:  "geolocate",
		Usage: "geolocate a calibrated level-1 image against the ellipsoid or a dem",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "vvfile", Usage: "view-vector table file (V)"},
			&cli.StringFlag{Name: "navfile", Usage: "navigation record file (N)"},
			&cli.StringFlag{Name: "igmfile", Usage: "output igm lon/lat/height file (IGM)"},
			&cli.StringFlag{Name: "lev1file", Usage: "calibrated level-1 image (L1), for binning/trim and shape cross-checks"},
			&cli.Float64Flag{Name: "boresight-theta", Usage: "boresight rotation theta (degrees)"},
			&cli.Float64Flag{Name: "boresight-phi", Usage: "boresight rotation phi (degrees)"},
			&cli.Float64Flag{Name: "boresight-kappa", Usage: "boresight rotation kappa (degrees)"},
			&cli.StringFlag{Name: "ellipsoid", Value: "WGS84", Usage: "reference ellipsoid"},
			&cli.Float64Flag{Name: "heightoffset", Usage: "constant height offset applied to the ellipsoid intersection"},
			&cli.BoolFlag{Name: "vvsplit", Usage: "apply the boresight rotation separately from aircraft attitude"},
			&cli.StringFlag{Name: "dem", Usage: "dem file to intersect view vectors against instead of the ellipsoid"},
			&cli.StringFlag{Name: "demstore", Usage: "tiledb dense array uri to read dem aoi crops from instead of the dem file's data"},
			&cli.BoolFlag{Name: "stage-demstore", Usage: "create and populate the demstore array from the dem file before processing"},
			&cli.StringFlag{Name: "atmosfile", Usage: "output ancillary view-geometry/slope file"},
			&cli.Float64Flag{Name: "maxvvangle", Usage: "maximum allowed view vector angle from nadir (degrees)"},
			&cli.StringFlag{Name: "summary", Usage: "uri to write the end-of-run summary"},
			&cli.StringFlag{Name: "tiledb-config", Usage: "uri to a tiledb config file"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
