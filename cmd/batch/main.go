// Command batch fans a calibrate+geolocate run out over every raw
// flight line found under a directory (or object-store URI), using a
// fixed-size worker pool so independent flight lines process
// concurrently while each flight line's own scan lines are still
// processed strictly in order.
package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"
)

// trawl recursively lists uri through TileDB's VFS abstraction,
// collecting every file whose basename matches pattern, working
// uniformly over a local path or an object-store URI.
func trawl(vfs *tiledb.VFS, pattern, uri string, items []string) []string {
	dirs, files, err := vfs.List(uri)
	if err != nil {
		return items
	}
	for _, file := range files {
		if match, _ := filepath.Match(pattern, filepath.Base(file)); match {
			items = append(items, file)
		}
	}
	for _, dir := range dirs {
		items = trawl(vfs, pattern, dir, items)
	}
	return items
}

// findRawFiles searches uri for raw imagery files (".raw" by
// convention; their ".raw.hdr" sidecar is assumed to sit alongside).
func findRawFiles(uri, configURI string) ([]string, error) {
	var (
		config *tiledb.Config
		err    error
	)
	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return nil, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return nil, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return nil, err
	}
	defer vfs.Free()

	return trawl(vfs, "*.raw", uri, nil), nil
}

// flightLine holds the raw, calibrated, view-vector, navigation and igm
// paths for one raw flight line; planFlightLine derives the calibrated
// and igm paths from the raw file's basename under the output directory
// and shares the view-vector and navigation files across the batch.
type flightLine struct {
	raw, calibrated, vvfile, navfile, igmfile string
}

func planFlightLine(rawPath, outdir, vvfile, navfile string) flightLine {
	base := strings.TrimSuffix(filepath.Base(rawPath), ".raw")
	return flightLine{
		raw:        rawPath,
		calibrated: filepath.Join(outdir, base+"1b.bil"),
		vvfile:     vvfile,
		navfile:    navfile,
		igmfile:    filepath.Join(outdir, base+".igm"),
	}
}

// processFlightLine shells out to the calibrate and geolocate
// commands for one flight line. Running each stage as its own process
// keeps a worker's memory footprint bounded to one flight line
// regardless of how many run concurrently in the pool.
func processFlightLine(ctx context.Context, fl flightLine, calfile, demPath, binDir string) error {
	calibrateBin := filepath.Join(binDir, "calibrate")
	geolocateBin := filepath.Join(binDir, "geolocate")

	calArgs := []string{"--input", fl.raw, "--output", fl.calibrated}
	if calfile != "" {
		calArgs = append(calArgs, "--calfile", calfile)
	}
	cmd := exec.CommandContext(ctx, calibrateBin, calArgs...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return err
	}

	geoArgs := []string{
		"--vvfile", fl.vvfile, "--navfile", fl.navfile,
		"--igmfile", fl.igmfile, "--lev1file", fl.calibrated,
	}
	if demPath != "" {
		geoArgs = append(geoArgs, "--dem", demPath)
	}
	cmd = exec.CommandContext(ctx, geolocateBin, geoArgs...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}

func run(cCtx *cli.Context) error {
	uri := cCtx.String("uri")
	outdir := cCtx.String("outdir")
	configURI := cCtx.String("tiledb-config")

	log.Println("searching for raw flight lines:", uri)
	rawFiles, err := findRawFiles(uri, configURI)
	if err != nil {
		return err
	}
	log.Println("number of flight lines to process:", len(rawFiles))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := runtime.NumCPU()
	if w := cCtx.Int("workers"); w > 0 {
		n = w
	}
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, rawPath := range rawFiles {
		fl := planFlightLine(rawPath, outdir, cCtx.String("vvfile"), cCtx.String("navfile"))
		calfile := cCtx.String("calfile")
		demPath := cCtx.String("dem")
		binDir := cCtx.String("bindir")
		pool.Submit(func() {
			if err := processFlightLine(ctx, fl, calfile, demPath, binDir); err != nil {
				log.Printf("flight line %s failed: %v", fl.raw, err)
			}
		})
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "batch",
		Usage: "calibrate and geolocate every raw flight line under a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "uri", Usage: "directory or object-store uri containing raw flight lines"},
			&cli.StringFlag{Name: "outdir", Usage: "output directory for calibrated/igm products"},
			&cli.StringFlag{Name: "calfile", Usage: "calibration file prefix shared across flight lines"},
			&cli.StringFlag{Name: "vvfile", Usage: "view-vector table file shared across flight lines"},
			&cli.StringFlag{Name: "navfile", Usage: "navigation record file shared across flight lines"},
			&cli.StringFlag{Name: "dem", Usage: "dem file to geolocate against"},
			&cli.StringFlag{Name: "tiledb-config", Usage: "uri to a tiledb config file"},
			&cli.StringFlag{Name: "bindir", Usage: "directory containing the calibrate/geolocate binaries", Value: "."},
			&cli.IntFlag{Name: "workers", Usage: "worker pool size, defaults to numcpu"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
