// Package report accumulates the end-of-run warning/error tally and
// flushes it through the same TileDB VFS write path the rest of the
// module uses for small side-channel artifacts.
package report

import "fmt"

// Tally is the running count of non-fatal warning categories a
// calibration or geocorrection run accumulates, printed once at the end
// of the run.
type Tally struct {
	FodisEmptyBands       int
	LowCoverageDarkPixels int
	AboveHorizonPixels    int
	BadPixelMethodsSeen   []uint8
}

// AddFodisEmpty records n bands whose FODIS region had no contributing
// non-zero samples for a scan line.
func (t *Tally) AddFodisEmpty(n int) { t.FodisEmptyBands += n }

// AddLowCoverageDarkPixels records n dark-frame pixels whose refined
// mean averaged fewer than half of the available dark frames.
func (t *Tally) AddLowCoverageDarkPixels(n int) { t.LowCoverageDarkPixels += n }

// AddAboveHorizon records n pixels rejected by the geocorrection
// horizon guard.
func (t *Tally) AddAboveHorizon(n int) { t.AboveHorizonPixels += n }

// Summary renders the tally as the single diagnostic block printed
// before exit, one line per category, zero counts included.
func (t *Tally) Summary() string {
	s := "run summary:\n"
	s += fmt.Sprintf("  fodis-empty-bands: %d\n", t.FodisEmptyBands)
	s += fmt.Sprintf("  low-coverage-dark-pixels: %d\n", t.LowCoverageDarkPixels)
	s += fmt.Sprintf("  above-horizon-pixels: %d\n", t.AboveHorizonPixels)
	s += fmt.Sprintf("  bad-pixel-methods-seen: %v\n", t.BadPixelMethodsSeen)
	return s
}
