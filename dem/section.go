package dem

import (
	"math"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/navigation"
)

// MaxAOIBytes is the in-memory RAM ceiling for one DEM AOI crop. A
// section whose required read would exceed this is bisected and
// re-evaluated.
const MaxAOIBytes = 2 * 1024 * 1024 * 1024

const bytesPerCell = 8 // AOI crop is held as []float64

// SectionBounds is the lower-left/upper-right rectangle, in DEM map
// coordinates, a navigation section's AOI should be snapped to.
type SectionBounds struct {
	LLX, LLY, URX, URY float64
}

// BufferDegrees is the approximate degree buffer added on every side of
// a flight section's footprint to guarantee the section's most oblique
// view vector still lands inside the loaded AOI: tan(|roll|+angle) *
// height, converted from metres to degrees at the section's mid
// latitude, plus one extra cell of slack.
func BufferDegrees(ell *geodesy.Ellipsoid, maxAbsRoll, maxAbsViewAngle, height, midLat, cellSpace float64) float64 {
	const deg2rad = math.Pi / 180.0
	metresBuffer := math.Tan((maxAbsRoll+maxAbsViewAngle)*deg2rad) * height
	degBuffer := metresBuffer / ell.MetresPerDegreeAt(midLat)
	return degBuffer + cellSpace
}

// SectionAOI derives the lower-left/upper-right rectangle a navigation
// section needs loaded, from its lat/lon/height/roll extents and the
// sensor's maximum absolute cross-track view angle, then snapped
// outward to the DEM's cell grid by SetAOI.
func SectionAOI(d *DEM, ell *geodesy.Ellipsoid, lim navigation.Limits, maxAbsViewAngle float64) (SectionBounds, bool) {
	maxAbsRoll := math.Max(math.Abs(lim.MinRoll), math.Abs(lim.MaxRoll))
	midLat := (lim.MinLat + lim.MaxLat) / 2
	bufLon := BufferDegrees(ell, maxAbsRoll, maxAbsViewAngle, lim.MaxHei, midLat, d.XSpace())
	bufLat := BufferDegrees(ell, maxAbsRoll, maxAbsViewAngle, lim.MaxHei, midLat, d.YSpace())

	llx := lim.MinLon - bufLon
	urx := lim.MaxLon + bufLon
	lly := lim.MinLat - bufLat
	ury := lim.MaxLat + bufLat

	ok := d.SetAOI(llx, lly, urx, ury)
	return SectionBounds{LLX: d.GetAOI(LLX), LLY: d.GetAOI(LLY), URX: d.GetAOI(URX), URY: d.GetAOI(URY)}, ok
}

// AOIBytes estimates the in-memory size of the current AOI crop.
func (d *DEM) AOIBytes() int64 {
	cols := math.Round((d.aoi.Get(URX) - d.aoi.Get(LLX)) / d.xspace)
	rows := math.Round((d.aoi.Get(URY) - d.aoi.Get(LLY)) / d.yspace)
	return int64(rows) * int64(cols) * bytesPerCell
}

// Bisect splits [lowerScan, upperScan) into two halves, used when a
// section's AOI would exceed MaxAOIBytes; the caller re-evaluates
// SectionAOI for each half and recurses until every sub-section fits.
func Bisect(lowerScan, upperScan int) (int, int, int, int) {
	mid := lowerScan + (upperScan-lowerScan)/2
	return lowerScan, mid, mid, upperScan
}
