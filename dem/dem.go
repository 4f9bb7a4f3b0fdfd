// Package dem provides Digital Elevation Model access: a single-band
// BIL raster in Geographic Lat/Lon WGS-84, cropped to an Area of
// Interest, with the triangular-facet geometry and grid-walk search the
// Geocorrection Pipeline uses to intersect a pixel's line of sight with
// terrain.
package dem

import (
	"math"
	"strconv"
	"strings"

	"github.com/arsf-go/hyperspec/raster"
)

// DEMOutOfBounds is returned by GetHeight, with a nil error, when the
// requested position falls outside the currently-loaded AOI;
// GetNearest3Points reports such a position as ok == false.
const DEMOutOfBounds = -99900999.0

// defaultDataIgnoreValue is used when a DEM header carries no "data
// ignore value" key.
const defaultDataIgnoreValue = -99999999.0

func rounded(x float64) int { return int(x + 0.5) }

// Vertex names one of the four AOI corner values.
type Vertex int

const (
	LLX Vertex = iota
	LLY
	URX
	URY
)

// AOI is the lower-left/upper-right rectangle (in DEM coordinate
// units, i.e. longitude/latitude) a DEM is currently cropped to.
type AOI struct {
	llx, lly, urx, ury float64
	set                bool
}

// Get returns one corner's coordinate value.
func (a *AOI) Get(v Vertex) float64 {
	switch v {
	case LLX:
		return a.llx
	case LLY:
		return a.lly
	case URX:
		return a.urx
	case URY:
		return a.ury
	}
	return 0
}

// Set replaces the rectangle, rejecting an inverted corner pair.
func (a *AOI) Set(llx, lly, urx, ury float64) bool {
	if llx > urx || lly > ury {
		return false
	}
	a.llx, a.lly, a.urx, a.ury = llx, lly, urx, ury
	a.set = true
	return true
}

// DEM wraps a single-band BIL elevation raster in Geographic Lat/Lon
// WGS-84, exposing coordinate<->cell transforms and an Area of
// Interest crop that can be loaded into memory for repeated height
// lookups.
type DEM struct {
	ds               *raster.Dataset
	aoi              AOI
	minx, maxx       float64
	miny, maxy       float64
	xspace, yspace   float64
	refx, refy       float64
	refc, refr       float64
	ncols, nrows     int
	dataIgnoreValue  float64
	data             []float64 // loaded AOI crop, row-major over the AOI cell grid
	aoiRows, aoiCols int

	// lastSnap short-circuits re-snapping when SetAOI is called again
	// with the rectangle it last snapped (repeated section loads).
	lastSnap   [4]float64
	lastSnapOK bool
}

// Open wraps an already-parsed single-band DEM Dataset, validating its
// header and deriving the file's coordinate bounds from its "map info"
// reference pixel.
func Open(ds *raster.Dataset) (*DEM, error) {
	if err := checkSupport(ds.Header); err != nil {
		return nil, err
	}
	mapInfo, _ := ds.Header.StringSliceKey("map info")
	field := func(i int) float64 {
		if i < len(mapInfo) {
			v, _ := parseFloat(mapInfo[i])
			return v
		}
		return 0
	}
	refc := field(1)
	refr := field(2)
	refx := field(3)
	refy := field(4)
	xspace := field(5)
	yspace := field(6)

	div := defaultDataIgnoreValue
	if v, err := ds.Header.FloatKey("data ignore value"); err == nil {
		div = v
	}

	nrows, ncols := ds.Header.Lines, ds.Header.Samples
	d := &DEM{
		ds:              ds,
		xspace:          xspace,
		yspace:          yspace,
		refx:            refx,
		refy:            refy,
		refc:            refc,
		refr:            refr,
		ncols:           ncols,
		nrows:           nrows,
		dataIgnoreValue: div,
	}
	// refc-1/refr-1 because the reference pixel convention is 1,1 at
	// the top-left pixel.
	d.minx = refx - (refc-1)*xspace
	d.maxx = refx + (float64(ncols)-(refc-1))*xspace
	d.miny = refy - (float64(nrows)-(refr-1))*yspace
	d.maxy = refy + (refr-1)*yspace
	return d, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func checkSupport(h *raster.Header) error {
	if h.Bands != 1 {
		return ErrNotSupported
	}
	mapInfo, ok := h.StringSliceKey("map info")
	if !ok || len(mapInfo) == 0 {
		return ErrNotSupported
	}
	joined := strings.Join(mapInfo, " ")
	if !strings.Contains(joined, "Geographic Lat/Lon") || !strings.Contains(joined, "WGS-84") {
		return ErrNotSupported
	}
	return nil
}

// XSpace and YSpace are the DEM's grid cell spacing in its native
// coordinate units (degrees for a Geographic Lat/Lon DEM).
func (d *DEM) XSpace() float64 { return d.xspace }
func (d *DEM) YSpace() float64 { return d.yspace }

// Rows and Cols are the full file's cell-grid dimensions.
func (d *DEM) Rows() int { return d.nrows }
func (d *DEM) Cols() int { return d.ncols }

// X2C converts a longitude to a (fractional) file column, or -1 if it
// falls outside the file's column range.
func (d *DEM) X2C(x float64) float64 {
	c := (x - d.minx) / d.xspace
	if c >= 0 && c <= float64(d.ncols)+0.5 {
		return c
	}
	return -1
}

// Y2R converts a latitude to a (fractional) file row, or -1 if it
// falls outside the file's row range.
func (d *DEM) Y2R(y float64) float64 {
	r := (d.maxy - y) / d.yspace
	if r >= 0 && r <= float64(d.nrows)+0.5 {
		return r
	}
	return -1
}

// C2X converts a file column to its longitude. Not bounds-checked.
func (d *DEM) C2X(c float64) float64 { return d.minx + c*d.xspace }

// R2Y converts a file row to its latitude. Not bounds-checked.
func (d *DEM) R2Y(r float64) float64 { return d.maxy - r*d.yspace }

// SetAOI crops the DEM to the given lower-left/upper-right rectangle,
// snapping it out to whole grid cells, failing if the rectangle is not
// fully contained in the DEM's bounds.
func (d *DEM) SetAOI(llx, lly, urx, ury float64) bool {
	if !(llx >= d.minx && lly >= d.miny && urx <= d.maxx && ury <= d.maxy) {
		return false
	}
	if d.lastSnapOK && d.lastSnap == [4]float64{llx, lly, urx, ury} {
		return true
	}
	d.aoi.Set(llx, lly, urx, ury)
	if !d.fitAOIToGrid() {
		d.lastSnapOK = false
		return false
	}
	d.lastSnap = [4]float64{llx, lly, urx, ury}
	d.lastSnapOK = true
	return true
}

// fitAOIToGrid extends the AOI out to the nearest enclosing grid lines
// so the crop always holds an integer number of cells.
func (d *DEM) fitAOIToGrid() bool {
	nc := math.Floor((d.aoi.Get(LLX) - d.minx) / d.xspace)
	newllx := d.minx + nc*d.xspace
	nc = math.Ceil((d.aoi.Get(URX) - d.minx) / d.xspace)
	newurx := d.minx + nc*d.xspace
	nc = math.Floor((d.maxy - d.aoi.Get(URY)) / d.yspace)
	newury := d.maxy - nc*d.yspace
	nc = math.Ceil((d.maxy - d.aoi.Get(LLY)) / d.yspace)
	newlly := d.maxy - nc*d.yspace
	return d.aoi.Set(newllx, newlly, newurx, newury)
}

// GetAOI returns one corner of the current Area of Interest.
func (d *DEM) GetAOI(v Vertex) float64 { return d.aoi.Get(v) }

func (d *DEM) cellBounds(llx, lly, urx, ury float64) (minrow, maxrow, mincol, maxcol int, err error) {
	minrow = rounded(d.Y2R(ury))
	maxrow = rounded(d.Y2R(lly))
	mincol = rounded(d.X2C(llx))
	maxcol = rounded(d.X2C(urx))
	if minrow > maxrow || mincol > maxcol {
		return 0, 0, 0, 0, ErrMinGreaterThanMax
	}
	if minrow < 0 || maxrow < 0 || mincol < 0 || maxcol < 0 {
		return 0, 0, 0, 0, ErrNegativeIndex
	}
	if ury > d.maxy || urx > d.maxx {
		return 0, 0, 0, 0, ErrOutOfDEMBounds
	}
	return minrow, maxrow, mincol, maxcol, nil
}

// FillArray reads the data for the current AOI into memory, replacing
// any previously-loaded crop.
func (d *DEM) FillArray() error {
	minrow, maxrow, mincol, maxcol, err := d.cellBounds(d.aoi.Get(LLX), d.aoi.Get(LLY), d.aoi.Get(URX), d.aoi.Get(URY))
	if err != nil {
		return err
	}
	rows := maxrow - minrow + 1
	cols := maxcol - mincol + 1
	vals, err := d.ds.ReadRect(0, minrow, rows, mincol, cols)
	if err != nil {
		return err
	}
	d.data = vals
	d.aoiRows, d.aoiCols = rows, cols
	return nil
}

// FillArrayFromStore reads the data for the current AOI from a
// TileDB-backed Store instead of the BIL dataset, for DEMs staged into
// a dense array (object-store reads, repeated sections).
func (d *DEM) FillArrayFromStore(s *Store) error {
	minrow, maxrow, mincol, maxcol, err := d.cellBounds(d.aoi.Get(LLX), d.aoi.Get(LLY), d.aoi.Get(URX), d.aoi.Get(URY))
	if err != nil {
		return err
	}
	vals, err := s.ReadAOI(minrow, maxrow, mincol, maxcol)
	if err != nil {
		return err
	}
	d.data = vals
	d.aoiRows, d.aoiCols = maxrow-minrow+1, maxcol-mincol+1
	return nil
}

// GetAOICell returns the index into the loaded AOI crop that covers
// the given longitude/latitude, or false if the position falls
// outside the current AOI.
func (d *DEM) GetAOICell(lon, lat float64) (int, bool) {
	toonorth := d.aoi.Get(URY) - lat
	toosouth := lat - d.aoi.Get(LLY)
	toowest := lon - d.aoi.Get(LLX)
	tooeast := d.aoi.Get(URX) - lon
	if toowest < 0 || tooeast < 0 || toonorth < 0 || toosouth < 0 {
		return 0, false
	}
	latdiff := d.aoi.Get(URY) - lat
	londiff := lon - d.aoi.Get(LLX)
	ycell := latdiff / d.yspace
	xcell := londiff / d.xspace

	ncells := rounded(d.X2C(d.aoi.Get(URX))) - rounded(d.X2C(d.aoi.Get(LLX))) + 1
	cell := int(math.Floor(ycell+0.01))*ncells + int(math.Floor(xcell+0.01))
	return cell, true
}

// GetHeight returns the elevation at the given longitude/latitude from
// the loaded AOI crop. A position outside the AOI yields DEMOutOfBounds
// with a nil error; an unloaded crop yields ErrDataNotLoaded and a cell
// holding the data-ignore value yields ErrNullValue.
func (d *DEM) GetHeight(lon, lat float64) (float64, error) {
	cell, ok := d.GetAOICell(lon, lat)
	if !ok {
		return DEMOutOfBounds, nil
	}
	if d.data == nil {
		return 0, ErrDataNotLoaded
	}
	if cell < 0 || cell >= len(d.data) {
		return DEMOutOfBounds, nil
	}
	v := d.data[cell]
	if v == d.dataIgnoreValue {
		return 0, ErrNullValue
	}
	return v, nil
}

// GetNearest3Points finds the 3 nearest DEM cell centres to (lon, lat)
// and their heights, for seeding a triangular facet. The second and
// third points are chosen along the latitude/longitude axis in the
// direction of the residual between the raw position and the nearest
// cell centre, so the facet always contains the query point.
func (d *DEM) GetNearest3Points(lon, lat float64) (lats, lons, heis [3]float64, ok bool) {
	c := d.X2C(lon)
	r := d.Y2R(lat)
	if r == -1 || c == -1 {
		return lats, lons, heis, false
	}
	c = math.Trunc(c + 0.5)
	r = math.Trunc(r + 0.5)
	clat := d.R2Y(r)
	clon := d.C2X(c)
	lats[0], lons[0] = clat, clon

	londiff := lon - clon
	latdiff := lat - clat
	if londiff > 0 {
		lons[1] = clon + d.xspace
	} else {
		lons[1] = clon - d.xspace
	}
	lats[1] = clat
	lons[2] = clon
	if latdiff > 0 {
		lats[2] = clat + d.yspace
	} else {
		lats[2] = clat - d.yspace
	}

	for i := 0; i < 3; i++ {
		h, err := d.GetHeight(lons[i], lats[i])
		if err != nil || h == DEMOutOfBounds {
			return lats, lons, heis, false
		}
		heis[i] = h
	}
	return lats, lons, heis, true
}

// OnCellBound reports whether (lat, lon) falls within epsilon of a
// DEM cell boundary, and if so which axis: 1 = x only, 2 = y only,
// 3 = both.
func (d *DEM) OnCellBound(lat, lon float64) (onBound bool, axis int) {
	epsilon := math.Min(d.xspace, d.yspace) / 100.0
	xpos := (lon - d.refx) / d.xspace
	xpos -= math.Trunc(xpos)
	ypos := (d.refy - lat) / d.yspace
	ypos -= math.Trunc(ypos)

	xOn := xpos > -epsilon && xpos < epsilon
	yOn := ypos > -epsilon && ypos < epsilon
	switch {
	case xOn && yOn:
		return true, 3
	case xOn:
		return true, 1
	case yOn:
		return true, 2
	}
	return false, 0
}
