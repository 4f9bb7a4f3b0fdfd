// Package viewvector loads the per-pixel boresight rotation table
// (rotX, rotY, rotZ per CCD column/row) consumed by the Geocorrection
// Pipeline to build each pixel's look vector.
package viewvector

import "github.com/arsf-go/hyperspec/raster"

// Table is the per-(ccd column, ccd row) rotation angle set, stored
// band-major as read from its 3-band raster (X, Y, Z rotation angles).
type Table struct {
	RotX, RotY, RotZ []float64
	CCDRows          int // "samples" axis: across-track CCD position
	CCDCols          int // "lines" axis: along-track angle set
}

// Load reads a 3-band (rotX, rotY, rotZ) view-vector raster in full.
func Load(ds *raster.Dataset) (*Table, error) {
	if ds.Header.Bands != 3 {
		return nil, ErrBandCount
	}
	rows, cols := ds.Header.Samples, ds.Header.Lines
	x, err := ds.ReadBand(0)
	if err != nil {
		return nil, err
	}
	y, err := ds.ReadBand(1)
	if err != nil {
		return nil, err
	}
	z, err := ds.ReadBand(2)
	if err != nil {
		return nil, err
	}
	return &Table{RotX: x, RotY: y, RotZ: z, CCDRows: rows, CCDCols: cols}, nil
}

// At returns the rotation angles for CCD (row, col).
func (t *Table) At(row, col int) (rx, ry, rz float64) {
	idx := col*t.CCDRows + row
	return t.RotX[idx], t.RotY[idx], t.RotZ[idx]
}

// ApplyAngleRotations adds a constant boresight offset to every cell of
// the table, in place.
func (t *Table) ApplyAngleRotations(rx, ry, rz float64) {
	for i := range t.RotX {
		t.RotX[i] += rx
		t.RotY[i] += ry
		t.RotZ[i] += rz
	}
}

// AbsMaxX returns the largest magnitude rotX value among the table's
// first and last cells, used as a quick sanity bound on view-vector
// spread.
func (t *Table) AbsMaxX() float64 {
	n := len(t.RotX)
	if n == 0 {
		return 0
	}
	a, b := abs(t.RotX[0]), abs(t.RotX[n-1])
	if a > b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// BinAndTrim reduces a view-vector table read at native CCD resolution
// down to the calibrated level-1 image's own sample grid: consecutive
// groups of spatBin CCD rows are averaged, then the result is trimmed
// to [xStart, xStart+l1Samples) to drop the FODIS/unused columns the
// level-1 file never carries.
func (t *Table) BinAndTrim(spatBin, xStart, l1Samples int) (*Table, error) {
	if spatBin <= 0 {
		return nil, ErrInvalidBinning
	}
	binnedRows := t.CCDRows / spatBin
	binnedX := make([]float64, binnedRows*t.CCDCols)
	binnedY := make([]float64, binnedRows*t.CCDCols)
	binnedZ := make([]float64, binnedRows*t.CCDCols)

	for c := 0; c < t.CCDCols; c++ {
		for p := 0; p < binnedRows; p++ {
			var sx, sy, sz float64
			for b := 0; b < spatBin; b++ {
				idx := c*t.CCDRows + spatBin*p + b
				sx += t.RotX[idx]
				sy += t.RotY[idx]
				sz += t.RotZ[idx]
			}
			out := c*binnedRows + p
			binnedX[out] = sx / float64(spatBin)
			binnedY[out] = sy / float64(spatBin)
			binnedZ[out] = sz / float64(spatBin)
		}
	}

	trimmedRows := binnedRows - xStart
	if trimmedRows != l1Samples {
		return nil, ErrSampleMismatch
	}
	trimX := make([]float64, trimmedRows*t.CCDCols)
	trimY := make([]float64, trimmedRows*t.CCDCols)
	trimZ := make([]float64, trimmedRows*t.CCDCols)
	for c := 0; c < t.CCDCols; c++ {
		for i := 0; i < trimmedRows; i++ {
			trimX[c*trimmedRows+i] = binnedX[c*binnedRows+xStart+i]
			trimY[c*trimmedRows+i] = binnedY[c*binnedRows+xStart+i]
			trimZ[c*trimmedRows+i] = binnedZ[c*binnedRows+xStart+i]
		}
	}
	return &Table{RotX: trimX, RotY: trimY, RotZ: trimZ, CCDRows: trimmedRows, CCDCols: t.CCDCols}, nil
}
