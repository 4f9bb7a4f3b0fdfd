package dem

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/arsf-go/hyperspec/raster"
)

// memStream is a minimal in-memory raster.Stream backed by a fixed
// byte slice, used to build small synthetic DEMs for testing.
type memStream struct {
	buf []byte
	pos int64
}

func (m *memStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memStream) Close() error { return nil }

// flatDEM builds a 5x5 degree-spaced DEM, every cell holding
// constHeight, spanning lon [-1.0, 1.5], lat [-1.5, 1.0].
func flatDEM(t *testing.T, constHeight float64) *DEM {
	t.Helper()
	const n = 5
	buf := make([]byte, n*n*8)
	for i := 0; i < n*n; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(constHeight))
	}
	h := &raster.Header{
		Samples:    n,
		Lines:      n,
		Bands:      1,
		DataType:   raster.F64,
		Interleave: raster.BIL,
		Raw:        map[string]string{},
		MultiValued: map[string][]string{
			"map info": {"Geographic Lat/Lon", "1", "1", "-1.0", "1.0", "0.5", "0.5", "WGS-84"},
		},
	}
	ds := raster.Open(&memStream{buf: buf}, h)
	d, err := Open(ds)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

func TestOpenRejectsMissingMapInfo(t *testing.T) {
	h := &raster.Header{Samples: 1, Lines: 1, Bands: 1, DataType: raster.F64, Interleave: raster.BIL, Raw: map[string]string{}, MultiValued: map[string][]string{}}
	ds := raster.Open(&memStream{buf: make([]byte, 8)}, h)
	if _, err := Open(ds); err != ErrNotSupported {
		t.Fatalf("want ErrNotSupported, got %v", err)
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	d := flatDEM(t, 100)
	c := d.X2C(0.0)
	x := d.C2X(c)
	if math.Abs(x-0.0) > 1e-9 {
		t.Fatalf("X2C/C2X round trip: want 0.0, got %v", x)
	}
	r := d.Y2R(0.0)
	y := d.R2Y(r)
	if math.Abs(y-0.0) > 1e-9 {
		t.Fatalf("Y2R/R2Y round trip: want 0.0, got %v", y)
	}
}

func TestSetAOIAndGetHeight(t *testing.T) {
	d := flatDEM(t, 42)
	if !d.SetAOI(-1.0, -1.5, 1.5, 1.0) {
		t.Fatalf("SetAOI rejected a fully-contained rectangle")
	}
	if err := d.FillArray(); err != nil {
		t.Fatalf("FillArray: %v", err)
	}
	h, err := d.GetHeight(0.0, 0.0)
	if err != nil {
		t.Fatalf("GetHeight: %v", err)
	}
	if h != 42 {
		t.Fatalf("GetHeight: want 42, got %v", h)
	}
}

func TestSetAOIRejectsOutOfBounds(t *testing.T) {
	d := flatDEM(t, 1)
	if d.SetAOI(-5, -5, 5, 5) {
		t.Fatalf("SetAOI accepted a rectangle outside the DEM bounds")
	}
}

func TestGetNearest3Points(t *testing.T) {
	d := flatDEM(t, 10)
	d.SetAOI(-1.0, -1.5, 1.5, 1.0)
	if err := d.FillArray(); err != nil {
		t.Fatalf("FillArray: %v", err)
	}
	lats, lons, heis, ok := d.GetNearest3Points(0.1, 0.1)
	if !ok {
		t.Fatalf("GetNearest3Points returned false for an in-bounds point")
	}
	for i := 0; i < 3; i++ {
		if heis[i] != 10 {
			t.Fatalf("point %d: want height 10, got %v (lat %v lon %v)", i, heis[i], lats[i], lons[i])
		}
	}
	if lats[0] == lats[1] && lons[0] == lons[1] {
		t.Fatalf("the 3 nearest points must not coincide")
	}
}

func TestOnCellBound(t *testing.T) {
	d := flatDEM(t, 1)
	// refx=-1.0, refy=1.0, spacing 0.5: (-1.0, 1.0) sits exactly on a
	// grid intersection.
	onBound, axis := d.OnCellBound(1.0, -1.0)
	if !onBound || axis != 3 {
		t.Fatalf("want both axes on bound at the reference pixel, got onBound=%v axis=%v", onBound, axis)
	}
	onBound, _ = d.OnCellBound(0.13, 0.27)
	if onBound {
		t.Fatalf("an arbitrary interior point should not read as on a cell boundary")
	}
}
