package geocorrection

import (
	"io"
	"math"
	"testing"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/navigation"
	"github.com/arsf-go/hyperspec/raster"
	"github.com/arsf-go/hyperspec/viewvector"
)

// memStream is a minimal in-memory raster.Stream, mirroring the one the
// dem package tests use, for building synthetic navigation and
// view-vector files without touching disk.
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

func navDataset(t *testing.T, scans int, lat, lon, hei float64) *navigation.Reader {
	t.Helper()
	return navDatasetWithAttitude(t, scans, lat, lon, hei, 0, 0, 0)
}

func navDatasetWithAttitude(t *testing.T, scans int, lat, lon, hei, roll, pitch, heading float64) *navigation.Reader {
	t.Helper()
	h := &raster.Header{
		Samples: 1, Lines: scans, Bands: 7,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	ds := raster.Open(&memStream{}, h)
	for s := 0; s < scans; s++ {
		if err := ds.WriteLine([]float64{float64(s), lat, lon, hei, roll, pitch, heading}); err != nil {
			t.Fatalf("writing nav scan %d: %v", s, err)
		}
	}
	nav, err := navigation.Open(ds)
	if err != nil {
		t.Fatalf("navigation.Open: %v", err)
	}
	return nav
}

// straightDownVV builds a view-vector table whose every pixel looks
// straight down the sensor Z axis, so each scan's ground intersection
// should land directly beneath the aircraft.
func straightDownVV(t *testing.T, rows int) *viewvector.Table {
	t.Helper()
	h := &raster.Header{
		Samples: rows, Lines: 1, Bands: 3,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	ds := raster.Open(&memStream{}, h)
	zeros := make([]float64, rows)
	for i := 0; i < 3; i++ {
		if err := ds.WriteBandLine(zeros); err != nil {
			t.Fatalf("writing vv band %d: %v", i, err)
		}
	}
	vv, err := viewvector.Load(ds)
	if err != nil {
		t.Fatalf("viewvector.Load: %v", err)
	}
	return vv
}

func TestPipelineLocateLineEllipsoidNadir(t *testing.T) {
	nav := navDataset(t, 2, 10, 20, 2000)
	vv := straightDownVV(t, 4)

	p := &Pipeline{
		Nav: nav,
		VV:  vv,
		Config: Config{
			Ellipsoid: geodesy.WGS84(),
			Method:    Combined,
		},
	}

	res, err := p.LocateLine(0)
	if err != nil {
		t.Fatalf("LocateLine: %v", err)
	}
	for i, lat := range res.Lat {
		if math.Abs(lat-10) > 1e-6 {
			t.Errorf("pixel %d lat = %v, want ~10", i, lat)
		}
		if math.Abs(res.Lon[i]-20) > 1e-6 {
			t.Errorf("pixel %d lon = %v, want ~20", i, res.Lon[i])
		}
		if math.Abs(res.Hei[i]) > 1e-2 {
			t.Errorf("pixel %d height = %v, want ~0", i, res.Hei[i])
		}
	}
	if p.BadPixelCount != 0 {
		t.Errorf("BadPixelCount = %d, want 0 for a straight-down nadir view", p.BadPixelCount)
	}
}

// TestPipelineLocateLineCombinedAppliesNavigationAttitude pins down a
// steep 85 degree roll: a straight-down pixel's
// look vector is tilted 85 degrees off nadir by the aircraft's own
// attitude, past the default 80 degree view-vector-angle guard, even
// though the View-Vector Table itself carries a zero boresight.
func TestPipelineLocateLineCombinedAppliesNavigationAttitude(t *testing.T) {
	nav := navDatasetWithAttitude(t, 1, 10, 20, 2000, 85, 0, 0)
	vv := straightDownVV(t, 1)

	p := &Pipeline{
		Nav: nav,
		VV:  vv,
		Config: Config{
			Ellipsoid: geodesy.WGS84(),
			Method:    Combined,
		},
	}

	res, err := p.LocateLine(0)
	if err != nil {
		t.Fatalf("LocateLine: %v", err)
	}
	if res.Lat[0] != BadDataValue || res.Lon[0] != BadDataValue || res.Hei[0] != BadDataValue {
		t.Errorf("pixel 0 = (%v,%v,%v), want the bad-data sentinel once roll carries it past the view-vector-angle guard",
			res.Lat[0], res.Lon[0], res.Hei[0])
	}
	if p.BadPixelCount != 1 {
		t.Errorf("BadPixelCount = %d, want 1", p.BadPixelCount)
	}
}

func TestPipelineLocateLineRejectsWithoutViewVectorTable(t *testing.T) {
	nav := navDataset(t, 1, 10, 20, 2000)
	p := &Pipeline{Nav: nav, Config: Config{Ellipsoid: geodesy.WGS84()}}
	if _, err := p.LocateLine(0); err != ErrViewVectorCountMismatch {
		t.Fatalf("LocateLine without a view-vector table: got %v, want ErrViewVectorCountMismatch", err)
	}
}
