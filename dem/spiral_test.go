package dem

import (
	"math"
	"testing"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/rotation"
)

func TestWalkerIntersectFindsFlatSurface(t *testing.T) {
	d := flatDEM(t, 1000)
	if !d.SetAOI(-1.0, -1.5, 1.5, 1.0) {
		t.Fatalf("SetAOI rejected")
	}
	if err := d.FillArray(); err != nil {
		t.Fatalf("FillArray: %v", err)
	}

	ell := geodesy.WGS84()
	w := NewWalker(d, ell)

	seedLat, seedLon := 0.1, 0.1
	above := ell.ToECEF(geodesy.LLH{Lat: seedLat, Lon: seedLon, Hei: 5000})
	below := ell.ToECEF(geodesy.LLH{Lat: seedLat, Lon: seedLon, Hei: -1000})
	v1 := rotation.Vector3{X: above.X, Y: above.Y, Z: above.Z}
	v2 := rotation.Vector3{X: below.X, Y: below.Y, Z: below.Z}

	point, hitLat, hitLon, err := w.Intersect(v1, v2, seedLat, seedLon)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if math.Abs(hitLat-seedLat) > 0.5 || math.Abs(hitLon-seedLon) > 0.5 {
		t.Fatalf("hit lat/lon too far from seed: got (%v, %v)", hitLat, hitLon)
	}
	llh := ell.ToLLH(geodesy.ECEF{X: point.X, Y: point.Y, Z: point.Z})
	if math.Abs(llh.Hei-1000) > 10 {
		t.Fatalf("intersection height should be near the DEM's flat elevation (1000), got %v", llh.Hei)
	}
}

func TestWalkerIntersectExhaustsSpiralOnParallelLine(t *testing.T) {
	d := flatDEM(t, 1000)
	if !d.SetAOI(-1.0, -1.5, 1.5, 1.0) {
		t.Fatalf("SetAOI rejected")
	}
	if err := d.FillArray(); err != nil {
		t.Fatalf("FillArray: %v", err)
	}

	ell := geodesy.WGS84()
	w := &Walker{DEM: d, Ellipsoid: ell, MaxSpiralSteps: 3}

	seedLat, seedLon := 0.1, 0.1
	p1 := ell.ToECEF(geodesy.LLH{Lat: seedLat, Lon: seedLon, Hei: 5000})
	p2 := ell.ToECEF(geodesy.LLH{Lat: seedLat + 0.0001, Lon: seedLon, Hei: 5000})
	v1 := rotation.Vector3{X: p1.X, Y: p1.Y, Z: p1.Z}
	v2 := rotation.Vector3{X: p2.X, Y: p2.Y, Z: p2.Z}

	_, _, _, err := w.Intersect(v1, v2, seedLat, seedLon)
	if err != ErrSpiralExhausted {
		t.Fatalf("want ErrSpiralExhausted for a line that never reaches the DEM surface, got %v", err)
	}
}

func TestShuffleSeedNudgesOffCellBound(t *testing.T) {
	d := flatDEM(t, 1)
	// the reference pixel sits exactly on the cell grid in both axes
	lat, lon := shuffleSeed(d, 1.0, -1.0)
	if lat == 1.0 || lon == -1.0 {
		t.Fatalf("seed on a cell bound was not nudged: (%v, %v)", lat, lon)
	}
	if onBound, _ := d.OnCellBound(lat, lon); onBound {
		t.Fatalf("nudged seed (%v, %v) still reads as on a cell bound", lat, lon)
	}

	lat, lon = shuffleSeed(d, 0.13, 0.27)
	if lat != 0.13 || lon != 0.27 {
		t.Fatalf("interior seed should be untouched, got (%v, %v)", lat, lon)
	}
}
