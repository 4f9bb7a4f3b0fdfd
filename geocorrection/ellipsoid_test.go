package geocorrection

import (
	"math"
	"testing"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/rotation"
)

func TestIntersectEllipsoidNadirHitsSurfaceBelow(t *testing.T) {
	ell := geodesy.WGS84()
	origin := ell.ToECEF(geodesy.LLH{Lat: 10, Lon: 20, Hei: 2000})
	originVec := rotation.Vector3{X: origin.X, Y: origin.Y, Z: origin.Z}

	mag := math.Sqrt(originVec.X*originVec.X + originVec.Y*originVec.Y + originVec.Z*originVec.Z)
	dir := rotation.Vector3{X: -originVec.X / mag, Y: -originVec.Y / mag, Z: -originVec.Z / mag}

	point, ok := IntersectEllipsoid(ell, originVec, dir, 0)
	if !ok {
		t.Fatalf("IntersectEllipsoid rejected a straight-down ray from an airborne position")
	}
	llh := ell.ToLLH(geodesy.ECEF{X: point.X, Y: point.Y, Z: point.Z})
	if math.Abs(llh.Hei) > 1e-3 {
		t.Errorf("ground intersection height = %v, want ~0", llh.Hei)
	}
	if math.Abs(llh.Lat-10) > 1e-6 || math.Abs(llh.Lon-20) > 1e-6 {
		t.Errorf("ground intersection lat/lon = (%v,%v), want (10,20)", llh.Lat, llh.Lon)
	}
}

func TestIntersectEllipsoidSkyboundRayMisses(t *testing.T) {
	ell := geodesy.WGS84()
	origin := ell.ToECEF(geodesy.LLH{Lat: 10, Lon: 20, Hei: 2000})
	originVec := rotation.Vector3{X: origin.X, Y: origin.Y, Z: origin.Z}

	mag := math.Sqrt(originVec.X*originVec.X + originVec.Y*originVec.Y + originVec.Z*originVec.Z)
	up := rotation.Vector3{X: originVec.X / mag, Y: originVec.Y / mag, Z: originVec.Z / mag}

	if _, ok := IntersectEllipsoid(ell, originVec, up, 0); ok {
		t.Errorf("IntersectEllipsoid accepted a ray pointed away from the earth")
	}
}

func TestNearestNonNegativePrefersSmallerRoot(t *testing.T) {
	got, found := nearestNonNegative(5, 2)
	if !found || got != 2 {
		t.Errorf("nearestNonNegative(5, 2) = (%v, %v), want (2, true)", got, found)
	}

	got, found = nearestNonNegative(-3, -1)
	if found {
		t.Errorf("nearestNonNegative(-3, -1) = (%v, %v), want not found", got, found)
	}

	got, found = nearestNonNegative(-3, 4)
	if !found || got != 4 {
		t.Errorf("nearestNonNegative(-3, 4) = (%v, %v), want (4, true)", got, found)
	}
}
