package geocorrection

import (
	"math"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/rotation"
)

// IntersectEllipsoid solves for the point where the ray from origin
// (ECEF) along the unit look vector dir first crosses the ellipsoid's
// surface offset by heightOffset: the quadratic A t^2 + B t + C = 0 with A, B, C
// derived from the ellipsoid's semi-axes each grown by heightOffset.
// The root closer to the aircraft (the smaller non-negative t) is
// returned; a negative-only root pair, or a ray that never crosses the
// ellipsoid at all, yields ok = false.
func IntersectEllipsoid(ell *geodesy.Ellipsoid, origin, dir rotation.Vector3, heightOffset float64) (point rotation.Vector3, ok bool) {
	ra := ell.A + heightOffset
	rb := ell.B + heightOffset
	ra2 := ra * ra
	rb2 := rb * rb

	a := dir.X*dir.X/ra2 + dir.Y*dir.Y/ra2 + dir.Z*dir.Z/rb2
	b := 2 * (origin.X*dir.X/ra2 + origin.Y*dir.Y/ra2 + origin.Z*dir.Z/rb2)
	c := origin.X*origin.X/ra2 + origin.Y*origin.Y/ra2 + origin.Z*origin.Z/rb2 - 1

	disc := b*b - 4*a*c
	if disc < 0 {
		return rotation.Vector3{}, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)

	t, found := nearestNonNegative(t1, t2)
	if !found {
		return rotation.Vector3{}, false
	}
	return rotation.Vector3{
		X: origin.X + t*dir.X,
		Y: origin.Y + t*dir.Y,
		Z: origin.Z + t*dir.Z,
	}, true
}

// nearestNonNegative picks the smaller of t1, t2 that is >= 0 (the
// first surface crossing along the ray from the aircraft); both
// negative reports not found.
func nearestNonNegative(t1, t2 float64) (float64, bool) {
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	switch {
	case t1 >= 0:
		return t1, true
	case t2 >= 0:
		return t2, true
	default:
		return 0, false
	}
}
