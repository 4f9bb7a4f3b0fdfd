package dem

import (
	"math"

	"github.com/arsf-go/hyperspec/rotation"
)

// barycentricSlack absorbs floating-point error when an intersection
// point falls just short of a triangle edge.
const barycentricSlack = -0.00000001

// PlanarSurface is a plane equation derived from 3 ECEF points, with an
// orientable local-up vector that lets Slope/Azimuth report the facet's
// upward-facing side.
type PlanarSurface struct {
	n rotation.Vector3 // unit normal
	p rotation.Vector3 // point in the plane
	u rotation.Vector3 // local up vector
}

// NewPlanarSurface builds the plane through p1, p2, p3 (ECEF XYZ).
func NewPlanarSurface(p1, p2, p3 rotation.Vector3) *PlanarSurface {
	v1 := rotation.Vector3{X: p2.X - p1.X, Y: p2.Y - p1.Y, Z: p2.Z - p1.Z}
	v2 := rotation.Vector3{X: p3.X - p1.X, Y: p3.Y - p1.Y, Z: p3.Z - p1.Z}
	n := rotation.Vector3{
		X: v1.Y*v2.Z - v1.Z*v2.Y,
		Y: -(v2.Z*v1.X) + v2.X*v1.Z,
		Z: v1.X*v2.Y - v1.Y*v2.X,
	}
	mag := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	n = rotation.Vector3{X: n.X / mag, Y: n.Y / mag, Z: n.Z / mag}
	return &PlanarSurface{n: n, p: p1}
}

// AssignLocalUp sets the plane's local up vector (ECEF XYZ), flipping
// the stored normal if it currently points below the horizon.
func (s *PlanarSurface) AssignLocalUp(up rotation.Vector3) {
	mag := math.Sqrt(up.X*up.X + up.Y*up.Y + up.Z*up.Z)
	if mag != 1 {
		up = rotation.Vector3{X: up.X / mag, Y: up.Y / mag, Z: up.Z / mag}
	}
	s.u = up
	dp := up.X*s.n.X + up.Y*s.n.Y + up.Z*s.n.Z
	if dp < 0 {
		s.n = rotation.Vector3{X: -s.n.X, Y: -s.n.Y, Z: -s.n.Z}
	}
}

// CalculateSlope returns the plane's slope (radians, 0 = flat, pi/2 =
// vertical), folded into the acute angle between the normal and up.
func (s *PlanarSurface) CalculateSlope() float64 {
	theta := math.Acos(s.u.X*s.n.X + s.u.Y*s.n.Y + s.u.Z*s.n.Z)
	if theta < math.Pi/2.0 {
		return theta
	}
	return math.Pi - theta
}

// CalculateAzimuth returns the plane's downslope-facing azimuth
// (radians, 0 to 2*pi, 0 = North), given the local North vector (ECEF
// XYZ) at the facet's position.
func (s *PlanarSurface) CalculateAzimuth(north rotation.Vector3) float64 {
	mag := math.Sqrt(north.X*north.X + north.Y*north.Y + north.Z*north.Z)
	if mag != 1 {
		north = rotation.Vector3{X: north.X / mag, Y: north.Y / mag, Z: north.Z / mag}
	}

	px := s.n.Y*s.u.Z - s.n.Z*s.u.Y
	py := -(s.n.X*s.u.Z - s.n.Z*s.u.X)
	pz := s.n.X*s.u.Y - s.n.Y*s.u.X

	theta := math.Pi/2.0 - s.CalculateSlope()
	a := -(s.u.Y - (s.u.X*py/px)) / (s.u.Z - (s.u.X*pz/px))

	npy := math.Cos(theta) / (a*s.n.Z + s.n.Y - a*s.n.X*pz/px - py*s.n.X/px)
	npz := a * npy
	npx := (-pz*npz - py*npy) / px

	cosAz := north.X*npx + north.Y*npy + north.Z*npz
	dy := north.Y*npz - north.Z*npy
	dx := north.X*npz - north.Z*npx
	dz := north.X*npy - north.Y*npx
	sinAz := math.Sqrt(dy*dy + dx*dx + dz*dz)

	az := math.Atan2(sinAz, cosAz)
	if az > 0 {
		return -(az - 2*math.Pi)
	}
	return -az
}

// TriangularFacet is a PlanarSurface whose extent is bounded by its 3
// defining points, used by the grid-walk search to test whether a
// line of sight actually crosses this particular DEM cell-triangle
// rather than just the infinite plane through it.
type TriangularFacet struct {
	*PlanarSurface
	p1, p2, p3 rotation.Vector3
}

// NewTriangularFacet builds the facet through p1, p2, p3 (ECEF XYZ).
func NewTriangularFacet(p1, p2, p3 rotation.Vector3) *TriangularFacet {
	return &TriangularFacet{PlanarSurface: NewPlanarSurface(p1, p2, p3), p1: p1, p2: p2, p3: p3}
}

// barycentric reports whether x lies within triangle (a, b, c), all
// coplanar ECEF points, allowing a small negative slack so points that
// fall just on a shared facet edge still count as contained.
func barycentric(a, b, c, x rotation.Vector3) bool {
	ab := rotation.Vector3{X: b.X - a.X, Y: b.Y - a.Y, Z: b.Z - a.Z}
	ac := rotation.Vector3{X: c.X - a.X, Y: c.Y - a.Y, Z: c.Z - a.Z}
	ax := rotation.Vector3{X: x.X - a.X, Y: x.Y - a.Y, Z: x.Z - a.Z}

	magSqAB := ab.X*ab.X + ab.Y*ab.Y + ab.Z*ab.Z
	magSqAC := ac.X*ac.X + ac.Y*ac.Y + ac.Z*ac.Z
	abDotAC := ab.X*ac.X + ab.Y*ac.Y + ab.Z*ac.Z
	abDotAX := ab.X*ax.X + ab.Y*ax.Y + ab.Z*ax.Z
	acDotAX := ac.X*ax.X + ac.Y*ax.Y + ac.Z*ax.Z

	denom := magSqAB*magSqAC - abDotAC*abDotAC
	u := (magSqAB*acDotAX - abDotAC*abDotAX) / denom
	v := (magSqAC*abDotAX - abDotAC*acDotAX) / denom

	return u >= barycentricSlack && v >= barycentricSlack && u+v <= 1-barycentricSlack
}

// Intersect finds where the line through v1 and v2 (ECEF XYZ) crosses
// the facet's plane and reports whether that point falls within the
// facet's triangular bounds.
func (f *TriangularFacet) Intersect(v1, v2 rotation.Vector3) (point rotation.Vector3, hit bool) {
	numer := f.n.X*(f.p.X-v1.X) + f.n.Y*(f.p.Y-v1.Y) + f.n.Z*(f.p.Z-v1.Z)
	denom := f.n.X*(v2.X-v1.X) + f.n.Y*(v2.Y-v1.Y) + f.n.Z*(v2.Z-v1.Z)
	if denom == 0 {
		return rotation.Vector3{}, false
	}
	t := numer / denom
	point = rotation.Vector3{
		X: v1.X + t*(v2.X-v1.X),
		Y: v1.Y + t*(v2.Y-v1.Y),
		Z: v1.Z + t*(v2.Z-v1.Z),
	}
	return point, barycentric(f.p1, f.p2, f.p3, point)
}
