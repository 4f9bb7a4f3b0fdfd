package dem

import (
	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/rotation"
)

// DefaultMaxSpiralSteps is the spiral search's default iteration cap.
const DefaultMaxSpiralSteps = 100

// Walker intersects a line of sight with a DEM's terrain surface by
// growing a triangular facet outward from a seed lat/lon in a
// square-spiral pattern until one of the facets the spiral visits
// contains the line's intersection with its plane.
type Walker struct {
	DEM            *DEM
	Ellipsoid      *geodesy.Ellipsoid
	MaxSpiralSteps int // 0 means DefaultMaxSpiralSteps
}

// NewWalker builds a Walker over dem with the default iteration cap.
func NewWalker(d *DEM, ell *geodesy.Ellipsoid) *Walker {
	return &Walker{DEM: d, Ellipsoid: ell, MaxSpiralSteps: DefaultMaxSpiralSteps}
}

func (w *Walker) maxSteps() int {
	if w.MaxSpiralSteps <= 0 {
		return DefaultMaxSpiralSteps
	}
	return w.MaxSpiralSteps
}

// planeFromNearest3 builds a TriangularFacet from the DEM's 3 nearest
// cell centres to (lat, lon), or nil if any of them falls outside the
// loaded AOI.
func (w *Walker) planeFromNearest3(lat, lon float64) *TriangularFacet {
	lats, lons, heis, ok := w.DEM.GetNearest3Points(lon, lat)
	if !ok {
		return nil
	}
	return w.facetFromLLH(lats, lons, heis)
}

func (w *Walker) facetFromLLH(lats, lons, heis [3]float64) *TriangularFacet {
	var p [3]rotation.Vector3
	for i := 0; i < 3; i++ {
		ecef := w.Ellipsoid.ToECEF(geodesy.LLH{Lat: lats[i], Lon: lons[i], Hei: heis[i]})
		p[i] = rotation.Vector3{X: ecef.X, Y: ecef.Y, Z: ecef.Z}
	}
	return NewTriangularFacet(p[0], p[1], p[2])
}

// completeTheSquare returns the sibling facet that, together with the
// current nearest-3-points triangle, would tile the square of 4 DEM
// cell centres around (lat, lon): it replaces the right-angle corner
// (the point sharing its longitude with one of the others and its
// latitude with the other) with the 4th corner of that square.
func (w *Walker) completeTheSquare(lat, lon float64) *TriangularFacet {
	lats, lons, heis, ok := w.DEM.GetNearest3Points(lon, lat)
	if !ok {
		return nil
	}

	var newLon, oldLon, newLat, oldLat float64
	switch {
	case lons[0] == lons[1]:
		newLon, oldLon = lons[2], lons[0]
	case lons[0] == lons[2]:
		newLon, oldLon = lons[1], lons[0]
	default:
		newLon, oldLon = lons[0], lons[1]
	}
	switch {
	case lats[0] == lats[1]:
		newLat, oldLat = lats[2], lats[0]
	case lats[0] == lats[2]:
		newLat, oldLat = lats[1], lats[0]
	default:
		newLat, oldLat = lats[0], lats[1]
	}

	for i := 0; i < 3; i++ {
		if lons[i] == oldLon && lats[i] == oldLat {
			lons[i], lats[i] = newLon, newLat
			h, err := w.DEM.GetHeight(lons[i], lats[i])
			if err != nil || h == DEMOutOfBounds {
				return nil
			}
			heis[i] = h
			break
		}
	}
	return w.facetFromLLH(lats, lons, heis)
}

// shuffleSeed nudges a seed position off a DEM cell boundary so
// GetNearest3Points always resolves a containing triangle rather than
// a degenerate one sitting exactly on a shared edge.
func shuffleSeed(d *DEM, lat, lon float64) (float64, float64) {
	onBound, axis := d.OnCellBound(lat, lon)
	if !onBound {
		return lat, lon
	}
	switch axis {
	case 1:
		lon += d.XSpace() / 100.0
	case 2:
		lat += d.YSpace() / 100.0
	case 3:
		lat += d.YSpace() / 100.0
		lon += d.XSpace() / 100.0
	}
	return lat, lon
}

// Intersect walks the square-spiral grid search outward from
// (seedLat, seedLon) to find where the line through v1, v2 (ECEF XYZ)
// crosses the DEM surface, returning the intersection point in ECEF
// and its geodetic lat/lon. It returns ErrSpiralExhausted if no
// intersecting facet is found within MaxSpiralSteps iterations,
// bounding the search when a view vector never crosses terrain within
// the loaded AOI.
func (w *Walker) Intersect(v1, v2 rotation.Vector3, seedLat, seedLon float64) (point rotation.Vector3, hitLat, hitLon float64, err error) {
	lat, lon := shuffleSeed(w.DEM, seedLat, seedLon)
	origLat, origLon := lat, lon

	facet := w.planeFromNearest3(lat, lon)
	if facet == nil {
		return rotation.Vector3{}, 0, 0, ErrOutOfDEMBounds
	}

	var x, y int64
	var dx, dy int64 = 0, -1
	budget := w.maxSteps()

	for step := 0; ; step++ {
		if facet != nil {
			if p, hit := facet.Intersect(v1, v2); hit {
				point = p
				llh := w.Ellipsoid.ToLLH(geodesy.ECEF{X: p.X, Y: p.Y, Z: p.Z})
				return point, llh.Lat, llh.Lon, nil
			}
		}
		if step >= w.maxSteps() {
			return rotation.Vector3{}, 0, 0, ErrSpiralExhausted
		}

		if step%2 == 0 {
			// may leave facet nil when the sibling cell falls outside
			// the AOI; the next spiral step then moves the seed on.
			facet = w.completeTheSquare(lat, lon)
		} else {
			facet = nil
			for facet == nil {
				if budget <= 0 {
					return rotation.Vector3{}, 0, 0, ErrSpiralExhausted
				}
				budget--
				if x == y || (x < 0 && x == -y) || (x > 0 && x == 1-y) {
					dx, dy = -dy, dx
				}
				x += dx
				y += dy
				// 0.99 guards against floating-point overshoot past
				// one cell when the seed sits close to a DEM bound.
				lon = origLon + float64(x)*w.DEM.XSpace()*0.99
				lat = origLat + float64(y)*w.DEM.YSpace()*0.99
				facet = w.planeFromNearest3(lat, lon)
			}
		}
	}
}
