package dem

import (
	"math"

	"github.com/arsf-go/hyperspec/geodesy"
)

// CalculateSlopeAndAzimuth returns the DEM slope (degrees, 0 = flat)
// and aspect (degrees, compass bearing, 0 = North) for each (lat, lon)
// pair (radians), using the Horn (1981) 3x3-neighbourhood gradient
// method.
func (d *DEM) CalculateSlopeAndAzimuth(lat, lon []float64) (slope, aspect []float64) {
	ell := geodesy.WGS84()
	// xscalar uses the reduced latitude of the first point as an
	// estimate good enough for the whole array.
	beta := math.Atan((ell.B / ell.A) * math.Tan(lat[0]))
	xscalar := (math.Pi / 180.0) * (ell.A * math.Cos(beta))
	yscalar := ell.MetresPerDegreeAt(lat[0] * 180 / math.Pi)

	slope = make([]float64, len(lat))
	aspect = make([]float64, len(lat))
	for i := range lat {
		neigh := d.getNeighbourhood(lat[i], lon[i])
		dzdx, dzdy := d.calculateGradient(neigh, xscalar, yscalar)
		s := slopeFromGradient(dzdx, dzdy) * 180 / math.Pi
		slope[i] = s
		if s == 0 {
			aspect[i] = 0
			continue
		}
		a := aspectFromGradient(dzdx, dzdy) * 180 / math.Pi
		a = 90 - a
		if a < 0 {
			a += 360
		}
		aspect[i] = a
	}
	return slope, aspect
}

// getNeighbourhood returns the 3x3 cell-centre heights around (lat,
// lon), in radians, laid out row-major (0..8, centre = index 4), or
// all zero if the cell is on the DEM's edge.
func (d *DEM) getNeighbourhood(lat, lon float64) [9]float64 {
	var neigh [9]float64
	a := d.X2C(lon * 180 / math.Pi)
	b := d.Y2R(lat * 180 / math.Pi)
	if a < 1 || b < 1 {
		return neigh
	}
	br := int(b)
	ac := int(a)
	i := 0
	for r := br - 1; r <= br+1; r++ {
		for c := ac - 1; c <= ac+1; c++ {
			h, err := d.GetHeight(d.C2X(float64(c)), d.R2Y(float64(r)))
			if err != nil || h == DEMOutOfBounds {
				return [9]float64{}
			}
			neigh[i] = h
			i++
		}
	}
	return neigh
}

// calculateGradient returns dz/dx, dz/dy from a Horn neighbourhood.
func (d *DEM) calculateGradient(n [9]float64, xscalar, yscalar float64) (dzdx, dzdy float64) {
	dzdx = ((n[2] + 2*n[5] + n[8]) - (n[0] + 2*n[3] + n[6])) / (8 * d.xspace * xscalar)
	dzdy = ((n[0] + 2*n[1] + n[2]) - (n[6] + 2*n[7] + n[8])) / (8 * d.yspace * yscalar)
	return dzdx, dzdy
}

func slopeFromGradient(dzdx, dzdy float64) float64 {
	return math.Atan(math.Sqrt(dzdx*dzdx + dzdy*dzdy))
}

func aspectFromGradient(dzdx, dzdy float64) float64 {
	return math.Atan2(-dzdy, -dzdx)
}
