package geodesy

import "math"

// ECEF is an Earth-Centred Earth-Fixed Cartesian position.
type ECEF struct {
	X, Y, Z float64
}

// LLH is a geodetic longitude/latitude/height position; angles in degrees,
// height in metres above the ellipsoid.
type LLH struct {
	Lon float64
	Lat float64
	Hei float64
}

// ToECEF converts geodetic LLH to ECEF XYZ.
func (e *Ellipsoid) ToECEF(p LLH) ECEF {
	lat := p.Lat * deg2rad
	lon := p.Lon * deg2rad
	c := math.Sqrt(1 - e.EE*math.Sin(lat)*math.Sin(lat))
	return ECEF{
		X: (e.A/c + p.Hei) * math.Cos(lat) * math.Cos(lon),
		Y: (e.A/c + p.Hei) * math.Cos(lat) * math.Sin(lon),
		Z: (e.A*(1-e.EE)/c + p.Hei) * math.Sin(lat),
	}
}

// ToLLH converts ECEF XYZ to geodetic LLH using the closed-form Bowring
// method.
func (e *Ellipsoid) ToLLH(p ECEF) LLH {
	aa := e.A * e.A
	bb := e.B * e.B
	eePrime := aa/bb - 1
	eeSq := aa - bb

	rr := p.X*p.X + p.Y*p.Y
	f := 54 * bb * p.Z * p.Z
	g := rr + (1-e.EE)*p.Z*p.Z - e.EE*eeSq
	c := (e.EE * e.EE * f * rr) / (g * g * g)
	s := math.Cbrt(1 + c + math.Sqrt(c*c+2*c))
	pp := f / (3 * g * g * (s + 1 + 1/s) * (s + 1 + 1/s))
	q := math.Sqrt(1 + 2*e.EE*e.EE*pp)
	r0 := (-pp*e.EE*math.Sqrt(rr))/(1+q) +
		math.Sqrt(0.5*aa*(1+1/q)-(pp*(1-e.EE)*p.Z*p.Z)/(q*(1+q))-0.5*pp*rr)
	u := math.Sqrt(math.Pow(math.Sqrt(rr)-e.EE*r0, 2) + p.Z*p.Z)
	v := math.Sqrt(math.Pow(math.Sqrt(rr)-e.EE*r0, 2) + (1-e.EE)*p.Z*p.Z)
	z0 := (bb * p.Z) / (e.A * v)

	return LLH{
		Lon: math.Atan2(p.Y, p.X) * rad2deg,
		Lat: math.Atan((p.Z+eePrime*z0)/math.Sqrt(rr)) * rad2deg,
		Hei: u * (1 - bb/(e.A*v)),
	}
}
