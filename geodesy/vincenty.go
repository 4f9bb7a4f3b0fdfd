package geodesy

import "math"

// GeodesicResult is the distance/azimuth/zenith output shared by both the
// Bowring and Vincenty inverse solutions.
type GeodesicResult struct {
	Distance float64 // metres, includes the height-difference component
	Azimuth  float64 // degrees, 0-360
	Zenith   float64 // degrees
}

// InverseBowring computes distance/azimuth/zenith from p2 to p1 using the
// non-iterative Bowring method. Accurate to millimetres for points up to
// ~150km apart; prefer InverseVincenty for longer baselines.
func (e *Ellipsoid) InverseBowring(p1, p2 LLH) GeodesicResult {
	lon1, lat1 := p1.Lon*deg2rad, p1.Lat*deg2rad
	lon2, lat2 := p2.Lon*deg2rad, p2.Lat*deg2rad

	eep := (2/e.F - 1) / ((1/e.F - 1) * (1/e.F - 1))
	dphi := lat1 - lat2
	a := math.Sqrt(1 + eep*math.Pow(math.Cos(lat2), 4))
	b := math.Sqrt(1 + eep*math.Pow(math.Cos(lat2), 2))
	c := math.Sqrt(1 + eep)
	w := 0.5 * a * (lon1 - lon2)
	d := (dphi / (2 * b)) * (1 + (3*eep*dphi*math.Sin(2*lat2+2*dphi/3))/(4*b*b))
	ef := math.Sin(d) * math.Cos(w)
	ff := (1 / a) * math.Sin(w) * (b*math.Cos(lat2)*math.Cos(d) - math.Sin(lat2)*math.Sin(d))
	g := math.Atan2(ff, ef)
	hs := math.Asin(math.Sqrt(ef*ef + ff*ff))
	h := math.Atan((1 / a) * (math.Sin(lat2) + b*math.Cos(lat2)*math.Tan(d)) * math.Tan(w))

	azimuth := (g - h) * rad2deg
	if azimuth < 0 {
		azimuth += 360
	}
	s := e.A * c * 2 * hs / (b * b)
	dh := p2.Hei - p1.Hei
	zenith := (math.Pi - math.Atan(s/dh)) * rad2deg

	return GeodesicResult{
		Distance: math.Sqrt(s*s + dh*dh),
		Azimuth:  azimuth,
		Zenith:   zenith,
	}
}

// InverseVincenty computes distance/azimuth/zenith from p2 to p1 using the
// iterative Vincenty method, accurate for all separations except points on
// near-opposite sides of the ellipsoid (where the iteration may not
// converge).
func (e *Ellipsoid) InverseVincenty(p1, p2 LLH) GeodesicResult {
	lat1, lat2 := p1.Lat*deg2rad, p2.Lat*deg2rad
	u1 := math.Atan((1 - e.F) * math.Tan(lat1))
	u2 := math.Atan((1 - e.F) * math.Tan(lat2))
	dlon := (p1.Lon - p2.Lon) * deg2rad
	lambda := dlon

	var sinSigma, cosSigma, sigma, sinAlpha, cosSqAlpha, cos2SigmaM, cCoef float64

	for diff := 1.0; diff > 1e-12 || diff < -1e-12; {
		sinSigma = math.Sqrt(math.Pow(math.Cos(u2)*math.Sin(lambda), 2) +
			math.Pow(math.Cos(u1)*math.Sin(u2)-math.Sin(u1)*math.Cos(u2)*math.Cos(lambda), 2))
		cosSigma = math.Sin(u1)*math.Sin(u2) + math.Cos(u1)*math.Cos(u2)*math.Cos(lambda)
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha = (math.Cos(u1) * math.Cos(u2) * math.Sin(lambda)) / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = cosSigma - (2 * math.Sin(u1) * math.Sin(u2) / cosSqAlpha)
		cCoef = e.F * cosSqAlpha * (4 + e.F*(4-3*cosSqAlpha)) / 16.0
		prev := lambda
		lambda = dlon + (1-cCoef)*e.F*sinAlpha*(sigma+cCoef*sinSigma*(cos2SigmaM+cCoef*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		diff = lambda - prev
	}

	uSq := cosSqAlpha * (e.A*e.A - e.B*e.B) / (e.B * e.B)
	aCoef := 1 + uSq*(4096+uSq*(-768+uSq*(320-175*uSq)))/16384.0
	bCoef := uSq * (256 + uSq*(-128+uSq*(74-47*uSq))) / 1024.0
	dSigma := bCoef * sinSigma * (cos2SigmaM + 0.25*bCoef*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)) -
		bCoef*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)/6.0)
	s := e.B * aCoef * (sigma - dSigma)
	dh := p2.Hei - p1.Hei

	azimuth := math.Atan2(math.Cos(u1)*math.Sin(lambda), math.Cos(u2)*math.Sin(u1)-math.Sin(u2)*math.Cos(u1)*math.Cos(lambda)) * rad2deg
	if azimuth < 0 {
		azimuth += 360
	}
	return GeodesicResult{
		Distance: math.Sqrt(s*s + dh*dh),
		Azimuth:  azimuth,
		Zenith:   (math.Pi - math.Atan(s/dh)) * rad2deg,
	}
}

// DirectBowring finds the destination point given a start point, azimuth
// and distance, using the Bowring direct (non-iterative) equations.
func (e *Ellipsoid) DirectBowring(p1 LLH, distance, azimuthDeg float64) LLH {
	lon1, lat1 := p1.Lon*deg2rad, p1.Lat*deg2rad
	azimuth := azimuthDeg * deg2rad

	eep := (2/e.F - 1) / ((1/e.F - 1) * (1/e.F - 1))
	a := math.Sqrt(1 + eep*math.Pow(math.Cos(lat1), 4))
	b := math.Sqrt(1 + eep*math.Pow(math.Cos(lat1), 2))
	c := math.Sqrt(1 + eep)

	sigma := (distance * b * b) / (e.A * c)
	lon2 := (lon1 + math.Atan((a*math.Tan(sigma)*math.Sin(azimuth))/
		(b*math.Cos(lat1)-math.Tan(sigma)*math.Sin(lat1)*math.Cos(azimuth)))/a)
	w := 0.5 * a * (lon2 - lon1)
	d := 0.5 * math.Asin(math.Sin(sigma)*(math.Cos(azimuth)-(math.Sin(lat1)*math.Sin(azimuth)*math.Tan(w))/a))
	lat2 := lat1 + 2*d*(b-1.5*eep*d*math.Sin(2*lat1+4*b*d/3.0))

	return LLH{Lon: lon2 * rad2deg, Lat: lat2 * rad2deg}
}
