package geocorrection

import (
	"math"

	"github.com/arsf-go/hyperspec/dem"
	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/navigation"
	"github.com/arsf-go/hyperspec/rotation"
	"github.com/arsf-go/hyperspec/viewvector"
)

// Boresight is the fixed mounting offset (theta, phi, kappa degrees)
// between the navigation frame and the sensor frame, applied ahead of
// the aircraft attitude rotation in Split mode, or folded into the
// View-Vector Table in Combined mode.
type Boresight struct {
	Theta, Phi, Kappa float64
}

// Config is the per-run geocorrection configuration.
type Config struct {
	Ellipsoid          *geodesy.Ellipsoid
	HeightOffset       float64
	Boresight          Boresight
	Method             Method
	MaxViewVectorAngle float64 // degrees; 0 means DefaultMaxAllowedViewVectorAngle
}

func (c Config) maxAngle() float64 {
	if c.MaxViewVectorAngle <= 0 {
		return DefaultMaxAllowedViewVectorAngle
	}
	return c.MaxViewVectorAngle
}

// Pipeline orchestrates the per-scan Geocorrection Pipeline: for one
// scan it resolves the View-Vector Table's per-pixel rotations into
// ECEF look vectors rooted at the scan's navigation position, then
// intersects each against either the ellipsoid or a DEM surface.
type Pipeline struct {
	Nav    *navigation.Reader
	VV     *viewvector.Table
	Config Config
	Walker *dem.Walker // nil selects ellipsoid intersection

	BadPixelCount int

	boresightApplied bool
}

// LineResult is one scan's geolocated output: per-pixel geodetic
// position, plus the ancillary atmospheric raster's 5 bands.
type LineResult struct {
	Lon, Lat, Hei                          []float64
	ViewAzimuth, ViewZenith, SlantDistance []float64
	Slope, Aspect                          []float64
}

// sentinelFill sets every slice's pixel i to BadDataValue.
func (r *LineResult) sentinelFill(i int) {
	r.Lon[i], r.Lat[i], r.Hei[i] = BadDataValue, BadDataValue, BadDataValue
	r.ViewAzimuth[i], r.ViewZenith[i], r.SlantDistance[i] = BadDataValue, BadDataValue, BadDataValue
	r.Slope[i], r.Aspect[i] = 0, 0
}

func vecDistance(a, b rotation.Vector3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LocateLine resolves every cross-track pixel of scan into a geodetic
// position plus ancillary geometry. The View-Vector Table's along-track
// column is fixed at 0: the table describes a single CCD angular
// geometry reused for every scan. The table's boresight offset is
// folded in once, on the first call; in Combined mode the scan's
// navigation attitude is then summed into a per-scan copy of the
// table's angles before the single sensor-to-ECEF rotation, while
// Split mode carries the attitude through as its own separate
// rotation.
func (p *Pipeline) LocateLine(scan int) (*LineResult, error) {
	rec, err := p.Nav.ReadScan(scan)
	if err != nil {
		return nil, err
	}
	if p.VV == nil {
		return nil, ErrViewVectorCountMismatch
	}

	if !p.boresightApplied {
		p.VV.ApplyAngleRotations(p.Config.Boresight.Theta, p.Config.Boresight.Phi, p.Config.Boresight.Kappa)
		p.boresightApplied = true
	}

	n := p.VV.CCDRows
	rotX := make([]float64, n)
	rotY := make([]float64, n)
	rotZ := make([]float64, n)
	for i := 0; i < n; i++ {
		rotX[i], rotY[i], rotZ[i] = p.VV.At(i, 0)
	}

	if p.Config.Method == Combined {
		scanVV := &viewvector.Table{RotX: rotX, RotY: rotY, RotZ: rotZ, CCDRows: n, CCDCols: 1}
		scanVV.ApplyAngleRotations(rec.Roll, rec.Pitch, rec.Heading)
	}

	ecef := ScanLineViewVectorsInECEF(p.Config.Ellipsoid, rec.Lat, rec.Lon, rec.Hei, rotX, rotY, rotZ,
		p.Config.Method, p.Config.maxAngle(), rec.Roll, rec.Pitch, rec.Heading)
	p.BadPixelCount += ecef.BadPixels

	res := &LineResult{
		Lon: make([]float64, n), Lat: make([]float64, n), Hei: make([]float64, n),
		ViewAzimuth: make([]float64, n), ViewZenith: make([]float64, n), SlantDistance: make([]float64, n),
		Slope: make([]float64, n), Aspect: make([]float64, n),
	}

	origin := ecef.OriginECEF
	downMag := math.Sqrt(origin.X*origin.X + origin.Y*origin.Y + origin.Z*origin.Z)
	unitDown := rotation.Vector3{X: -origin.X / downMag, Y: -origin.Y / downMag, Z: -origin.Z / downMag}

	if p.Walker == nil {
		for i := 0; i < n; i++ {
			p.locateEllipsoid(res, i, origin, ecef.Vectors[i], unitDown)
		}
		return res, nil
	}

	nadirIdx := nearestNadirIndex(ecef.Vectors, unitDown)
	seedLat, seedLon := rec.Lat, rec.Lon
	seedLat, seedLon = p.locateDEM(res, nadirIdx, origin, ecef.Vectors[nadirIdx], unitDown, seedLat, seedLon)
	lat, lon := seedLat, seedLon
	for i := nadirIdx - 1; i >= 0; i-- {
		lat, lon = p.locateDEM(res, i, origin, ecef.Vectors[i], unitDown, lat, lon)
	}
	lat, lon = seedLat, seedLon
	for i := nadirIdx + 1; i < n; i++ {
		lat, lon = p.locateDEM(res, i, origin, ecef.Vectors[i], unitDown, lat, lon)
	}
	return res, nil
}

// nearestNadirIndex finds the cross-track pixel whose look vector most
// closely matches straight-down, by walking the dot product with the
// local nadir vector until its first difference goes negative.
func nearestNadirIndex(vectors []rotation.Vector3, unitDown rotation.Vector3) int {
	dot := func(v rotation.Vector3) float64 { return v.X*unitDown.X + v.Y*unitDown.Y + v.Z*unitDown.Z }
	idx := 0
	prev := dot(vectors[0])
	for i := 1; i < len(vectors); i++ {
		d := dot(vectors[i])
		if d-prev < 0 {
			return i - 1
		}
		prev = d
		idx = i
	}
	return idx
}

func (p *Pipeline) locateEllipsoid(res *LineResult, i int, origin, dir, unitDown rotation.Vector3) {
	if dir.X == BadDataValue {
		res.sentinelFill(i)
		return
	}
	point, ok := IntersectEllipsoid(p.Config.Ellipsoid, origin, dir, p.Config.HeightOffset)
	if !ok {
		res.sentinelFill(i)
		p.BadPixelCount++
		return
	}
	llh := p.Config.Ellipsoid.ToLLH(geodesy.ECEF{X: point.X, Y: point.Y, Z: point.Z})
	res.Lon[i], res.Lat[i], res.Hei[i] = llh.Lon, llh.Lat, llh.Hei
	res.ViewZenith[i] = math.Acos(dir.X*unitDown.X+dir.Y*unitDown.Y+dir.Z*unitDown.Z) * 180 / math.Pi
	res.ViewAzimuth[i] = p.viewAzimuth(origin, point)
	res.SlantDistance[i] = vecDistance(origin, point)
}

// locateDEM resolves one cross-track pixel's ground position via the
// DEM grid-walk spiral, seeded at (seedLat, seedLon), and returns the
// resulting (lat, lon) to seed the next pixel outward.
func (p *Pipeline) locateDEM(res *LineResult, i int, origin, dir, unitDown rotation.Vector3, seedLat, seedLon float64) (float64, float64) {
	if dir.X == BadDataValue {
		res.sentinelFill(i)
		return seedLat, seedLon
	}
	v2 := rotation.Vector3{X: origin.X + dir.X, Y: origin.Y + dir.Y, Z: origin.Z + dir.Z}
	point, hitLat, hitLon, err := p.Walker.Intersect(origin, v2, seedLat, seedLon)
	if err != nil {
		res.sentinelFill(i)
		p.BadPixelCount++
		return seedLat, seedLon
	}
	hei, _ := p.Walker.DEM.GetHeight(hitLon, hitLat)
	res.Lon[i], res.Lat[i], res.Hei[i] = hitLon, hitLat, hei
	res.ViewZenith[i] = math.Acos(dir.X*unitDown.X+dir.Y*unitDown.Y+dir.Z*unitDown.Z) * 180 / math.Pi
	res.ViewAzimuth[i] = p.viewAzimuth(origin, point)
	res.SlantDistance[i] = vecDistance(origin, point)

	slope, aspect := p.Walker.DEM.CalculateSlopeAndAzimuth([]float64{hitLat * math.Pi / 180}, []float64{hitLon * math.Pi / 180})
	res.Slope[i], res.Aspect[i] = slope[0], aspect[0]
	return hitLat, hitLon
}

// viewAzimuth is the compass bearing, at the ground intersection point,
// back towards the aircraft's ground position, using the same Bowring
// inverse geodesic the geodesy package exposes for any other
// distance/azimuth computation in the engine.
func (p *Pipeline) viewAzimuth(origin, point rotation.Vector3) float64 {
	ell := p.Config.Ellipsoid
	aircraft := ell.ToLLH(geodesy.ECEF{X: origin.X, Y: origin.Y, Z: origin.Z})
	ground := ell.ToLLH(geodesy.ECEF{X: point.X, Y: point.Y, Z: point.Z})
	return ell.InverseBowring(aircraft, ground).Azimuth
}
