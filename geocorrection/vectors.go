// Package geocorrection orchestrates the Geocorrection Pipeline: for
// every scan, it turns the View-Vector Table's per-pixel boresight
// rotations plus the Navigation Record's position/attitude into ECEF
// look vectors, then intersects each against the ellipsoid or a DEM
// surface to recover per-pixel latitude/longitude/height.
package geocorrection

import (
	"math"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/rotation"
)

// BadDataValue flags a pixel whose view vector could not be resolved
// to a ground position: it points above the horizon, its look angle
// from nadir exceeds Config.MaxViewVectorAngle (by default
// DefaultMaxAllowedViewVectorAngle), or its ray finds no ellipsoid or
// DEM intersection.
const BadDataValue = -9999.0

// DefaultMaxAllowedViewVectorAngle is the default look-angle guard
// (degrees from nadir) beyond which a pixel is rejected rather than
// geolocated, protecting against view vectors swinging above the
// horizon during a steep aircraft bank.
const DefaultMaxAllowedViewVectorAngle = 80.0

// Method selects how a scan line's per-pixel View-Vector Table angles
// are combined with the aircraft's navigation attitude: COMBINED sums
// the aircraft roll/pitch/heading into a per-scan copy of the table's
// angles first, so the whole sensor-to-ECEF transform is a single
// RzRxRy rotation; SPLIT rotates by the table's angles alone first,
// then applies the aircraft attitude as its own separate RzRxRy
// rotation. Either way the table's boresight offset is folded into it
// once, not re-applied per scan.
type Method int

const (
	Combined Method = iota
	Split
)

// localLevelToECEF is the rotation carrying a local-level (North-East-
// Down-derived) vector at (lat, lon) into ECEF XYZ.
func localLevelToECEF(lat, lon float64) rotation.Matrix3 {
	return rotation.Compose(0, -(90 + lat), lon, rotation.RxRzRy)
}

// vvInECEF carries one sensor-frame unit vector v into ECEF XYZ at
// (lat, lon). rotX, rotY, rotZ are this pixel's View-Vector Table
// angles (boresight already folded in, and, in Combined mode, the
// aircraft attitude already summed in by the caller); navRoll,
// navPitch, navHeading are the aircraft's per-scan attitude, applied
// as a second separate rotation only in Split mode.
func vvInECEF(v rotation.Vector3, lat, lon float64, rotX, rotY, rotZ float64, navRoll, navPitch, navHeading float64, method Method) rotation.Vector3 {
	look := rotation.Compose(rotX, rotY, rotZ, rotation.RzRxRy).Mul(v)
	if method == Split {
		look = rotation.Compose(navRoll, navPitch, navHeading, rotation.RzRxRy).Mul(look)
	}
	return localLevelToECEF(lat, lon).Mul(look)
}

// ScanLineECEF is the result of resolving one scan line's view
// vectors into ECEF, with the count of pixels rejected by the horizon
// guard.
type ScanLineECEF struct {
	Vectors    []rotation.Vector3
	BadPixels  int
	OriginECEF rotation.Vector3
}

// ScanLineViewVectorsInECEF resolves every pixel's rotation (rotX,
// rotY, rotZ in the View-Vector Table's per-pixel layout, already
// carrying the aircraft attitude summed in for Combined mode) into an
// ECEF look vector rooted at the aircraft position (lat, lon, hei),
// rejecting any pixel whose angle from nadir exceeds
// maxAllowedVVAngleDeg or whose vector points above the horizon.
// navRoll, navPitch, navHeading are the aircraft's per-scan attitude,
// applied as the second rotation in Split mode only.
func ScanLineViewVectorsInECEF(ell *geodesy.Ellipsoid, lat, lon, hei float64, rotX, rotY, rotZ []float64,
	method Method, maxAllowedVVAngleDeg float64, navRoll, navPitch, navHeading float64) ScanLineECEF {

	origin := ell.ToECEF(geodesy.LLH{Lat: lat, Lon: lon, Hei: hei})
	originVec := rotation.Vector3{X: origin.X, Y: origin.Y, Z: origin.Z}

	downMag := math.Sqrt(originVec.X*originVec.X + originVec.Y*originVec.Y + originVec.Z*originVec.Z)
	unitDown := rotation.Vector3{X: -originVec.X / downMag, Y: -originVec.Y / downMag, Z: -originVec.Z / downMag}

	maxAngle := maxAllowedVVAngleDeg * math.Pi / 180.0

	out := make([]rotation.Vector3, len(rotX))
	bad := 0
	nadir := rotation.Vector3{X: 0, Y: 0, Z: 1}
	for i := range rotX {
		ecef := vvInECEF(nadir, lat, lon, rotX[i], rotY[i], rotZ[i], navRoll, navPitch, navHeading, method)
		cosAl := unitDown.X*ecef.X + unitDown.Y*ecef.Y + unitDown.Z*ecef.Z
		if cosAl < 0 || math.Acos(cosAl) > maxAngle {
			out[i] = rotation.Vector3{X: BadDataValue, Y: BadDataValue, Z: BadDataValue}
			bad++
			continue
		}
		out[i] = ecef
	}
	return ScanLineECEF{Vectors: out, BadPixels: bad, OriginECEF: originVec}
}
