package geocorrection

import (
	"testing"

	"github.com/arsf-go/hyperspec/geodesy"
)

func TestScanLineViewVectorsHorizonGuardMargins(t *testing.T) {
	ell := geodesy.WGS84()
	// rotX tilts the look away from nadir by that many degrees; 79.99
	// sits inside the default 80 degree guard, 80.1 outside it.
	rotX := []float64{0, 79.99, 80.1}
	rotY := make([]float64, 3)
	rotZ := make([]float64, 3)

	res := ScanLineViewVectorsInECEF(ell, 0, 0, 1000, rotX, rotY, rotZ,
		Combined, DefaultMaxAllowedViewVectorAngle, 0, 0, 0)

	if res.BadPixels != 1 {
		t.Fatalf("BadPixels = %d, want only the 80.1 degree look rejected", res.BadPixels)
	}
	if res.Vectors[0].X == BadDataValue || res.Vectors[1].X == BadDataValue {
		t.Error("looks inside the guard must not be sentinelled")
	}
	if res.Vectors[2].X != BadDataValue {
		t.Error("a look past the guard must be sentinelled")
	}
}

func TestScanLineViewVectorsRejectsAboveHorizon(t *testing.T) {
	ell := geodesy.WGS84()
	// a half-turn about X points the look at the sky
	res := ScanLineViewVectorsInECEF(ell, 0, 0, 1000, []float64{180}, []float64{0}, []float64{0},
		Combined, DefaultMaxAllowedViewVectorAngle, 0, 0, 0)
	if res.BadPixels != 1 || res.Vectors[0].X != BadDataValue {
		t.Fatalf("an above-horizon look must be sentinelled: %+v", res)
	}
}
