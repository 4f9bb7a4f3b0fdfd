package geodesy

import (
	"math"
	"testing"
)

func TestLLHToECEFRoundTrip(t *testing.T) {
	ell := WGS84()
	cases := []LLH{
		{Lon: 0, Lat: 0, Hei: 0},
		{Lon: -1.5, Lat: 52.07, Hei: 1850},
		{Lon: 178.2, Lat: -44.9, Hei: 320},
		{Lon: -120.0, Lat: 71.3, Hei: 12000},
	}
	for _, in := range cases {
		out := ell.ToLLH(ell.ToECEF(in))
		if math.Abs(out.Lat-in.Lat) > 1e-6 || math.Abs(out.Lon-in.Lon) > 1e-6 {
			t.Errorf("lat/lon round trip %+v -> %+v", in, out)
		}
		if math.Abs(out.Hei-in.Hei) > 1e-3 {
			t.Errorf("height round trip %+v -> %v", in, out.Hei)
		}
	}
}

func TestInverseBowringShortBaseline(t *testing.T) {
	ell := WGS84()
	p1 := LLH{Lon: -1.0, Lat: 52.001, Hei: 0}
	p2 := LLH{Lon: -1.0, Lat: 52.0, Hei: 0}
	res := ell.InverseBowring(p1, p2)
	// one millidegree of latitude is roughly 111 metres
	if res.Distance < 100 || res.Distance > 125 {
		t.Errorf("Distance = %v, want ~111m", res.Distance)
	}
	if math.Abs(res.Azimuth-0) > 1 && math.Abs(res.Azimuth-360) > 1 {
		t.Errorf("Azimuth = %v, want ~north", res.Azimuth)
	}
}

func TestMetresPerDegreeCustomEllipsoidNonZero(t *testing.T) {
	custom := NewEllipsoid(6378137.0, 6356752.3142)
	got := custom.MetresPerDegreeAt(52)
	want := WGS84().MetresPerDegreeAt(52)
	if math.Abs(got-want) > 50 {
		t.Errorf("custom-ellipsoid metres/degree = %v, tabulated = %v", got, want)
	}
}
