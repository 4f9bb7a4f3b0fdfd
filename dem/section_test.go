package dem

import (
	"testing"

	"github.com/arsf-go/hyperspec/geodesy"
	"github.com/arsf-go/hyperspec/navigation"
)

func TestSectionAOIPadsAndFits(t *testing.T) {
	d := flatDEM(t, 5)
	ell := geodesy.WGS84()
	lim := navigation.Limits{
		MinLat: -0.1, MaxLat: 0.1,
		MinLon: -0.1, MaxLon: 0.1,
		MinHei: 1000, MaxHei: 1000,
		MinRoll: -5, MaxRoll: 5,
	}
	bounds, ok := SectionAOI(d, ell, lim, 34.0)
	if !ok {
		t.Fatalf("SectionAOI rejected a section comfortably inside the dem bounds")
	}
	if !(bounds.LLX <= -0.1 && bounds.URX >= 0.1 && bounds.LLY <= -0.1 && bounds.URY >= 0.1) {
		t.Fatalf("SectionAOI bounds %+v do not enclose the requested limits", bounds)
	}
}

func TestSectionAOIRejectsWhenBufferExceedsDEM(t *testing.T) {
	d := flatDEM(t, 5)
	ell := geodesy.WGS84()
	lim := navigation.Limits{
		MinLat: -0.1, MaxLat: 0.1,
		MinLon: -0.1, MaxLon: 0.1,
		MinHei: 50000, MaxHei: 50000,
		MinRoll: -5, MaxRoll: 5,
	}
	if _, ok := SectionAOI(d, ell, lim, 80.0); ok {
		t.Fatalf("SectionAOI accepted a section whose view-angle buffer overruns the dem bounds")
	}
}

func TestAOIBytesScalesWithCellCount(t *testing.T) {
	d := flatDEM(t, 1)
	d.SetAOI(-1.0, -1.5, 1.5, 1.0)
	got := d.AOIBytes()
	want := int64(5) * int64(5) * bytesPerCell
	if got != want {
		t.Fatalf("AOIBytes() = %d, want %d", got, want)
	}
}

func TestBisectSplitsRangeInHalf(t *testing.T) {
	aLo, aHi, bLo, bHi := Bisect(0, 10)
	if aLo != 0 || aHi != 5 || bLo != 5 || bHi != 10 {
		t.Fatalf("Bisect(0, 10) = (%d,%d,%d,%d), want (0,5,5,10)", aLo, aHi, bLo, bHi)
	}
}
