package darkframe

import "testing"

type fakeLines struct {
	lines [][]uint16
}

func (f *fakeLines) ReadLineU16(line int) ([]uint16, error) {
	return f.lines[line], nil
}

func TestAnalyseRefinedMeanIgnoresOutliers(t *testing.T) {
	// with the N-1 sample stdev a single spike among n frames lies at
	// most (n-1)/sqrt(n) sigma from the mean, so at least 11 frames are
	// needed before the 3-sigma clip can reject it.
	src := &fakeLines{lines: [][]uint16{
		{0, 100, 100},
		{0, 102, 100},
		{0, 98, 100},
		{0, 100, 100},
		{0, 102, 100},
		{0, 98, 100},
		{0, 100, 100},
		{0, 102, 100},
		{0, 98, 100},
		{0, 100, 100},
		{0, 100, 100},
		{0, 9999, 100}, // spike rejected by the 3-sigma clip
	}}
	s, err := Analyse(src, 0, 12)
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if s.Refined[2] != 100 {
		t.Errorf("Refined[2] = %v, want 100 (constant column)", s.Refined[2])
	}
	if s.Refined[1] < 95 || s.Refined[1] > 105 {
		t.Errorf("Refined[1] = %v, want the outlier excluded from the mean", s.Refined[1])
	}
}

func TestAnalyseRejectsZeroCount(t *testing.T) {
	src := &fakeLines{lines: [][]uint16{{0, 1}}}
	if _, err := Analyse(src, 0, 0); err != ErrNoDarkFrames {
		t.Fatalf("Analyse(count=0): got %v, want ErrNoDarkFrames", err)
	}
}

func TestLocateDarkStartPrevJumpMeansAlreadyDark(t *testing.T) {
	counter := map[int]uint16{9: 100, 10: 5, 11: 6}
	start, err := LocateDarkStart(func(l int) uint16 { return counter[l] }, 12, 10, "100022", false)
	if err != nil {
		t.Fatalf("LocateDarkStart: %v", err)
	}
	if start != 10 {
		t.Errorf("start = %d, want 10", start)
	}
}

func TestLocateDarkStartNextJumpMeansLastLightLine(t *testing.T) {
	counter := map[int]uint16{9: 100, 10: 101, 11: 5}
	start, err := LocateDarkStart(func(l int) uint16 { return counter[l] }, 12, 10, "100022", false)
	if err != nil {
		t.Fatalf("LocateDarkStart: %v", err)
	}
	if start != 11 {
		t.Errorf("start = %d, want 11", start)
	}
}

func TestLocateDarkStartAmbiguousWithoutForceOrKnownSensor(t *testing.T) {
	counter := map[int]uint16{9: 100, 10: 101, 11: 102}
	_, err := LocateDarkStart(func(l int) uint16 { return counter[l] }, 12, 10, "300011", false)
	if err != ErrDarkStartAmbiguous {
		t.Fatalf("LocateDarkStart ambiguous case: got %v, want ErrDarkStartAmbiguous", err)
	}
}

func TestLocateDarkStartAmbiguousForcedOnOrdinarySensorKeepsClaimedStart(t *testing.T) {
	counter := map[int]uint16{9: 100, 10: 101, 11: 102}
	start, err := LocateDarkStart(func(l int) uint16 { return counter[l] }, 12, 10, "300011", true)
	if err != nil {
		t.Fatalf("LocateDarkStart: %v", err)
	}
	if start != 10 {
		t.Errorf("start = %d, want 10 (-darkforce keeps claimedStart unchanged on a non-SN110001 sensor)", start)
	}
}

func TestLocateDarkStartAmbiguousResolvedBySN110001(t *testing.T) {
	counter := map[int]uint16{9: 100, 10: 101, 11: 102}
	start, err := LocateDarkStart(func(l int) uint16 { return counter[l] }, 12, 10, "110001", false)
	if err != nil {
		t.Fatalf("LocateDarkStart: %v", err)
	}
	if start != 11 {
		t.Errorf("start = %d, want 11 (SN110001 no-jump fallback)", start)
	}
}

func TestCheckScalarRejectsNonUnity(t *testing.T) {
	if err := CheckScalar(IntegrationScalar(10, 10)); err != nil {
		t.Errorf("CheckScalar(unity): got %v, want nil", err)
	}
	if err := CheckScalar(IntegrationScalar(10, 5)); err != ErrTimeScalarNotUnity {
		t.Errorf("CheckScalar(mismatched tint): got %v, want ErrTimeScalarNotUnity", err)
	}
}
