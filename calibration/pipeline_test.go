package calibration

import (
	"testing"

	"github.com/arsf-go/hyperspec/badpixel"
	"github.com/arsf-go/hyperspec/sensor"
)

func testDescriptor() *sensor.Descriptor {
	return &sensor.Descriptor{
		Name:            sensor.HAWK,
		NumBands:        2,
		NumSamples:      4,
		RawMaxDN:        16383,
		CalibratedMaxDN: 65535,
		RadianceScalar:  1000,
		IntegrationTime: 10,
		SpectralBinning: 1,
	}
}

func TestFlagPixelsOverflowFlagsSmearOnEagle(t *testing.T) {
	d := testDescriptor()
	d.Name = sensor.EAGLE
	d.LowerBandLimit = 0
	p := &Pipeline{Descriptor: d}
	line := NewLine(d, false)
	line.Image[0*d.NumSamples+2] = float64(d.RawMaxDN)

	if err := p.FlagPixels(line); err != nil {
		t.Fatalf("FlagPixels: %v", err)
	}
	if !sensor.Has(line.Mask[0*d.NumSamples+2], sensor.OverFlow) {
		t.Error("overflowed cell not flagged OverFlow")
	}
	if !sensor.Has(line.Mask[1*d.NumSamples+2], sensor.SmearAffected) {
		t.Error("higher band of overflowed sample not flagged SmearAffected")
	}
}

func TestFlagPixelsCounterCellZeroedWhenLowerBandLimitZero(t *testing.T) {
	d := testDescriptor()
	// a non-Eagle sensor must carry a bad pixel catalogue; an empty one
	// flags nothing beyond the reserved cells under test.
	p := &Pipeline{Descriptor: d, BadPixels: &badpixel.Catalogue{}}
	line := NewLine(d, false)
	line.Image[0] = 1234
	line.Image[1] = 5678

	if err := p.FlagPixels(line); err != nil {
		t.Fatalf("FlagPixels: %v", err)
	}
	if line.Image[0] != 0 || line.Image[1] != 0 {
		t.Error("frame counter cell and its neighbour must be zeroed")
	}
	if !sensor.Has(line.Mask[0], sensor.BadPixel) || !sensor.Has(line.Mask[1], sensor.BadPixel) {
		t.Error("frame counter cell and its neighbour must be flagged BadPixel")
	}
}

func TestApplyGainsOverflowClampsToCalibratedMax(t *testing.T) {
	d := testDescriptor()
	p := &Pipeline{Descriptor: d, Gains: make([]float64, d.NumBands*d.NumSamples)}
	for i := range p.Gains {
		p.Gains[i] = 1
	}
	line := NewLine(d, false)
	line.Image[3] = 1e9 // guaranteed overflow after scaling

	if err := p.ApplyGains(line); err != nil {
		t.Fatalf("ApplyGains: %v", err)
	}
	if uint16(line.Image[3]) != d.CalibratedMaxDN {
		t.Errorf("Image[3] = %v, want clamp to CalibratedMaxDN", line.Image[3])
	}
	if !sensor.Has(line.Mask[3], sensor.OverFlow) {
		t.Error("clamped cell not flagged OverFlow")
	}
}

func TestApplyGainsZeroIntegrationTimeRejected(t *testing.T) {
	d := testDescriptor()
	d.IntegrationTime = 0
	p := &Pipeline{Descriptor: d, Gains: make([]float64, d.NumBands*d.NumSamples)}
	line := NewLine(d, false)
	if err := p.ApplyGains(line); err != ErrZeroIntegrationTime {
		t.Errorf("err = %v, want ErrZeroIntegrationTime", err)
	}
}

func TestSmearCorrectNoOpForNonEagle(t *testing.T) {
	d := testDescriptor()
	p := &Pipeline{Descriptor: d}
	line := NewLine(d, false)
	if p.SmearCorrect(line) {
		t.Error("SmearCorrect should return false for a non-Eagle descriptor")
	}
}

func TestAverageFodisAveragesNonZeroOnly(t *testing.T) {
	d := testDescriptor()
	d.Fodis = sensor.FodisRegion{Lower: 0, Upper: 2, Valid: true}
	p := &Pipeline{Descriptor: d}
	line := NewLine(d, false)
	line.Image[0] = 10
	line.Image[1] = 0 // excluded from the average
	line.Image[d.NumSamples+0] = 20
	line.Image[d.NumSamples+1] = 40

	if !p.AverageFodis(line) {
		t.Fatal("AverageFodis returned false for a valid FODIS region")
	}
	if line.Fodis[0] != 10 {
		t.Errorf("band 0 fodis = %v, want 10 (zero samples excluded)", line.Fodis[0])
	}
	if line.Fodis[1] != 30 {
		t.Errorf("band 1 fodis = %v, want 30", line.Fodis[1])
	}
}

func TestFlipBandsReversesSpectralAxis(t *testing.T) {
	vals := []float64{1, 2, 3, 4} // 2 bands, 2 samples
	FlipBands(vals, 2, 2)
	want := []float64{3, 4, 1, 2}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("FlipBands = %v, want %v", vals, want)
		}
	}
}

func TestFlipSamplesReversesAcrossTrackAxis(t *testing.T) {
	vals := []float64{1, 2, 3, 4} // 1 band, 4 samples
	FlipSamples(vals, 1, 4)
	want := []float64{4, 3, 2, 1}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("FlipSamples = %v, want %v", vals, want)
		}
	}
}

func TestMissingFramesBetweenCountsGaps(t *testing.T) {
	counters := []uint16{0, 1, 2, 5, 6} // a gap of 2 missing frames between lines 2 and 3
	counterAt := func(line int) uint16 { return counters[line] }

	got, err := MissingFramesBetween(counterAt, 0, 4)
	if err != nil {
		t.Fatalf("MissingFramesBetween: %v", err)
	}
	if got != 2 {
		t.Errorf("MissingFramesBetween = %d, want 2", got)
	}
}

func TestBuildLinePlanInsertsDroppedSteps(t *testing.T) {
	counters := []uint16{0, 1, 2, 5, 6}
	counterAt := func(line int) uint16 { return counters[line] }

	plan, err := BuildLinePlan(counterAt, 0, 4)
	if err != nil {
		t.Fatalf("BuildLinePlan: %v", err)
	}
	// raw,raw,raw,dropped,dropped,raw
	wantKinds := []StepKind{StepRaw, StepRaw, StepRaw, StepDropped, StepDropped, StepRaw}
	if len(plan) != len(wantKinds) {
		t.Fatalf("plan length = %d, want %d: %+v", len(plan), len(wantKinds), plan)
	}
	for i, k := range wantKinds {
		if plan[i].Kind != k {
			t.Errorf("plan[%d].Kind = %v, want %v", i, plan[i].Kind, k)
		}
	}
}

func TestBuildLinePlanAllowsCounterWraparound(t *testing.T) {
	counters := []uint16{65534, 65535, 1} // one frame dropped across the wrap
	counterAt := func(line int) uint16 { return counters[line] }

	plan, err := BuildLinePlan(counterAt, 0, 3)
	if err != nil {
		t.Fatalf("BuildLinePlan across a wrap: %v", err)
	}
	wantKinds := []StepKind{StepRaw, StepRaw, StepDropped, StepRaw}
	if len(plan) != len(wantKinds) {
		t.Fatalf("plan length = %d, want %d: %+v", len(plan), len(wantKinds), plan)
	}
}

func TestBuildLinePlanRejectsDecreasingCounter(t *testing.T) {
	counters := []uint16{10, 11, 9}
	counterAt := func(line int) uint16 { return counters[line] }

	if _, err := BuildLinePlan(counterAt, 0, 3); err == nil {
		t.Fatal("a counter decrease outside the wrap window must abort the run")
	}
}

func TestBandMapRoundTrip(t *testing.T) {
	raw := []float64{450.0, 550.0, 650.0}
	cal := []float64{449.998, 450.002, 549.999, 550.001, 649.998, 650.002} // specBinRatio 2, pairs bin to raw
	bm, err := BuildBandMap(raw, cal, 2)
	if err != nil {
		t.Fatalf("BuildBandMap: %v", err)
	}
	for w := range raw {
		c, ok := bm.RawToCal[w]
		if !ok {
			t.Fatalf("raw band %d has no calibration band", w)
		}
		if bm.CalToRaw[c] != w {
			t.Errorf("band map not injective at raw band %d", w)
		}
	}
}

func TestBinningRatioRejectsCoarserCalibration(t *testing.T) {
	if _, err := BinningRatio(2, 1); err != nil {
		t.Errorf("BinningRatio(2, 1): %v, want ratio 2", err)
	}
	if _, err := BinningRatio(1, 2); err != ErrCalBinningTooCoarse {
		t.Errorf("BinningRatio(1, 2): got %v, want ErrCalBinningTooCoarse", err)
	}
	if _, err := BinningRatio(3, 2); err != ErrBinningRatioNotInteger {
		t.Errorf("BinningRatio(3, 2): got %v, want ErrBinningRatioNotInteger", err)
	}
}

func TestDroppedLineMarksEveryPixel(t *testing.T) {
	d := testDescriptor()
	line := DroppedLine(d)
	for i, v := range line.Image {
		if v != 0 {
			t.Fatalf("image[%d] = %v, want 0", i, v)
		}
	}
	for i, m := range line.Mask {
		if !sensor.Has(m, sensor.DroppedScan) {
			t.Fatalf("mask[%d] = %#x, want DroppedScan set", i, m)
		}
	}
}

func TestBandMapRejectsDisagreement(t *testing.T) {
	raw := []float64{450.0, 999.0}
	cal := []float64{450.0, 451.0}
	if _, err := BuildBandMap(raw, cal, 1); err == nil {
		t.Fatal("expected disagreement error")
	}
}
