package calibration

import (
	"testing"

	"github.com/arsf-go/hyperspec/sensor"
)

func TestParseQCFailuresDecodesPairs(t *testing.T) {
	content := "3 50\n7 12\n\n 9 0 \n"
	got, err := ParseQCFailures(content)
	if err != nil {
		t.Fatalf("ParseQCFailures returned error: %v", err)
	}
	want := []QCFailure{{Band: 3, Sample: 50}, {Band: 7, Sample: 12}, {Band: 9, Sample: 0}}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseQCFailuresRejectsMalformedLine(t *testing.T) {
	if _, err := ParseQCFailures("3 50 99\n"); err == nil {
		t.Error("expected an error for a line with the wrong field count")
	}
	if _, err := ParseQCFailures("band sample\n"); err == nil {
		t.Error("expected an error for non-numeric fields")
	}
}

func TestCorruptLineMarksEveryPixel(t *testing.T) {
	d := testDescriptor()
	line := CorruptLine(d)
	for i, v := range line.Image {
		if v != 0 {
			t.Fatalf("image[%d] = %v, want 0", i, v)
		}
	}
	for i, m := range line.Mask {
		if !sensor.Has(m, sensor.CorruptData) {
			t.Fatalf("mask[%d] = %#x, want CorruptData set", i, m)
		}
	}
}
