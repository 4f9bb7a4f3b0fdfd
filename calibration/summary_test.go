package calibration

import "testing"

func TestMethodTallyObserveDistinct(t *testing.T) {
	var mt MethodTally
	mt.Observe([]uint8{0, 1, 2, 0, 1})
	mt.Observe([]uint8{4, 2})
	mt.Observe(nil)

	got := mt.Distinct()
	want := map[uint8]bool{1: true, 2: true, 4: true}
	if len(got) != len(want) {
		t.Fatalf("Distinct() = %v, want 3 distinct values", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected method byte %d in Distinct()", v)
		}
	}
}

func TestMethodTallyIgnoresAllZero(t *testing.T) {
	var mt MethodTally
	mt.Observe([]uint8{0, 0, 0})
	if got := mt.Distinct(); len(got) != 0 {
		t.Errorf("Distinct() = %v, want empty", got)
	}
}
