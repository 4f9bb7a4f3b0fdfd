package report

import (
	"strings"
	"testing"
)

func TestTallySummaryCountsAccumulate(t *testing.T) {
	var tl Tally
	tl.AddFodisEmpty(1)
	tl.AddFodisEmpty(1)
	tl.AddLowCoverageDarkPixels(3)
	tl.AddAboveHorizon(5)
	tl.BadPixelMethodsSeen = []uint8{1, 4}

	s := tl.Summary()
	for _, want := range []string{"fodis-empty-bands: 2", "low-coverage-dark-pixels: 3", "above-horizon-pixels: 5"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q, got:\n%s", want, s)
		}
	}
}
