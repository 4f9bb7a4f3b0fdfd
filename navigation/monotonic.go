package navigation

import "github.com/samber/lo"

// CheckMonotonicTime reads every scan in [lowerScan, upperScan) and
// confirms scan time never decreases across that range.
func (r *Reader) CheckMonotonicTime(lowerScan, upperScan int) error {
	times := make([]float64, 0, upperScan-lowerScan)
	for i := lowerScan; i < upperScan; i++ {
		rec, err := r.ReadScan(i)
		if err != nil {
			return err
		}
		times = append(times, rec.Time)
	}
	if len(times) == 0 {
		return nil
	}
	maxSeen := lo.Max(times[:1])
	for _, t := range times[1:] {
		if t < maxSeen {
			return ErrNonMonotonicTime
		}
		maxSeen = lo.Max([]float64{maxSeen, t})
	}
	return nil
}
