// Package navigation reads the per-scan navigation record stream
// (time, position, attitude) that the Geocorrection Pipeline combines
// with the View-Vector Table.
package navigation

import "github.com/arsf-go/hyperspec/raster"

// expectedBands is the fixed per-scan record layout: time, lat, lon,
// height, roll, pitch, heading.
const expectedBands = 7

// Record is one scan's navigation solution.
type Record struct {
	Time    float64
	Lat     float64
	Lon     float64
	Hei     float64
	Roll    float64
	Pitch   float64
	Heading float64
	ScanID  int
}

// Reader wraps the navigation Dataset, a 1-sample, 7-band BIL raster
// with one scan per line.
type Reader struct {
	ds *raster.Dataset
}

// Open wraps an already-parsed navigation Dataset, validating its
// expected (1 sample, 7 bands) shape.
func Open(ds *raster.Dataset) (*Reader, error) {
	if ds.Header.Samples != 1 || ds.Header.Bands != expectedBands {
		return nil, ErrUnexpectedShape
	}
	return &Reader{ds: ds}, nil
}

// TotalScans is the number of scan records in the file.
func (r *Reader) TotalScans() int {
	return r.ds.Header.Lines
}

// ReadScan reads one scan's navigation record.
func (r *Reader) ReadScan(scan int) (Record, error) {
	if scan < 0 || scan >= r.TotalScans() {
		return Record{}, ErrScanOutOfRange
	}
	vals, err := r.ds.ReadLine(scan)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Time:    vals[0],
		Lat:     vals[1],
		Lon:     vals[2],
		Hei:     vals[3],
		Roll:    vals[4],
		Pitch:   vals[5],
		Heading: vals[6],
		ScanID:  scan,
	}, nil
}

// Limits is the bounding envelope of a navigation section.
type Limits struct {
	MinLat, MaxLat   float64
	MinLon, MaxLon   float64
	MinHei, MaxHei   float64
	MinRoll, MaxRoll float64
}

// FindLimits scans [lowerScan, upperScan) and returns the min/max of
// lat/lon/height/roll over that section.
func (r *Reader) FindLimits(lowerScan, upperScan int) (Limits, error) {
	if upperScan <= lowerScan {
		return Limits{}, ErrBadRange
	}
	lim := Limits{MinLat: 9999, MinLon: 9999, MinHei: 9999, MinRoll: 9999,
		MaxLat: -9999, MaxLon: -9999, MaxHei: -9999, MaxRoll: -9999}
	for i := lowerScan; i < upperScan; i++ {
		rec, err := r.ReadScan(i)
		if err != nil {
			return Limits{}, err
		}
		if rec.Lat > lim.MaxLat {
			lim.MaxLat = rec.Lat
		}
		if rec.Lat < lim.MinLat {
			lim.MinLat = rec.Lat
		}
		if rec.Lon > lim.MaxLon {
			lim.MaxLon = rec.Lon
		}
		if rec.Lon < lim.MinLon {
			lim.MinLon = rec.Lon
		}
		if rec.Hei > lim.MaxHei {
			lim.MaxHei = rec.Hei
		}
		if rec.Hei < lim.MinHei {
			lim.MinHei = rec.Hei
		}
		if rec.Roll > lim.MaxRoll {
			lim.MaxRoll = rec.Roll
		}
		if rec.Roll < lim.MinRoll {
			lim.MinRoll = rec.Roll
		}
	}
	return lim, nil
}
