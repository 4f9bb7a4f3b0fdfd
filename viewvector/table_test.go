package viewvector

import (
	"io"
	"testing"

	"github.com/arsf-go/hyperspec/raster"
)

type memStream struct {
	buf []byte
	pos int64
}

func (m *memStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memStream) Close() error { return nil }

func buildTable(t *testing.T, rows, cols int, rotX []float64) *Table {
	t.Helper()
	h := &raster.Header{
		Samples: rows, Lines: cols, Bands: 3,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	ds := raster.Open(&memStream{}, h)
	for c := 0; c < cols; c++ {
		if err := ds.WriteBandLine(rotX[c*rows : (c+1)*rows]); err != nil {
			t.Fatalf("writing rotX band line: %v", err)
		}
	}
	for b := 1; b < 3; b++ {
		zeros := make([]float64, rows)
		for c := 0; c < cols; c++ {
			if err := ds.WriteBandLine(zeros); err != nil {
				t.Fatalf("writing band %d line: %v", b, err)
			}
		}
	}
	vv, err := Load(ds)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return vv
}

func TestLoadRejectsWrongBandCount(t *testing.T) {
	h := &raster.Header{
		Samples: 4, Lines: 1, Bands: 2,
		DataType: raster.F64, Interleave: raster.BIL,
		Raw: map[string]string{}, MultiValued: map[string][]string{},
	}
	ds := raster.Open(&memStream{}, h)
	if _, err := Load(ds); err != ErrBandCount {
		t.Fatalf("Load: got %v, want ErrBandCount", err)
	}
}

func TestBinAndTrimAveragesAndTrims(t *testing.T) {
	// 8 CCD rows, spatial binning 2 -> 4 binned rows, trim to 3 samples
	// starting at row 1 (drop row 0 as an unused/FODIS column).
	rotX := []float64{0, 0, 2, 4, 6, 6, 8, 8}
	vv := buildTable(t, 8, 1, rotX)
	trimmed, err := vv.BinAndTrim(2, 1, 3)
	if err != nil {
		t.Fatalf("BinAndTrim: %v", err)
	}
	if trimmed.CCDRows != 3 {
		t.Fatalf("CCDRows = %d, want 3", trimmed.CCDRows)
	}
	// bin 0: avg(0,0)=0, bin 1: avg(2,4)=3, bin 2: avg(6,6)=6, bin 3: avg(8,8)=8
	// trimmed from index 1: [3, 6, 8]
	want := []float64{3, 6, 8}
	for i, w := range want {
		if trimmed.RotX[i] != w {
			t.Errorf("trimmed.RotX[%d] = %v, want %v", i, trimmed.RotX[i], w)
		}
	}
}

func TestBinAndTrimRejectsSampleMismatch(t *testing.T) {
	rotX := []float64{0, 0, 2, 4}
	vv := buildTable(t, 4, 1, rotX)
	if _, err := vv.BinAndTrim(2, 0, 5); err != ErrSampleMismatch {
		t.Fatalf("BinAndTrim: got %v, want ErrSampleMismatch", err)
	}
}

func TestApplyAngleRotationsShiftsEveryCell(t *testing.T) {
	vv := buildTable(t, 2, 1, []float64{1, 2})
	vv.ApplyAngleRotations(10, 0, 0)
	if vv.RotX[0] != 11 || vv.RotX[1] != 12 {
		t.Errorf("RotX after ApplyAngleRotations = %v, want [11 12]", vv.RotX)
	}
}
