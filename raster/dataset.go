package raster

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Dataset is a random-access/sequential-append BIL or BSQ raster backed
// by a Stream, with its parsed Header. Random access by (band, line,
// sample) is the entry point consumed by the calibration, DEM, and
// view-vector readers; sequential append operations are consumed by the
// calibration and geocorrection writers (L1 image/mask, IGM, ancillary
// raster).
type Dataset struct {
	Stream
	Header       *Header
	HeaderOffset int64 // bytes of leading header data before pixel data, usually 0
	byteOrder    binary.ByteOrder
	nextLine     int // next line index sequential Write* calls will append
	nextBand     int // next band index a WriteBandLine call will fill within nextLine
}

// Open wraps an already-open Stream plus its parsed Header as a Dataset
// ready for random access and/or sequential append.
func Open(s Stream, h *Header) *Dataset {
	bo := binary.ByteOrder(binary.LittleEndian)
	if h.ByteOrder == BigEndian {
		bo = binary.BigEndian
	}
	return &Dataset{Stream: s, Header: h, byteOrder: bo}
}

func (d *Dataset) offset(band, line, sample int) (int64, error) {
	h := d.Header
	if band < 0 || band >= h.Bands || sample < 0 || sample >= h.Samples || line < 0 {
		return 0, ErrBadIndex
	}
	sz := int64(h.DataType.Size())
	switch h.Interleave {
	case BIL:
		return d.HeaderOffset + int64(line)*int64(h.Bands*h.Samples)*sz +
			int64(band)*int64(h.Samples)*sz + int64(sample)*sz, nil
	case BSQ:
		return d.HeaderOffset + int64(band)*int64(h.Lines*h.Samples)*sz +
			int64(line)*int64(h.Samples)*sz + int64(sample)*sz, nil
	}
	return 0, ErrUnsupportedInterleave
}

func (d *Dataset) readRaw(off int64, n int) ([]byte, error) {
	if _, err := d.Seek(off, 0); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := d.Read(buf[read:])
		read += m
		if err != nil {
			if read == n {
				break
			}
			return nil, err
		}
		if m == 0 {
			break
		}
	}
	if read != n {
		return nil, ErrShortRead
	}
	return buf, nil
}

func (d *Dataset) decode(buf []byte) float64 {
	switch d.Header.DataType {
	case U8:
		return float64(buf[0])
	case I16:
		return float64(int16(d.byteOrder.Uint16(buf)))
	case U16:
		return float64(d.byteOrder.Uint16(buf))
	case I32:
		return float64(int32(d.byteOrder.Uint32(buf)))
	case U32:
		return float64(d.byteOrder.Uint32(buf))
	case F32:
		return float64(math.Float32frombits(d.byteOrder.Uint32(buf)))
	case F64:
		return math.Float64frombits(d.byteOrder.Uint64(buf))
	}
	return 0
}

func (d *Dataset) encode(v float64) []byte {
	sz := d.Header.DataType.Size()
	buf := make([]byte, sz)
	switch d.Header.DataType {
	case U8:
		buf[0] = byte(uint8(v))
	case I16:
		d.byteOrder.PutUint16(buf, uint16(int16(v)))
	case U16:
		d.byteOrder.PutUint16(buf, uint16(v))
	case I32:
		d.byteOrder.PutUint32(buf, uint32(int32(v)))
	case U32:
		d.byteOrder.PutUint32(buf, uint32(v))
	case F32:
		d.byteOrder.PutUint32(buf, math.Float32bits(float32(v)))
	case F64:
		d.byteOrder.PutUint64(buf, math.Float64bits(v))
	}
	return buf
}

// ReadCell returns the value at (band, line, sample) as a float64,
// regardless of the underlying storage data type.
func (d *Dataset) ReadCell(band, line, sample int) (float64, error) {
	off, err := d.offset(band, line, sample)
	if err != nil {
		return 0, err
	}
	buf, err := d.readRaw(off, d.Header.DataType.Size())
	if err != nil {
		return 0, err
	}
	return d.decode(buf), nil
}

// ReadCellU16 is ReadCell specialised for u16 raw DN imagery, avoiding a
// float round trip for the hot path of calibration line decoding.
func (d *Dataset) ReadCellU16(band, line, sample int) (uint16, error) {
	if d.Header.DataType != U16 {
		v, err := d.ReadCell(band, line, sample)
		return uint16(v), err
	}
	off, err := d.offset(band, line, sample)
	if err != nil {
		return 0, err
	}
	buf, err := d.readRaw(off, 2)
	if err != nil {
		return 0, err
	}
	return d.byteOrder.Uint16(buf), nil
}

// ReadLine returns one full scan line (Bands*Samples, band-major) as
// float64.
func (d *Dataset) ReadLine(line int) ([]float64, error) {
	h := d.Header
	out := make([]float64, h.Bands*h.Samples)
	for b := 0; b < h.Bands; b++ {
		for s := 0; s < h.Samples; s++ {
			v, err := d.ReadCell(b, line, s)
			if err != nil {
				return nil, err
			}
			out[b*h.Samples+s] = v
		}
	}
	return out, nil
}

// ReadLineToDoubles is an explicit alias of ReadLine emphasising the
// f64 conversion regardless of storage type.
func (d *Dataset) ReadLineToDoubles(line int) ([]float64, error) {
	return d.ReadLine(line)
}

// ReadLineU16 reads one full scan line (Bands*Samples, band-major) of a
// u16 raw raster directly into uint16, the representation the Calibration
// Pipeline reads raw frames as.
func (d *Dataset) ReadLineU16(line int) ([]uint16, error) {
	h := d.Header
	out := make([]uint16, h.Bands*h.Samples)
	for b := 0; b < h.Bands; b++ {
		for s := 0; s < h.Samples; s++ {
			v, err := d.ReadCellU16(b, line, s)
			if err != nil {
				return nil, err
			}
			out[b*h.Samples+s] = v
		}
	}
	return out, nil
}

// ReadBand returns every line of one band (Lines*Samples).
func (d *Dataset) ReadBand(band int) ([]float64, error) {
	h := d.Header
	out := make([]float64, h.Lines*h.Samples)
	for l := 0; l < h.Lines; l++ {
		for s := 0; s < h.Samples; s++ {
			v, err := d.ReadCell(band, l, s)
			if err != nil {
				return nil, err
			}
			out[l*h.Samples+s] = v
		}
	}
	return out, nil
}

// ReadBandLine returns one band's samples for a single line.
func (d *Dataset) ReadBandLine(band, line int) ([]float64, error) {
	h := d.Header
	out := make([]float64, h.Samples)
	for s := 0; s < h.Samples; s++ {
		v, err := d.ReadCell(band, line, s)
		if err != nil {
			return nil, err
		}
		out[s] = v
	}
	return out, nil
}

// ReadRect returns a (lineCount x sampleCount) block of one band.
func (d *Dataset) ReadRect(band, lineStart, lineCount, sampleStart, sampleCount int) ([]float64, error) {
	out := make([]float64, lineCount*sampleCount)
	for li := 0; li < lineCount; li++ {
		for si := 0; si < sampleCount; si++ {
			v, err := d.ReadCell(band, lineStart+li, sampleStart+si)
			if err != nil {
				return nil, err
			}
			out[li*sampleCount+si] = v
		}
	}
	return out, nil
}

// writeBandRow writes one band's samples at (band, d.nextLine); the
// seek through offset() keeps the write correct under either
// interleave.
func (d *Dataset) writeBandRow(band int, vals []float64) error {
	h := d.Header
	if len(vals) != h.Samples {
		return fmt.Errorf("writeBandRow: want %d values, got %d", h.Samples, len(vals))
	}
	off, err := d.offset(band, d.nextLine, 0)
	if err != nil {
		return err
	}
	if _, err := d.Seek(off, 0); err != nil {
		return err
	}
	for _, v := range vals {
		if _, err := d.Write(d.encode(v)); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine appends one full scan line (band-major) to the dataset. It
// cannot be interleaved with a partially-written WriteBandLine line.
func (d *Dataset) WriteLine(vals []float64) error {
	h := d.Header
	if len(vals) != h.Bands*h.Samples {
		return fmt.Errorf("WriteLine: want %d values, got %d", h.Bands*h.Samples, len(vals))
	}
	if d.nextBand != 0 {
		return fmt.Errorf("WriteLine: line %d has %d band rows pending", d.nextLine, h.Bands-d.nextBand)
	}
	for b := 0; b < h.Bands; b++ {
		if err := d.writeBandRow(b, vals[b*h.Samples:(b+1)*h.Samples]); err != nil {
			return err
		}
	}
	d.nextLine++
	return nil
}

// WriteLineWithValue appends a full scan line with every cell set to v;
// used to emit dropped-scan placeholder lines.
func (d *Dataset) WriteLineWithValue(v float64) error {
	h := d.Header
	vals := make([]float64, h.Bands*h.Samples)
	for i := range vals {
		vals[i] = v
	}
	return d.WriteLine(vals)
}

// WriteBandLine appends the next band's worth of samples for the
// current append line; after the last band of a line the cursor
// advances to the next line. A 1-band sink (mask, per-scan FODIS)
// therefore appends one line per call.
func (d *Dataset) WriteBandLine(vals []float64) error {
	if err := d.writeBandRow(d.nextBand, vals); err != nil {
		return err
	}
	d.nextBand++
	if d.nextBand == d.Header.Bands {
		d.nextBand = 0
		d.nextLine++
	}
	return nil
}

// WriteBandLineSection appends a partial band-line, samples [start, end),
// zero-filling the remainder; used when a sink is built up in sections
// (e.g. sub-AOI streamed geocorrection output).
func (d *Dataset) WriteBandLineSection(vals []float64, start, end int) error {
	full := make([]float64, d.Header.Samples)
	copy(full[start:end], vals)
	return d.WriteBandLine(full)
}
