package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// DataType enumerates the ENVI-style data type codes this capability
// supports: u8, i16, u16, i32, u32, f32, f64.
type DataType int

const (
	U8 DataType = iota
	I16
	U16
	I32
	U32
	F32
	F64
)

// enviCode is the ENVI "data type" header integer for each DataType.
var enviCode = map[int]DataType{
	1:  U8,
	2:  I16,
	12: U16,
	3:  I32,
	13: U32,
	4:  F32,
	5:  F64,
}

var dataTypeCode = map[DataType]int{
	U8: 1, I16: 2, U16: 12, I32: 3, U32: 13, F32: 4, F64: 5,
}

// Size returns the byte width of one sample of this data type.
func (d DataType) Size() int {
	switch d {
	case U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case F64:
		return 8
	}
	return 0
}

// Interleave is the band-interleave scheme of the raster.
type Interleave int

const (
	BIL Interleave = iota
	BSQ
)

// ByteOrder matches the ENVI "byte order" header convention: 0 = little
// endian (host/Intel order), 1 = big endian (network/IEEE order).
type ByteOrder int

const (
	LittleEndian ByteOrder = 0
	BigEndian    ByteOrder = 1
)

// Header is the parsed ENVI-style key/value metadata sidecar. Values are
// kept as their raw strings plus any multi-valued split, with typed
// accessors for the keys this capability cares about.
type Header struct {
	Samples     int
	Lines       int
	Bands       int
	DataType    DataType
	Interleave  Interleave
	ByteOrder   ByteOrder
	Raw         map[string]string
	MultiValued map[string][]string
	// AcquisitionTime is populated when the header carries an
	// "acquisition time" key in the Specim "yyyy/ddd hh:mm:ss" format.
	AcquisitionTime time.Time
	HasAcquisition  bool
}

// ParseHeader reads an ENVI-style .hdr text stream into a Header. Values
// may be single tokens, brace-delimited lists "{a,b,c}" that can span
// multiple physical lines, or ';'-delimited sequences on one line. A
// line beginning with ';' outside of an open brace is a comment (used,
// for example, by the IGM writer for the ";Min X"/";Max X" bounding
// comments) and is kept in Raw under its literal key including the
// leading semicolon so a caller can recover it verbatim.
func ParseHeader(r io.Reader) (*Header, error) {
	h := &Header{Raw: make(map[string]string), MultiValued: make(map[string][]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending string
	var pendingKey string
	inBrace := false

	flush := func() {
		if pendingKey == "" {
			return
		}
		val := strings.TrimSpace(pending)
		h.Raw[pendingKey] = val
		if strings.Contains(val, ",") {
			h.MultiValued[pendingKey] = splitList(val)
		} else if strings.Contains(val, ";") {
			h.MultiValued[pendingKey] = splitSemicolon(val)
		}
		pendingKey, pending = "", ""
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "ENVI" {
			continue
		}

		if inBrace {
			pending += " " + trimmed
			if strings.Contains(trimmed, "}") {
				inBrace = false
				pending = strings.ReplaceAll(pending, "{", "")
				pending = strings.ReplaceAll(pending, "}", "")
				flush()
			}
			continue
		}

		if strings.HasPrefix(trimmed, ";") {
			// comment line; keep verbatim keyed by its own text
			h.Raw[trimmed] = ""
			continue
		}

		idx := strings.Index(trimmed, "=")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(trimmed[:idx]))
		val := strings.TrimSpace(trimmed[idx+1:])

		if strings.Contains(val, "{") && !strings.Contains(val, "}") {
			inBrace = true
			pendingKey = key
			pending = strings.ReplaceAll(val, "{", "")
			continue
		}
		if strings.HasPrefix(val, "{") && strings.HasSuffix(val, "}") {
			val = strings.TrimSuffix(strings.TrimPrefix(val, "{"), "}")
		}
		pendingKey, pending = key, val
		flush()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var err error
	if h.Samples, err = h.intKey("samples"); err != nil {
		return nil, err
	}
	if h.Lines, err = h.intKey("lines"); err != nil {
		return nil, err
	}
	if h.Bands, err = h.intKey("bands"); err != nil {
		return nil, err
	}
	dtCode, err := h.intKey("data type")
	if err != nil {
		return nil, err
	}
	dt, ok := enviCode[dtCode]
	if !ok {
		return nil, ErrUnsupportedDataType
	}
	h.DataType = dt

	switch strings.ToLower(h.Raw["interleave"]) {
	case "bil":
		h.Interleave = BIL
	case "bsq":
		h.Interleave = BSQ
	default:
		return nil, ErrUnsupportedInterleave
	}

	if bo, ok := h.Raw["byte order"]; ok {
		n, _ := strconv.Atoi(bo)
		h.ByteOrder = ByteOrder(n)
	}

	if at, ok := h.Raw["acquisition time"]; ok {
		if t, perr := parseAcquisitionTime(at); perr == nil {
			h.AcquisitionTime = t
			h.HasAcquisition = true
		}
	}

	return h, nil
}

func (h *Header) intKey(key string) (int, error) {
	v, ok := h.Raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("header key %q: %w", key, err)
	}
	return n, nil
}

// FloatKey returns a header value parsed as float64.
func (h *Header) FloatKey(key string) (float64, error) {
	v, ok := h.Raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// StringSliceKey returns a multi-valued header entry split on either
// commas or semicolons, or a single-element slice if the key was scalar.
func (h *Header) StringSliceKey(key string) ([]string, bool) {
	if vals, ok := h.MultiValued[key]; ok {
		return vals, true
	}
	if v, ok := h.Raw[key]; ok {
		return []string{v}, true
	}
	return nil, false
}

// AddToHdr mutates the header in-place, replacing or inserting a key.
// A key beginning with ';' is a comment line and is stored verbatim.
func (h *Header) AddToHdr(key, value string) {
	if strings.HasPrefix(key, ";") {
		h.Raw[key] = value
		return
	}
	h.Raw[strings.ToLower(key)] = value
}

// WriteHeader renders h as an ENVI-style .hdr sidecar, the counterpart
// to ParseHeader for the sequential Write* output datasets the
// calibration and geocorrection pipelines produce.
func WriteHeader(w io.Writer, h *Header) error {
	lines := []string{
		"ENVI",
		fmt.Sprintf("samples = %d", h.Samples),
		fmt.Sprintf("lines = %d", h.Lines),
		fmt.Sprintf("bands = %d", h.Bands),
		fmt.Sprintf("data type = %d", dataTypeCode[h.DataType]),
	}
	switch h.Interleave {
	case BIL:
		lines = append(lines, "interleave = bil")
	case BSQ:
		lines = append(lines, "interleave = bsq")
	}
	lines = append(lines, fmt.Sprintf("byte order = %d", int(h.ByteOrder)))
	for k, v := range h.Raw {
		switch k {
		case "samples", "lines", "bands", "data type", "interleave", "byte order":
			continue
		}
		if strings.HasPrefix(k, ";") {
			lines = append(lines, k)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s = %s", k, v))
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func splitSemicolon(v string) []string {
	parts := strings.Split(v, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// parseAcquisitionTime parses the Specim "yyyy/ddd hh:mm:ss" reference
// time format via meeus's day-of-year calendar conversion.
func parseAcquisitionTime(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), " ")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("acquisition time %q: want \"yyyy/ddd hh:mm:ss\"", s)
	}
	ymd := strings.Split(parts[0], "/")
	if len(ymd) != 2 {
		return time.Time{}, fmt.Errorf("acquisition time %q: bad date component", s)
	}
	year, err := strconv.Atoi(ymd[0])
	if err != nil {
		return time.Time{}, err
	}
	doy, err := strconv.Atoi(ymd[1])
	if err != nil {
		return time.Time{}, err
	}
	month, day := julian.DayOfYearToCalendar(doy, julian.LeapYearGregorian(year))

	hms := strings.Split(parts[1], ":")
	if len(hms) != 3 {
		return time.Time{}, fmt.Errorf("acquisition time %q: bad time component", s)
	}
	vals := make([]int, 3)
	for i, v := range hms {
		vals[i], err = strconv.Atoi(v)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(year, time.Month(month), day, vals[0], vals[1], vals[2], 0, time.UTC), nil
}
