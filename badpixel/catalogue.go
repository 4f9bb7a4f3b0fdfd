// Package badpixel decodes the two vendor bad-pixel catalogue formats
// into a flat (sample, band) list with an optional per-pixel detection
// method, keyed against a calibration-to-raw band map.
package badpixel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arsf-go/hyperspec/sensor"
)

// BandNotInUse is the sentinel raw band index assigned to a bad pixel
// whose calibration-band position no longer exists in the reverse band
// map, e.g. a band the calibration file excludes.
const BandNotInUse = 9999

// Format identifies which vendor wrote the catalogue.
type Format int

const (
	Specim Format = iota
	ARSF
)

// Entry is one decoded bad pixel, already translated to raw
// (band, sample) coordinates.
type Entry struct {
	Sample    int
	Band      int // BandNotInUse when the band has no raw counterpart
	Method    sensor.BadPixelMethod
	HasMethod bool
}

// Catalogue is a fully decoded bad-pixel file.
type Catalogue struct {
	Format            Format
	Entries           []Entry
	MethodDescriptors []string // ARSF "method ..." header lines, verbatim
}

// Decode auto-detects the vendor format from the first line and decodes
// the remainder against revBandMap, a calibration-band -> raw-band map
// (Eagle sensors carry no bad-pixel file and never call this).
func Decode(content string, revBandMap map[int]int) (*Catalogue, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyStream
	}
	lines := splitLines(content)
	if strings.Contains(lines[0], "headerlines") {
		return decodeARSF(lines, revBandMap)
	}
	return decodeSpecim(lines, revBandMap)
}

func splitLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}

// decodeSpecim parses the "id bsample bband rsample rband GON" format.
// ids are 1-based and must increase by exactly 1; bsample/bband are
// normalised to 0-based and the band is resolved through revBandMap
// keyed by (bband-1).
func decodeSpecim(lines []string, revBandMap map[int]int) (*Catalogue, error) {
	fields := strings.Fields(strings.Join(lines[1:], " "))
	if len(fields)%6 != 0 {
		return nil, fmt.Errorf("%w: trailing fields after last complete record", ErrIDSequence)
	}

	cat := &Catalogue{Format: Specim}
	prevID := 0
	for i := 0; i+6 <= len(fields); i += 6 {
		id, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("bad pixel id: %w", err)
		}
		if id != prevID+1 {
			return nil, fmt.Errorf("%w: at id %d", ErrIDSequence, id)
		}
		bsample, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, err
		}
		bband, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return nil, err
		}
		// rsample, rband (fields[i+3], fields[i+4]) identify the
		// replacement pixel; the catalogue only masks, never
		// substitutes, so they are not retained.
		if fields[i+5] != "GON" {
			return nil, fmt.Errorf("%w: at id %d, got %q", ErrExpectedGON, id, fields[i+5])
		}

		band := BandNotInUse
		if raw, ok := revBandMap[bband-1]; ok {
			band = raw
		}
		cat.Entries = append(cat.Entries, Entry{Sample: bsample - 1, Band: band})
		prevID = id
	}
	return cat, nil
}

// decodeARSF parses the "headerlines=N" format, 0-based band/sample
// numbering, with an optional comma-delimited method letter list per
// row (a subset of A,B,C,D,E,F).
func decodeARSF(lines []string, revBandMap map[int]int) (*Catalogue, error) {
	headerVal := strings.TrimSpace(strings.TrimPrefix(lines[0], "headerlines="))
	if idx := strings.Index(lines[0], "="); idx >= 0 {
		headerVal = strings.TrimSpace(lines[0][idx+1:])
	}
	nheaderlines, err := strconv.Atoi(headerVal)
	if err != nil || nheaderlines <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingHeaderLines, lines[0])
	}
	if nheaderlines > len(lines) {
		return nil, fmt.Errorf("%w: declares %d but file has %d lines", ErrMissingHeaderLines, nheaderlines, len(lines))
	}

	var descriptors []string
	for _, l := range lines[1:nheaderlines] {
		if strings.HasPrefix(strings.TrimSpace(l), "method") {
			descriptors = append(descriptors, l)
		}
	}

	fields := strings.Fields(strings.Join(lines[nheaderlines:], " "))
	if len(fields)%4 != 0 {
		return nil, fmt.Errorf("%w: trailing fields after last complete record", ErrIDSequence)
	}

	cat := &Catalogue{Format: ARSF, MethodDescriptors: descriptors}
	prevID := -1
	for i := 0; i+4 <= len(fields); i += 4 {
		id, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("bad pixel id: %w", err)
		}
		if id != prevID+1 {
			return nil, fmt.Errorf("%w: at id %d", ErrIDSequence, id)
		}
		bband, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, err
		}
		bsample, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return nil, err
		}
		method, err := parseMethod(fields[i+3])
		if err != nil {
			return nil, err
		}
		prevID = id

		band := BandNotInUse
		if raw, ok := revBandMap[bband]; ok {
			band = raw
		}
		cat.Entries = append(cat.Entries, Entry{Sample: bsample, Band: band, Method: method, HasMethod: true})
	}
	return cat, nil
}

// parseMethod decodes a comma-delimited method token such as "A,B,E"
// into the corresponding MethodBit set.
func parseMethod(token string) (sensor.BadPixelMethod, error) {
	var out sensor.BadPixelMethod
	for _, item := range strings.Split(token, ",") {
		item = strings.TrimSpace(item)
		if len(item) != 1 {
			return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, item)
		}
		switch item[0] {
		case 'A':
			out |= sensor.MethodA
		case 'B':
			out |= sensor.MethodB
		case 'C':
			out |= sensor.MethodC
		case 'D':
			out |= sensor.MethodD
		case 'E':
			out |= sensor.MethodE
		case 'F':
			out |= sensor.MethodF
		default:
			return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, item)
		}
	}
	return out, nil
}
