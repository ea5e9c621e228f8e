package downsample

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/grailbio/base/errors"
)

// PhysicalLocation describes a read's physical location on the flow
// cell: the tile it was sequenced in, and the X and Y coordinates of
// the well within the tile. Fields are -1 when unknown.
type PhysicalLocation struct {
	Tile int
	X    int
	Y    int
}

// DefaultReadNameRegex describes the standard Illumina read name
// layout. A LocationParser configured with this exact string takes an
// allocation-free fast path instead of compiling the expression.
const DefaultReadNameRegex = "[a-zA-Z0-9]+:[0-9]:([0-9]+):([0-9]+):([0-9]+).*"

const (
	// Illumina read names come in two varieties: 5 and 7 colon
	// separated fields. In both, the last three fields are tile, X,
	// and Y. These constants help keep track of which fields are what.

	// illuminaReadName5Fields is the number of columns in a 5 field read name.
	illuminaReadName5Fields = 5
	// illuminaReadName5FieldsTileField is the 0-based field number that
	// contains the tile for 5 field read names.
	illuminaReadName5FieldsTileField = 2

	// illuminaReadName7Fields is the number of columns in a 7 field read name.
	illuminaReadName7Fields = 7
	// illuminaReadName7FieldsTileField is the 0-based field number that
	// contains the tile for 7 field read names.
	illuminaReadName7FieldsTileField = 4

	maxReadNameFields = 8
)

// LocationParser extracts PhysicalLocations from read names. A parser
// created with DefaultReadNameRegex splits names without compiling
// the expression; a parser created with the empty string reports no
// location for every read; any other expression must contain at
// least three capture groups (tile, X, Y; extra groups are ignored)
// and is compiled on first use.
//
// Not thread safe: the default-layout path reuses a field buffer
// across calls.
type LocationParser struct {
	readNameRegex string
	pattern       *regexp.Regexp
	fields        [maxReadNameFields]int
}

// NewLocationParser returns a parser for the given read name layout.
func NewLocationParser(readNameRegex string) *LocationParser {
	return &LocationParser{readNameRegex: readNameRegex}
}

// Parse extracts the physical location from name. The second return
// value is false when the parser is configured to skip location
// parsing. A name that does not match the configured layout returns a
// non-nil error; a single mismatch means the whole input almost
// certainly uses a different layout, so callers should treat the
// error as fatal rather than skip the read.
func (p *LocationParser) Parse(name string) (PhysicalLocation, bool, error) {
	loc := PhysicalLocation{Tile: -1, X: -1, Y: -1}
	switch p.readNameRegex {
	case DefaultReadNameRegex:
		n := splitReadName(name, ':', p.fields[:])
		var tileIdx int
		switch n {
		case illuminaReadName5Fields:
			tileIdx = illuminaReadName5FieldsTileField
		case illuminaReadName7Fields:
			tileIdx = illuminaReadName7FieldsTileField
		default:
			return loc, false, errors.E(fmt.Sprintf(
				"default read name regex %q did not match read name %q: expected 5 or 7 fields separated by ':'",
				p.readNameRegex, name))
		}
		loc.Tile = p.fields[tileIdx]
		loc.X = p.fields[tileIdx+1]
		loc.Y = p.fields[tileIdx+2]
		return loc, true, nil
	case "":
		return loc, false, nil
	default:
		if p.pattern == nil {
			pattern, err := regexp.Compile(p.readNameRegex)
			if err != nil {
				return loc, false, errors.E(err, "invalid read name regex:", p.readNameRegex)
			}
			if pattern.NumSubexp() < 3 {
				return loc, false, errors.E(fmt.Sprintf(
					"read name regex %q must have at least 3 capture groups (tile, x, y), found %d",
					p.readNameRegex, pattern.NumSubexp()))
			}
			p.pattern = pattern
		}
		m := p.pattern.FindStringSubmatch(name)
		if m == nil {
			return loc, false, errors.E(fmt.Sprintf(
				"read name regex %q did not match read name %q", p.readNameRegex, name))
		}
		var err error
		if loc.Tile, err = strconv.Atoi(m[1]); err != nil {
			return loc, false, errors.E(err, "could not convert tile to integer in read name:", name)
		}
		if loc.X, err = strconv.Atoi(m[2]); err != nil {
			return loc, false, errors.E(err, "could not convert x to integer in read name:", name)
		}
		if loc.Y, err = strconv.Atoi(m[3]); err != nil {
			return loc, false, errors.E(err, "could not convert y to integer in read name:", name)
		}
		return loc, true, nil
	}
}

// splitReadName splits name on delim in a single pass, storing the
// integer value of each field in fields. It returns the number of
// fields found, which may exceed len(fields); excess fields are
// counted but not stored. Field values are parsed up to the first
// non-digit character, so suffixes like "1234#0/1" yield 1234.
func splitReadName(name string, delim byte, fields []int) int {
	n := 0
	prev := 0
	for i := 0; i < len(name); i++ {
		if name[i] != delim {
			continue
		}
		if n < len(fields) {
			fields[n] = rapidParseInt(name[prev:i])
		}
		n++
		prev = i + 1
	}
	if prev < len(name) {
		if n < len(fields) {
			fields[n] = rapidParseInt(name[prev:])
		}
		n++
	}
	return n
}

// rapidParseInt parses a leading sequence of digits, stopping at the
// first non-digit character. A leading '-' negates the result.
func rapidParseInt(s string) int {
	val := 0
	i := 0
	negative := false
	if len(s) > 0 && s[0] == '-' {
		i = 1
		negative = true
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		val = val*10 + int(c-'0')
	}
	if negative {
		return -val
	}
	return val
}
