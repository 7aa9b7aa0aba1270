// Package gcodeutil implements component G: small stateless helpers for
// validating and measuring G-code independent of any machine session.
// No third-party library in the corpus covers scalar coordinate parsing
// or line validation; this is built directly on gcode and coord.
package gcodeutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/gcode"
)

// ValidateGCodeLine tokenizes and validates a single line, returning the
// same error a full parse would surface, without touching any
// cncstate.State.
func ValidateGCodeLine(line string) error {
	block, err := gcode.ParseLine(line)
	if err != nil {
		return err
	}
	if block == nil {
		return nil
	}
	return block.Validate()
}

// ParseCoordinateString parses a "x,y,z" triplet, the wire format used
// by status and probe replies.
func ParseCoordinateString(s string) (coord.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return coord.Point{}, fmt.Errorf("gcodeutil: expected 3 comma-separated values, got %d", len(parts))
	}
	var p coord.Point
	vals := [3]*float64{&p.X, &p.Y, &p.Z}
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return coord.Point{}, fmt.Errorf("gcodeutil: bad coordinate %q: %w", s, err)
		}
		*vals[i] = v
	}
	return p, nil
}

// Distance returns the 3D distance between a and b.
func Distance(a, b coord.Point) float64 { return a.Distance(b) }

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b coord.Point) coord.Point { return a.Midpoint(b) }
