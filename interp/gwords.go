package interp

import (
	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/gcode"
)

// axisWords extracts the X/Y/Z/A/I/J/K/R/P/Q values present in a block.
// The linear values X/Y/Z/I/J/K/R/Q (Q is a peck-drilling depth) are
// converted to millimetres if the active unit system is inches. A
// (degrees) and P are left in their native units: P is seconds (G4) or
// a WCS index (G10).
type axisWords struct {
	x, y, z, a, i, j, k, r, p, q     float64
	hasX, hasY, hasZ, hasA           bool
	hasI, hasJ, hasK, hasR, hasP, hasQ bool
}

func extractAxisWords(s *cncstate.State, b gcode.Block) axisWords {
	var w axisWords
	for _, word := range b {
		switch word.W {
		case 'X':
			w.x, w.hasX = toMM(s, word.Arg), true
		case 'Y':
			w.y, w.hasY = toMM(s, word.Arg), true
		case 'Z':
			w.z, w.hasZ = toMM(s, word.Arg), true
		case 'A':
			w.a, w.hasA = word.Arg, true
		case 'I':
			w.i, w.hasI = toMM(s, word.Arg), true
		case 'J':
			w.j, w.hasJ = toMM(s, word.Arg), true
		case 'K':
			w.k, w.hasK = toMM(s, word.Arg), true
		case 'R':
			w.r, w.hasR = toMM(s, word.Arg), true
		case 'P':
			w.p, w.hasP = word.Arg, true
		case 'Q':
			w.q, w.hasQ = toMM(s, word.Arg), true
		}
	}
	return w
}

// applyGWord applies the immediate effect of a non-motion G-word (plane
// selection, units, distance mode, WCS selection, tool length
// compensation, G10 offset setting) to s. Motion words (G0-G3,
// G81-G89) are handled by the caller since they need the resolved axis
// words to produce a path.
func applyGWord(s *cncstate.State, lineNo int, code float64, b gcode.Block, w axisWords) error {
	switch code {
	case 17:
		s.Plane = cncstate.PlaneXY
	case 18:
		s.Plane = cncstate.PlaneXZ
	case 19:
		s.Plane = cncstate.PlaneYZ
	case 20:
		s.Units = cncstate.UnitsInch
	case 21:
		s.Units = cncstate.UnitsMM
	case 90:
		s.Dist = cncstate.DistanceAbsolute
	case 91:
		s.Dist = cncstate.DistanceRelative
	case 90.1:
		s.ArcAbsolute = true
	case 91.1:
		s.ArcAbsolute = false
	case 98:
		s.Retract = cncstate.RetractInitialZ
	case 99:
		s.Retract = cncstate.RetractRPlane
	case 54, 55, 56, 57, 58, 59:
		s.ActiveWCS = cncstate.WCS(int(code))
	case 43:
		s.ToolLengthCompOn = true
		if off, ok := s.Tools[s.CurrentTool]; ok {
			s.ToolLengthOffset = off.Z
		}
	case 49:
		s.ToolLengthCompOn = false
		s.ToolLengthOffset = 0
	case 10:
		return applyG10(s, lineNo, b, w)
	case 80:
		s.Cycle = cncstate.CannedCycle{}
	}
	return nil
}

// applyG10 handles "G10 L2 Pn X.. Y.. Z.. R.." which sets the offset and
// Z rotation of the WCS numbered n (1=G54 .. 6=G59).
func applyG10(s *cncstate.State, lineNo int, b gcode.Block, w axisWords) error {
	hasL2 := false
	for _, word := range b {
		if word.W == 'L' && word.Arg == 2 {
			hasL2 = true
		}
	}
	if !hasL2 {
		return nil
	}
	if !w.hasP {
		return errAt(lineNo, "G10 L2 requires a P word")
	}
	idx := int(w.p)
	if idx < 1 || idx > 6 {
		return errAt(lineNo, "G10 L2 P word out of range 1-6")
	}
	wcs := cncstate.WCS(53 + idx)
	off := s.WCSOffsetFor(wcs)
	if w.hasX {
		off.Offset.X = w.x
	}
	if w.hasY {
		off.Offset.Y = w.y
	}
	if w.hasZ {
		off.Offset.Z = w.z
	}
	for _, word := range b {
		if word.W == 'R' {
			off.RotationZ = word.Arg
		}
	}
	s.SetWCSOffset(wcs, off)
	return nil
}
