package interp

import (
	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/gcode"
)

// ModalSnapshot is the subset of cncstate.State that changed meaning is
// worth reporting back to a caller after a line executes, without
// handing out the mutable State itself.
type ModalSnapshot struct {
	Motion      cncstate.Motion
	Plane       cncstate.Plane
	Units       cncstate.Units
	Dist        cncstate.DistanceMode
	Retract     cncstate.RetractMode
	Feed        float64
	SpindleRPM  float64
	ActiveWCS   cncstate.WCS
	CurrentTool int
}

// ParsedLine is the result of interpreting one line of G-code against a
// cncstate.State: the recognised words, the modal state after the line
// ran, and the machine-coordinate path segments the line produced, if
// any.
type ParsedLine struct {
	LineNo      int
	Words       gcode.Block
	Modal       ModalSnapshot
	Coordinates []coord.Point
}

func snapshot(s *cncstate.State) ModalSnapshot {
	return ModalSnapshot{
		Motion:      s.Motion,
		Plane:       s.Plane,
		Units:       s.Units,
		Dist:        s.Dist,
		Retract:     s.Retract,
		Feed:        s.Feed,
		SpindleRPM:  s.SpindleRPM,
		ActiveWCS:   s.ActiveWCS,
		CurrentTool: s.CurrentTool,
	}
}
