package cncstate

import "github.com/mcowger/Carvera-Controller/coord"

// WCS identifies one of the six fixed work coordinate systems.
type WCS int

const (
	G54 WCS = 54 + iota
	G55
	G56
	G57
	G58
	G59
)

func (w WCS) index() int { return int(w) - int(G54) }

// Valid reports whether w is one of G54..G59.
func (w WCS) Valid() bool { return w >= G54 && w <= G59 }

// WCSOffset is the affine transform for a single work coordinate
// system: a linear offset plus a rotation (degrees) about Z applied
// before the offset.
type WCSOffset struct {
	Offset    coord.Point
	RotationZ float64
}

// ToolOffset is a tool's static X/Y/Z offset from the spindle nose,
// applied when the tool is selected and tool-length compensation is on.
type ToolOffset struct {
	X, Y, Z float64
}
