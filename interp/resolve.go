package interp

import (
	"math"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
)

const mmPerInch = 25.4

func toMM(s *cncstate.State, v float64) float64 {
	if s.Inches() {
		return v * mmPerInch
	}
	return v
}

// rotateZ rotates p about the origin by deg degrees in the XY plane.
func rotateZ(p coord.Point, deg float64) coord.Point {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return coord.Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// toMachine resolves a work-space point into machine coordinates: rotate
// about the active WCS's origin, translate by its offset, then apply the
// tool length offset to Z if compensation is active.
func toMachine(s *cncstate.State, work coord.Point) coord.Point {
	off := s.ActiveOffset()
	m := rotateZ(work, off.RotationZ)
	m.X += off.Offset.X
	m.Y += off.Offset.Y
	m.Z += off.Offset.Z
	if s.ToolLengthCompOn {
		m.Z += s.ToolLengthOffset
	}
	return m
}

// toWork is the inverse of toMachine.
func toWork(s *cncstate.State, machine coord.Point) coord.Point {
	off := s.ActiveOffset()
	m := machine
	if s.ToolLengthCompOn {
		m.Z -= s.ToolLengthOffset
	}
	m.X -= off.Offset.X
	m.Y -= off.Offset.Y
	m.Z -= off.Offset.Z
	return rotateZ(m, -off.RotationZ)
}

// currentWork returns the current position projected into the active
// WCS's work coordinates.
func currentWork(s *cncstate.State) coord.Point {
	return toWork(s, s.Position.XYZ())
}

// axisTarget resolves one axis word (in mm, already unit-converted)
// against the current work value, honoring absolute/relative mode.
func axisTarget(s *cncstate.State, cur, val float64, present bool) float64 {
	if !present {
		return cur
	}
	if s.Relative() {
		return cur + val
	}
	return val
}

// targetWork computes the XYZ work-space target of a linear/arc/canned
// motion word given the raw (unit-converted) axis words present in the
// block. A axis is not subject to WCS offset or rotation; it is
// returned separately.
func targetWork(s *cncstate.State, x, y, z float64, hasX, hasY, hasZ bool) coord.Point {
	cur := currentWork(s)
	return coord.Point{
		X: axisTarget(s, cur.X, x, hasX),
		Y: axisTarget(s, cur.Y, y, hasY),
		Z: axisTarget(s, cur.Z, z, hasZ),
	}
}

func targetA(s *cncstate.State, a float64, hasA bool) float64 {
	if !hasA {
		return s.Position.A
	}
	if s.Relative() {
		return s.Position.A + a
	}
	return a
}

func emit(s *cncstate.State, lineNo int, motion cncstate.Motion, work coord.Point, a float64, out *[]coord.Point) {
	m := toMachine(s, work)
	s.Position = cncstate.Position{X: m.X, Y: m.Y, Z: m.Z, A: a, B: s.Position.B, C: s.Position.C}
	s.AppendPath(cncstate.PathPoint{X: m.X, Y: m.Y, Z: m.Z, A: a, LineNo: lineNo, Motion: motion})
	s.ExpandMargins(m)
	if out != nil {
		*out = append(*out, m)
	}
}
