// Package cncstate implements component E: the pure machine-state data
// object shared, under a caller-provided mutex, between the G-code
// interpreter and the session controller's status-line handler.
package cncstate

import "github.com/mcowger/Carvera-Controller/coord"

// Position is the full six-axis machine position: X, Y, Z in
// millimetres, A the rotary axis in degrees, B and C reserved for a
// second/third rotary axis.
type Position struct {
	X, Y, Z, A, B, C float64
}

// XYZ projects the linear axes onto a coord.Point for use with the
// geometry package (arcs, planes, bounding boxes).
func (p Position) XYZ() coord.Point {
	return coord.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// WithXYZ returns p with its linear axes replaced from pt.
func (p Position) WithXYZ(pt coord.Point) Position {
	p.X, p.Y, p.Z = pt.X, pt.Y, pt.Z
	return p
}

// Add returns the component-wise sum of p and o.
func (p Position) Add(o Position) Position {
	return Position{p.X + o.X, p.Y + o.Y, p.Z + o.Z, p.A + o.A, p.B + o.B, p.C + o.C}
}

// Sub returns the component-wise difference of p and o.
func (p Position) Sub(o Position) Position {
	return Position{p.X - o.X, p.Y - o.Y, p.Z - o.Z, p.A - o.A, p.B - o.B, p.C - o.C}
}

// Scale returns p with every axis multiplied by k.
func (p Position) Scale(k float64) Position {
	return Position{p.X * k, p.Y * k, p.Z * k, p.A * k, p.B * k, p.C * k}
}
