package interp

import (
	"math"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
)

// chordErrorMax is the maximum permitted deviation between an arc's true
// radius and the interpolated chord, in millimetres (25 microns).
const chordErrorMax = 0.025

// endpointTolerance is the maximum allowed distance between an arc's
// declared end point and its computed radius, in millimetres (1 micron).
const endpointTolerance = 0.001

const (
	minSegmentsPerRev = 8
	maxSegmentsPerRev = 2048
)

// planeAxes returns, for the active plane, which of the block's I/J/K
// words correspond to the plane's two in-plane offsets, in (u, v) order,
// where u/v are the plane's first/second axes (X/Y for XY, X/Z for XZ,
// Y/Z for YZ).
func planeAxes(p cncstate.Plane) (uHasWord, vHasWord byte) {
	switch p {
	case cncstate.PlaneXZ:
		return 'I', 'K'
	case cncstate.PlaneYZ:
		return 'J', 'K'
	default:
		return 'I', 'J'
	}
}

// project splits a work-space point into the active plane's (u, v, w)
// triple, where w is the axis perpendicular to the plane.
func project(p cncstate.Plane, pt coord.Point) (u, v, w float64) {
	switch p {
	case cncstate.PlaneXZ:
		return pt.X, pt.Z, pt.Y
	case cncstate.PlaneYZ:
		return pt.Y, pt.Z, pt.X
	default:
		return pt.X, pt.Y, pt.Z
	}
}

func unproject(p cncstate.Plane, u, v, w float64) coord.Point {
	switch p {
	case cncstate.PlaneXZ:
		return coord.Point{X: u, Y: w, Z: v}
	case cncstate.PlaneYZ:
		return coord.Point{X: w, Y: u, Z: v}
	default:
		return coord.Point{X: u, Y: v, Z: w}
	}
}

// arcParams gathers the resolved inputs for an arc expansion.
type arcParams struct {
	lineNo   int
	cw       bool // true for G2, false for G3
	start    coord.Point
	end      coord.Point
	hasI     bool
	i, j, k  float64
	hasR     bool
	r        float64
	endA     float64
}

// expandArc appends the interpolated points of a G2/G3 arc to the state's
// path buffer and to out, and leaves s.Position at the arc's end point.
func expandArc(s *cncstate.State, p arcParams) ([]coord.Point, error) {
	u0, v0, w0 := project(s.Plane, p.start)
	u1, v1, w1 := project(s.Plane, p.end)

	var cu, cv float64
	switch {
	case p.hasR:
		cu, cv = centerFromRadius(u0, v0, u1, v1, p.r, p.cw)
	case p.hasI:
		iLetter, jLetter := planeAxes(s.Plane)
		var io, jo float64
		switch iLetter {
		case 'I':
			io = p.i
		case 'J':
			io = p.j
		}
		switch jLetter {
		case 'J':
			jo = p.j
		case 'K':
			jo = p.k
		}
		if s.ArcAbsolute {
			cu, cv = io, jo
		} else {
			cu, cv = u0+io, v0+jo
		}
	default:
		return nil, errAt(p.lineNo, "arc requires I/J/K or R")
	}

	radius := math.Hypot(u0-cu, v0-cv)
	if radius == 0 {
		return nil, errAt(p.lineNo, "arc has zero radius")
	}
	endRadius := math.Hypot(u1-cu, v1-cv)
	if math.Abs(endRadius-radius) > endpointTolerance {
		return nil, errAt(p.lineNo, "arc end point is not equidistant from center within tolerance")
	}

	startAngle := math.Atan2(v0-cv, u0-cu)
	endAngle := math.Atan2(v1-cv, u1-cu)

	var sweep float64
	if p.cw {
		sweep = startAngle - endAngle
	} else {
		sweep = endAngle - startAngle
	}
	for sweep < 0 {
		sweep += 2 * math.Pi
	}
	if sweep == 0 && u0 == u1 && v0 == v1 {
		sweep = 2 * math.Pi
	}

	theta := 2 * math.Acos(1-math.Min(chordErrorMax/radius, 1))
	if theta <= 0 || math.IsNaN(theta) {
		theta = 2 * math.Pi / maxSegmentsPerRev
	}
	segsPerRev := int(math.Ceil(2 * math.Pi / theta))
	if segsPerRev < minSegmentsPerRev {
		segsPerRev = minSegmentsPerRev
	}
	if segsPerRev > maxSegmentsPerRev {
		segsPerRev = maxSegmentsPerRev
	}
	nSegs := int(math.Ceil(sweep / (2 * math.Pi) * float64(segsPerRev)))
	if nSegs < 1 {
		nSegs = 1
	}

	var out []coord.Point
	motion := cncstate.MotionArcCCW
	if p.cw {
		motion = cncstate.MotionArcCW
	}
	a0 := s.Position.A
	for n := 1; n <= nSegs; n++ {
		frac := float64(n) / float64(nSegs)
		var ang float64
		if p.cw {
			ang = startAngle - sweep*frac
		} else {
			ang = startAngle + sweep*frac
		}
		u := cu + radius*math.Cos(ang)
		v := cv + radius*math.Sin(ang)
		w := w0 + (w1-w0)*frac
		a := a0 + (p.endA-a0)*frac
		var work coord.Point
		if n == nSegs {
			work = unproject(s.Plane, u1, v1, w1)
			a = p.endA
		} else {
			work = unproject(s.Plane, u, v, w)
		}
		emit(s, p.lineNo, motion, work, a, &out)
	}
	return out, nil
}

// centerFromRadius derives the arc center from an R word: positive R
// selects the minor (<=180 degree) arc, negative R the major arc.
func centerFromRadius(u0, v0, u1, v1, r float64, cw bool) (cu, cv float64) {
	d := math.Hypot(u1-u0, v1-v0)
	absR := math.Abs(r)
	if d == 0 {
		return u0, v0
	}
	h2 := absR*absR - (d/2)*(d/2)
	if h2 < 0 {
		h2 = 0
	}
	h := math.Sqrt(h2)
	mx, my := (u0+u1)/2, (v0+v1)/2
	// unit vector from start to end, and its perpendicular
	dx, dy := (u1-u0)/d, (v1-v0)/d
	px, py := -dy, dx

	// sign selects which side of the chord the center falls on; CW with
	// positive R and CCW with negative R put it on the same side.
	sign := 1.0
	if (cw && r > 0) || (!cw && r < 0) {
		sign = -1.0
	}
	return mx + sign*px*h, my + sign*py*h
}
