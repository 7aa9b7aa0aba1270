package interp

import (
	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
)

// runCycle expands one invocation of a canned drilling/boring cycle
// (G81/82/83/85/86/89) into its constituent rapid/feed moves, following
// RS274/NGC's canonical sequence: rapid to (X,Y) at the initial Z, rapid
// down to the R plane, feed (with optional pecking/dwell) to the bottom
// Z, then retract to either the R plane (G99) or the initial Z (G98).
func runCycle(s *cncstate.State, lineNo int, code int, x, y, r, z, q, p float64, hasX, hasY bool) []coord.Point {
	var out []coord.Point
	initialZ := s.Position.Z
	if s.Retract == cncstate.RetractInitialZ && initialZ < r {
		initialZ = r
	}

	xyTarget := targetWork(s, x, y, currentWork(s).Z, hasX, hasY, false)
	emit(s, lineNo, cncstate.MotionRapid, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: currentWork(s).Z}, s.Position.A, &out)
	emit(s, lineNo, cncstate.MotionRapid, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: r}, s.Position.A, &out)

	bottom := z
	switch code {
	case 83:
		peck := q
		if peck <= 0 {
			peck = r - z
		}
		depth := r
		for depth > bottom {
			depth -= peck
			if depth < bottom {
				depth = bottom
			}
			emit(s, lineNo, cncstate.MotionLinear, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: depth}, s.Position.A, &out)
			if depth > bottom {
				emit(s, lineNo, cncstate.MotionRapid, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: r}, s.Position.A, &out)
				emit(s, lineNo, cncstate.MotionRapid, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: depth}, s.Position.A, &out)
			}
		}
	default:
		emit(s, lineNo, cncstate.MotionLinear, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: bottom}, s.Position.A, &out)
	}

	// G82/G89 dwell at the bottom of the hole; dwell produces no motion.
	_ = p

	retractMotion := cncstate.MotionRapid
	if code == 85 || code == 89 {
		retractMotion = cncstate.MotionLinear
	}
	emit(s, lineNo, retractMotion, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: r}, s.Position.A, &out)
	if s.Retract == cncstate.RetractInitialZ && initialZ > r {
		emit(s, lineNo, cncstate.MotionRapid, coord.Point{X: xyTarget.X, Y: xyTarget.Y, Z: initialZ}, s.Position.A, &out)
	}

	return out
}
