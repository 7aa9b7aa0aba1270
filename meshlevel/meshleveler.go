package meshlevel

import (
	"math"

	"github.com/mcowger/Carvera-Controller/coord"
)

// Leveler subdivides and Z-compensates the machine-coordinate path
// interp produces for a single line, so a long straight move gets a
// smoothly varying correction instead of one lump delta applied only at
// its endpoint. Grounded on the teacher's MeshLeveler.next/Read split:
// split first by granularity (coord.Point.Split), then nudge Z by the
// surface's offset delta between segment start and each subdivided
// point (never an absolute Z, since machine Z already carries whatever
// the interpreter resolved).
type Leveler struct {
	surface     ZOffsetter
	granularity float64
}

// NewLeveler builds a Leveler over surface, splitting any segment longer
// than granularity millimetres. granularity <= 0 defaults to 1mm.
func NewLeveler(surface ZOffsetter, granularity float64) *Leveler {
	if granularity <= 0 {
		granularity = 1
	}
	return &Leveler{surface: surface, granularity: granularity}
}

// Level compensates the straight-line segment from prev to next,
// returning the (possibly subdivided) sequence of corrected points. If
// the surface has no data at prev's (x, y), next is returned unchanged.
func (l *Leveler) Level(prev, next coord.Point) []coord.Point {
	ok, baseOffset := l.surface.OffsetZ(prev.X, prev.Y)
	if !ok || prev.Equal(next) {
		return []coord.Point{next}
	}

	dist := prev.DistanceXY(next.X, next.Y)
	n := 1
	if dist > l.granularity {
		n = int(math.Ceil(dist / l.granularity))
	}

	pts := prev.Split(next, n, false)
	for i := range pts {
		ok, off := l.surface.OffsetZ(pts[i].X, pts[i].Y)
		if !ok {
			off = baseOffset
		}
		pts[i].Z += off - baseOffset
	}
	return pts
}

// LevelPath applies Level across every consecutive pair in coords, given
// the machine position before the first of them executed.
func (l *Leveler) LevelPath(before coord.Point, coords []coord.Point) []coord.Point {
	out := make([]coord.Point, 0, len(coords))
	prev := before
	for _, c := range coords {
		out = append(out, l.Level(prev, c)...)
		prev = c
	}
	return out
}
