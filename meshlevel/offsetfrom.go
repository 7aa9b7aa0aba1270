package meshlevel

import (
	"github.com/mcowger/Carvera-Controller/coord"
)

// OffsetFrom rebases a set of probed points against a known reference
// height z, e.g. a touch-plate thickness measured before the probe pass.
func OffsetFrom(z float64, points []coord.Point) []coord.Point {
	p := make([]coord.Point, len(points))
	copy(p, points)

	for i := range p {
		p[i].Z -= z
	}
	return p
}
