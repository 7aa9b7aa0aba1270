package session

import (
	"fmt"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/meshlevel"
)

// ProbeGrid moves the machine to each point of an i x j grid spanning
// the current job's tracked bounding box (cncstate.State.GetMargins)
// and probes it with XYZProbe, returning every contact point found.
// This is the grid-probing counterpart to a single XYZProbe call and
// is what AutoCommand's Leveling option drives; grounded on
// cnc_controller.py's auto_command i/j grid parameters.
func (c *Controller) ProbeGrid(i, j int, height, diameter float64) ([]coord.Point, error) {
	if i < 2 || j < 2 {
		return nil, fmt.Errorf("session: probe grid needs at least 2x2 points, got %dx%d", i, j)
	}
	c.mu.Lock()
	box := c.state.GetMargins()
	c.mu.Unlock()

	points := make([]coord.Point, 0, i*j)
	for row := 0; row < j; row++ {
		y := box.Min.Y + float64(row)/float64(j-1)*(box.Max.Y-box.Min.Y)
		for col := 0; col < i; col++ {
			c2 := col
			if row%2 == 1 {
				// Boustrophedon traversal: alternate row direction so
				// consecutive probe points stay adjacent on the grid.
				c2 = i - 1 - col
			}
			x := box.Min.X + float64(c2)/float64(i-1)*(box.Max.X-box.Min.X)
			if _, err := c.ExecuteGCode(fmt.Sprintf("G0 X%g Y%g", x, y)); err != nil {
				return points, fmt.Errorf("session: probe grid move: %w", err)
			}
			p, err := c.XYZProbe(height, diameter)
			if err != nil {
				return points, fmt.Errorf("session: probe grid probe: %w", err)
			}
			points = append(points, p)
		}
	}
	return points, nil
}

// SetLevelingSurface fits a Z-compensation surface to points (a
// coord.Plane for exactly 3, a Delaunay meshlevel.Mesh for 4+) and
// makes it the active surface ExecuteGCode compensates every
// subsequent motion against, at granularity millimetres per subdivided
// segment.
func (c *Controller) SetLevelingSurface(points []coord.Point, granularity float64) error {
	surface, err := meshlevel.NewSurface(points)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.leveler = meshlevel.NewLeveler(surface, granularity)
	c.mu.Unlock()
	return nil
}

// ClearLevelingSurface discards the active leveling surface and clears
// the firmware's own auto-leveling data via M370 (cnc_controller.py's
// clear_auto_leveling).
func (c *Controller) ClearLevelingSurface() error {
	if err := c.sendLine("M370"); err != nil {
		return err
	}
	c.mu.Lock()
	c.leveler = nil
	c.mu.Unlock()
	return nil
}

// levelAndSend transmits the machine-coordinate points a parsed motion
// line produced, Z-compensated against the active leveling surface, as
// one G-code line per (possibly subdivided) point. Used by ExecuteGCode
// in place of retransmitting the original line whenever a leveling
// surface is active, since the surface may inject Z deltas the
// original line's single Z value never carried.
//
// Every point in a single line's path shares one Motion except a
// canned drilling cycle's rapid-in/feed-down/rapid-out segments, so the
// common case runs the whole path through Leveler.LevelPath at once;
// a mixed-motion cycle falls back to leveling one segment at a time
// with Leveler.Level so each segment keeps its own motion type.
func (c *Controller) levelAndSend(leveler *meshlevel.Leveler, before coord.Point, points []cncstate.PathPoint) error {
	if len(points) == 0 {
		return nil
	}
	if singleMotion(points) {
		return c.sendLeveledPath(leveler, before, points)
	}
	return c.sendLeveledSegments(leveler, before, points)
}

func singleMotion(points []cncstate.PathPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Motion != points[0].Motion {
			return false
		}
	}
	return true
}

func (c *Controller) sendLeveledPath(leveler *meshlevel.Leveler, before coord.Point, points []cncstate.PathPoint) error {
	coords := make([]coord.Point, len(points))
	for i, p := range points {
		coords[i] = coord.Point{X: p.X, Y: p.Y, Z: p.Z}
	}
	motion := points[0].Motion
	a := points[len(points)-1].A
	for _, cp := range leveler.LevelPath(before, coords) {
		if err := c.sendLine(motionLine(motion, cp, a)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) sendLeveledSegments(leveler *meshlevel.Leveler, before coord.Point, points []cncstate.PathPoint) error {
	prev := before
	for _, p := range points {
		next := coord.Point{X: p.X, Y: p.Y, Z: p.Z}
		for _, cp := range leveler.Level(prev, next) {
			if err := c.sendLine(motionLine(p.Motion, cp, p.A)); err != nil {
				return err
			}
		}
		prev = next
	}
	return nil
}

func motionLine(m cncstate.Motion, p coord.Point, a float64) string {
	code := "G1"
	if m == cncstate.MotionRapid {
		code = "G0"
	}
	return fmt.Sprintf("%s X%g Y%g Z%g A%g", code, p.X, p.Y, p.Z, a)
}
