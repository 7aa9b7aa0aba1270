// Package meshlevel implements bed-mesh leveling: probing a grid of
// points across the work envelope and compensating the Z axis of every
// subsequent motion for the surface those points describe. Not part of
// the distilled specification, but present throughout the teacher's
// probe/tool-change/auto-command flow, so it is carried forward and
// retyped onto cncstate.State and interp instead of gcode.VM.
package meshlevel

import (
	"errors"
	"math"

	"github.com/fogleman/delaunay"
	"github.com/mcowger/Carvera-Controller/coord"
)

// ZOffsetter reports the mesh-derived Z compensation at a work-space
// (x, y), and whether that point falls within the surveyed surface.
type ZOffsetter interface {
	OffsetZ(x, y float64) (bool, float64)
}

// Mesh is a Delaunay-triangulated bed surface built from 4 or more
// probed points.
type Mesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

// NewSurface builds the most precise ZOffsetter it can from points: a
// coord.Plane fast path for exactly 3 points (no triangulation needed
// for a flat 3-point fit), or a full Delaunay Mesh for 4 or more.
func NewSurface(points []coord.Point) (ZOffsetter, error) {
	switch {
	case len(points) == 3:
		var p coord.Plane
		copy(p[:], points)
		return p, nil
	case len(points) >= 4:
		return NewMesh(points)
	default:
		return nil, errors.New("meshlevel: need at least 3 probed points to build a surface")
	}
}

// NewMesh triangulates points and returns the resulting Mesh.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("meshlevel: need at least 3 points to create a mesh")
	}

	points2d := make([]delaunay.Point, len(points))
	m := make(map[delaunay.Point]coord.Point, len(points))

	mesh := &Mesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	var d delaunay.Point
	for i, p := range points {
		mesh.minX = math.Min(mesh.minX, p.X)
		mesh.minY = math.Min(mesh.minY, p.Y)
		mesh.maxX = math.Max(mesh.maxX, p.X)
		mesh.maxY = math.Max(mesh.maxY, p.Y)

		d.X = p.X
		d.Y = p.Y
		m[d] = p
		points2d[i] = d
	}
	mesh.minX -= coord.Epsilon
	mesh.minY -= coord.Epsilon
	mesh.maxX += coord.Epsilon
	mesh.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(points2d)
	if err != nil {
		return nil, err
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)

	for i := 0; i < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: m[tri.Points[tri.Triangles[i]]],
			B: m[tri.Points[tri.Triangles[i+1]]],
			C: m[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

// OffsetZ implements ZOffsetter.
func (m *Mesh) OffsetZ(x, y float64) (bool, float64) {
	if x < m.minX || m.maxX < x || y < m.minY || m.maxY < y {
		return false, 0
	}
	for _, t := range m.triangles {
		if !t.ContainsXY(x, y) {
			continue
		}
		return true, t.Z(x, y)
	}
	return false, 0
}
