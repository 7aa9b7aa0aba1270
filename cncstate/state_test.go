package cncstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcowger/Carvera-Controller/coord"
)

func TestNewDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, PlaneXY, s.Plane)
	assert.Equal(t, UnitsMM, s.Units)
	assert.Equal(t, DistanceAbsolute, s.Dist)
	assert.Equal(t, G54, s.ActiveWCS)
	assert.False(t, s.Relative())
	assert.False(t, s.Inches())
}

func TestWCSOffsetRoundTrip(t *testing.T) {
	s := New()
	off := WCSOffset{Offset: coord.Point{X: 1, Y: 2, Z: 3}, RotationZ: 45}
	s.SetWCSOffset(G55, off)
	assert.Equal(t, off, s.WCSOffsetFor(G55))
	assert.NotEqual(t, off, s.WCSOffsetFor(G54))
}

func TestActiveOffsetTracksActiveWCS(t *testing.T) {
	s := New()
	off := WCSOffset{Offset: coord.Point{X: 5, Y: 0, Z: 0}}
	s.SetWCSOffset(G56, off)
	s.ActiveWCS = G56
	assert.Equal(t, off, s.ActiveOffset())
}

func TestPathBufferResetsPerLine(t *testing.T) {
	s := New()
	s.AppendPath(PathPoint{X: 1})
	s.AppendPath(PathPoint{X: 2})
	assert.Len(t, s.Path(), 2)
	s.ResetPath()
	assert.Empty(t, s.Path())
}

func TestMarginsExpand(t *testing.T) {
	s := New()
	s.ResetMargins()
	s.ExpandMargins(coord.Point{X: -5, Y: 2, Z: 0})
	s.ExpandMargins(coord.Point{X: 10, Y: -3, Z: 1})
	box := s.GetMargins()
	assert.Equal(t, -5.0, box.Min.X)
	assert.Equal(t, 10.0, box.Max.X)
	assert.Equal(t, -3.0, box.Min.Y)
	assert.Equal(t, 2.0, box.Max.Y)
}
