package cncstate

import "github.com/mcowger/Carvera-Controller/coord"

// State is the shared, mutable machine state described by spec §3
// (component E). It is a pure data object: the interpreter is the only
// writer during a parse call, and the session controller's status-line
// handler is the only other writer, both of which must hold the same
// caller-provided mutex while mutating it. State never spawns
// goroutines and never locks anything itself.
type State struct {
	Position Position

	Motion Motion
	Plane  Plane
	Units  Units
	Dist   DistanceMode
	// ArcAbsolute selects whether I/J/K are absolute (G90.1) rather
	// than incremental from the arc start point (G91.1, the default).
	ArcAbsolute bool
	Retract     RetractMode

	Feed            float64 // active feed rate, mm/min
	Seek            float64 // rapid traverse rate, mm/min
	SpindleRPM      float64
	FeedOverride    float64 // percent, 1-300
	SpindleOverride float64 // percent, 1-200

	WCS       [6]WCSOffset // indexed by WCS.index()
	ActiveWCS WCS

	Tools            map[int]ToolOffset
	CurrentTool      int
	PendingTool      int
	ToolLengthOffset float64
	ToolLengthCompOn bool

	Cycle CannedCycle

	margins coord.Box
	path    []PathPoint
}

// CannedCycle holds the modal parameters of the last-invoked canned
// drilling/boring cycle (G81/82/83/85/86/89). A bare X/Y line issued
// while Code is nonzero repeats the cycle at the new position using
// these retained R/Z/Q/P values, per the canned-cycle modal semantics
// of RS274/NGC.
type CannedCycle struct {
	Code       int // 0, or 81/82/83/85/86/89
	R, Z, Q, P float64
}

// New returns a State with grbl-style defaults: G54 active, XY plane,
// millimetres, absolute distance mode, incremental arc centres, 100%
// overrides.
func New() *State {
	s := &State{
		Motion:          MotionRapid,
		Plane:           PlaneXY,
		Units:           UnitsMM,
		Dist:            DistanceAbsolute,
		ArcAbsolute:     false,
		Retract:         RetractRPlane,
		Seek:            5000,
		FeedOverride:    100,
		SpindleOverride: 100,
		ActiveWCS:       G54,
		Tools:           make(map[int]ToolOffset),
	}
	return s
}

// InitPath resets the current position and clears the path buffer. It
// is the sanctioned entry point for callers establishing a new job
// boundary (spec §3 lifecycle).
func (s *State) InitPath(x, y, z, a float64) {
	s.Position = Position{X: x, Y: y, Z: z, A: a}
	s.path = nil
}

// ResetMargins clears the bounding box so a new job's extents can
// accumulate from scratch.
func (s *State) ResetMargins() {
	s.margins = coord.NewBox()
}

// GetMargins returns the bounding box of every coordinate emitted since
// the last ResetMargins.
func (s *State) GetMargins() coord.Box {
	return s.margins
}

// ExpandMargins folds p into the bounding box. Called by the
// interpreter for every emitted machine coordinate.
func (s *State) ExpandMargins(p coord.Point) {
	s.margins = s.margins.Expand(p)
}

// ResetPath clears the path buffer; the interpreter calls this at the
// start of every parse call, since the buffer holds only the segments
// produced by the most recently parsed line.
func (s *State) ResetPath() {
	s.path = s.path[:0]
}

// AppendPath appends one interpolated point to the path buffer.
func (s *State) AppendPath(p PathPoint) {
	s.path = append(s.path, p)
}

// Path returns the path buffer produced by the last parsed line.
func (s *State) Path() []PathPoint {
	return s.path
}

// WCSOffsetFor returns the offset/rotation for w.
func (s *State) WCSOffsetFor(w WCS) WCSOffset {
	return s.WCS[w.index()]
}

// SetWCSOffset sets the offset/rotation for w.
func (s *State) SetWCSOffset(w WCS, off WCSOffset) {
	s.WCS[w.index()] = off
}

// ActiveOffset returns the offset/rotation of the currently active WCS.
func (s *State) ActiveOffset() WCSOffset {
	return s.WCSOffsetFor(s.ActiveWCS)
}

// Inches reports whether the active unit system is inches.
func (s *State) Inches() bool { return s.Units == UnitsInch }

// Relative reports whether distance mode is relative (G91).
func (s *State) Relative() bool { return s.Dist == DistanceRelative }
