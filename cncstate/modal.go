package cncstate

// Motion is the active motion modal group (G0/G1/G2/G3/G4/canned cycle).
type Motion int

const (
	MotionRapid Motion = iota
	MotionLinear
	MotionArcCW
	MotionArcCCW
	MotionDwell
	MotionCannedCycle
)

// Plane is the active plane-selection modal group used to resolve arc
// centres and canned-cycle retract axes.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

// Units is the active unit system. Inch-mode input is converted to
// millimetres by the interpreter at parse time; State itself always
// stores millimetres.
type Units int

const (
	UnitsMM Units = iota
	UnitsInch
)

// DistanceMode selects absolute or relative interpretation of axis words.
type DistanceMode int

const (
	DistanceAbsolute DistanceMode = iota
	DistanceRelative
)

// RetractMode selects the Z height canned cycles return to between
// peck/drill passes: the initial Z (G98) or the R-plane (G99).
type RetractMode int

const (
	RetractInitialZ RetractMode = iota
	RetractRPlane
)
