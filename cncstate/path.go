package cncstate

// PathPoint is one coordinate in the interpolated path buffer produced
// by the last parsed motion line, expressed in machine coordinates
// (WCS offset, rotation, and tool length already applied).
type PathPoint struct {
	X, Y, Z, A float64
	LineNo     int
	Motion     Motion
}
