package session

import (
	"strconv"
	"strings"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
)

// applyStatusToState folds a parsed status line into state, per spec
// §6: "missing fields leave the previous value intact." Position is
// tracked in machine coordinates, so a reported WPos is only used to
// derive the active WCS's offset (MPos - WPos), not written to
// Position directly.
func applyStatusToState(state *cncstate.State, r StatusReport) {
	if r.HasMPos {
		state.Position.X, state.Position.Y, state.Position.Z, state.Position.A =
			r.MPos[0], r.MPos[1], r.MPos[2], r.MPos[3]
	}
	if r.HasMPos && r.HasWPos {
		existing := state.WCSOffsetFor(state.ActiveWCS)
		offset := coord.Point{
			X: r.MPos[0] - r.WPos[0],
			Y: r.MPos[1] - r.WPos[1],
			Z: r.MPos[2] - r.WPos[2],
		}
		state.SetWCSOffset(state.ActiveWCS, cncstate.WCSOffset{Offset: offset, RotationZ: existing.RotationZ})
	}
	if r.HasFeedSeek {
		state.Feed = r.Feed
		state.Seek = r.Seek
	}
	if r.HasSpindleRPM {
		state.SpindleRPM = r.SpindleRPM
	}
	if r.HasTool {
		state.CurrentTool = r.Tool
	}
	if r.HasToolLenOffset {
		state.ToolLengthOffset = r.ToolLenOffset
	}
}

// wcsByName maps a coordinate-system report name to its cncstate.WCS,
// per grbl's "$#" parameter report convention that spec §4.F's
// "[...] informational lines routed to the state" is modeled on.
func wcsByName(name string) (cncstate.WCS, bool) {
	switch name {
	case "G54":
		return cncstate.G54, true
	case "G55":
		return cncstate.G55, true
	case "G56":
		return cncstate.G56, true
	case "G57":
		return cncstate.G57, true
	case "G58":
		return cncstate.G58, true
	case "G59":
		return cncstate.G59, true
	}
	return 0, false
}

// applyInfoToState routes a "[...]" info line into state: coordinate
// system offset reports (e.g. "[G54:1.000,2.000,3.000]") update the
// matching WCS entry, and "[TLO:...]" updates the tool length offset.
// Anything else (probe results, banners) is left to the caller.
func applyInfoToState(state *cncstate.State, body string) {
	kv := strings.SplitN(body, ":", 2)
	if len(kv) != 2 {
		return
	}
	name, rest := kv[0], kv[1]

	if wcs, ok := wcsByName(name); ok {
		parts := strings.Split(rest, ",")
		if len(parts) < 3 {
			return
		}
		var p coord.Point
		vals := [3]*float64{&p.X, &p.Y, &p.Z}
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return
			}
			*vals[i] = v
		}
		existing := state.WCSOffsetFor(wcs)
		state.SetWCSOffset(wcs, cncstate.WCSOffset{Offset: p, RotationZ: existing.RotationZ})
		return
	}

	if name == "TLO" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
			state.ToolLengthOffset = v
		}
	}
}
