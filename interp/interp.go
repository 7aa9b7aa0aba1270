// Package interp implements component D's kinematic half: turning a
// tokenized gcode.Block into modal-state updates and a sequence of
// machine-coordinate points against a shared cncstate.State.
package interp

import (
	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/gcode"
)

// motionCode identifies which motion word, if any, is present in a
// block. -1 means none.
func motionCode(b gcode.Block) float64 {
	for _, w := range b {
		if w.W != 'G' {
			continue
		}
		switch w.Arg {
		case 0, 1, 2, 3, 4, 81, 82, 83, 85, 86, 89:
			return w.Arg
		}
	}
	return -1
}

// ParseLine tokenizes line, applies it to state, and returns the
// resulting ParsedLine. lineNo is the caller-tracked 1-based source line
// number, echoed back in ParsedLine.LineNo and any returned ParseError.
func ParseLine(state *cncstate.State, line string, lineNo int) (ParsedLine, error) {
	block, err := gcode.ParseLine(line)
	if err != nil {
		if pe, ok := err.(*gcode.ParseError); ok {
			return ParsedLine{}, &ParseError{Line: lineNo, Column: pe.Column, Reason: pe.Reason, Cause: err}
		}
		return ParsedLine{}, &ParseError{Line: lineNo, Reason: err.Error(), Cause: err}
	}
	state.ResetPath()

	if len(block) == 0 {
		return ParsedLine{LineNo: lineNo, Modal: snapshot(state)}, nil
	}
	if verr := block.Validate(); verr != nil {
		return ParsedLine{}, &ParseError{Line: lineNo, Reason: verr.Error(), Cause: verr}
	}

	// Units words (G20/G21) must run before the axis words are extracted,
	// since extraction converts inch values to millimetres.
	for _, w := range block {
		if w.W == 'G' {
			switch w.Arg {
			case 20, 21:
				if err := applyGWord(state, lineNo, w.Arg, block, axisWords{}); err != nil {
					return ParsedLine{}, err
				}
			}
		}
	}

	words := extractAxisWords(state, block)

	for _, w := range block {
		switch w.W {
		case 'F':
			state.Feed = toMM(state, w.Arg)
		case 'S':
			state.SpindleRPM = w.Arg
		case 'T':
			state.PendingTool = int(w.Arg)
		}
		if w.W == 'M' && w.Arg == 6 {
			state.CurrentTool = state.PendingTool
		}
	}

	for _, w := range block {
		if w.W != 'G' || w.Arg == 20 || w.Arg == 21 {
			continue
		}
		switch w.Arg {
		case 0, 1, 2, 3, 4, 81, 82, 83, 85, 86, 89:
			// motion words handled below
		default:
			if err := applyGWord(state, lineNo, w.Arg, block, words); err != nil {
				return ParsedLine{}, err
			}
		}
	}

	code := motionCode(block)
	var coords []coord.Point

	switch code {
	case 0, 1:
		motion := cncstate.MotionRapid
		if code == 1 {
			motion = cncstate.MotionLinear
		}
		state.Motion = motion
		state.Cycle = cncstate.CannedCycle{}
		target := targetWork(state, words.x, words.y, words.z, words.hasX, words.hasY, words.hasZ)
		a := targetA(state, words.a, words.hasA)
		emit(state, lineNo, motion, target, a, &coords)

	case 2, 3:
		cw := code == 2
		state.Motion = cncstate.MotionArcCW
		if !cw {
			state.Motion = cncstate.MotionArcCCW
		}
		state.Cycle = cncstate.CannedCycle{}
		start := currentWork(state)
		end := targetWork(state, words.x, words.y, words.z, words.hasX, words.hasY, words.hasZ)
		endA := targetA(state, words.a, words.hasA)
		out, err := expandArc(state, arcParams{
			lineNo: lineNo, cw: cw, start: start, end: end,
			hasI: words.hasI || words.hasJ || words.hasK,
			i: words.i, j: words.j, k: words.k,
			hasR: words.hasR, r: words.r, endA: endA,
		})
		if err != nil {
			return ParsedLine{}, err
		}
		coords = out

	case 4:
		state.Motion = cncstate.MotionDwell
		state.Cycle = cncstate.CannedCycle{}

	case 81, 82, 83, 85, 86, 89:
		state.Motion = cncstate.MotionCannedCycle
		cyc := state.Cycle
		cyc.Code = int(code)
		curZ := currentWork(state).Z
		if words.hasR {
			cyc.R = axisTarget(state, curZ, words.r, true)
		}
		if words.hasZ {
			cyc.Z = axisTarget(state, curZ, words.z, true)
		}
		if words.hasQ {
			cyc.Q = words.q
		}
		if words.hasP {
			cyc.P = words.p
		}
		state.Cycle = cyc
		coords = runCycle(state, lineNo, cyc.Code, words.x, words.y, cyc.R, cyc.Z, cyc.Q, cyc.P, words.hasX, words.hasY)

	default:
		if state.Motion == cncstate.MotionCannedCycle && state.Cycle.Code != 0 && (words.hasX || words.hasY) {
			cyc := state.Cycle
			coords = runCycle(state, lineNo, cyc.Code, words.x, words.y, cyc.R, cyc.Z, cyc.Q, cyc.P, words.hasX, words.hasY)
		} else if (state.Motion == cncstate.MotionRapid || state.Motion == cncstate.MotionLinear) &&
			(words.hasX || words.hasY || words.hasZ || words.hasA) {
			// Axis words without a motion word repeat the modal G0/G1,
			// unless a non-modal or unrecognised G word (G10, G28, G92,
			// G28.2, ...) owns them.
			owned := false
			for _, w := range block {
				if g := w.ModalGroup(); w.W == 'G' && (g == gcode.ModalGroupNonModal || g == gcode.ModalGroupNone) {
					owned = true
				}
			}
			if !owned {
				target := targetWork(state, words.x, words.y, words.z, words.hasX, words.hasY, words.hasZ)
				emit(state, lineNo, state.Motion, target, targetA(state, words.a, words.hasA), &coords)
			}
		}
	}

	return ParsedLine{LineNo: lineNo, Words: block, Modal: snapshot(state), Coordinates: coords}, nil
}
