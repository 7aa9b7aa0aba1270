package session

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/gcode"
	"github.com/mcowger/Carvera-Controller/xmodem"
)

// Home runs a homing cycle on the given axes; an empty axes string homes
// every axis.
func (c *Controller) Home(axes string) error {
	line := "$H"
	if axes != "" {
		line = "G28.2 " + strings.Join(splitAxisLetters(axes), " ")
	}
	return c.sendLine(line)
}

func splitAxisLetters(axes string) []string {
	out := make([]string, 0, len(axes))
	for _, a := range strings.ToUpper(axes) {
		out = append(out, string(a)+"0")
	}
	return out
}

// Jog issues an incremental jog move at feed mm/min.
func (c *Controller) Jog(delta coord.Point, feed float64) error {
	line := fmt.Sprintf("$J=G91 G21 X%.4f Y%.4f Z%.4f F%.1f", delta.X, delta.Y, delta.Z, feed)
	return c.sendLine(line)
}

// SetFeedScale sets the feed-rate override to pct percent (1-300), via
// the firmware's M220 set-to-value command (cnc_controller.py's
// set_feed_scale).
func (c *Controller) SetFeedScale(pct int) error {
	if pct < 1 || pct > 300 {
		return fmt.Errorf("session: feed scale %d out of range 1-300", pct)
	}
	if err := c.sendLine(fmt.Sprintf("M220 S%d", pct)); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.FeedOverride = float64(pct)
	c.mu.Unlock()
	return nil
}

// SetSpindleScale sets the spindle-speed override to pct percent
// (1-200), via the firmware's M223 set-to-value command
// (cnc_controller.py's set_spindle_scale).
func (c *Controller) SetSpindleScale(pct int) error {
	if pct < 1 || pct > 200 {
		return fmt.Errorf("session: spindle scale %d out of range 1-200", pct)
	}
	if err := c.sendLine(fmt.Sprintf("M223 S%d", pct)); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.SpindleOverride = float64(pct)
	c.mu.Unlock()
	return nil
}

func (c *Controller) sendRealtime(b byte) error {
	_, err := c.tr.Write([]byte{b})
	return err
}

// FeedHold immediately pauses motion.
func (c *Controller) FeedHold() error { return c.sendRealtime(FeedHoldByte) }

// CycleStart resumes motion after a feed hold.
func (c *Controller) CycleStart() error { return c.sendRealtime(CycleStartByte) }

// SoftReset sends the real-time soft-reset byte and returns the
// controller to Idle once it reinitializes.
func (c *Controller) SoftReset() error {
	if err := c.sendRealtime(SoftResetByte); err != nil {
		return err
	}
	c.setConn(Connecting)
	select {
	case <-c.activity:
	case <-time.After(5 * time.Second):
		c.setConn(ErrorState)
		return fmt.Errorf("session: no response after soft reset")
	}
	c.setConn(Idle)
	return nil
}

// XYZProbe issues a Carvera automatic XYZ tool probe against a probe
// tip of the given diameter held height above the work surface, via
// the firmware's M495.3 command (cnc_controller.py's xyz_probe), and
// returns the point where contact was made, parsed from the
// controller's "[PRB:...]" info line.
func (c *Controller) XYZProbe(height, diameter float64) (coord.Point, error) {
	line := fmt.Sprintf("M495.3 H%g D%g", height, diameter)
	if err := c.sendLine(line); err != nil {
		return coord.Point{}, err
	}
	select {
	case r := <-c.infos:
		return parseProbeInfo(r.Body)
	case <-time.After(10 * time.Second):
		return coord.Point{}, fmt.Errorf("session: probe timed out waiting for result")
	}
}

func parseProbeInfo(body string) (coord.Point, error) {
	// PRB:x,y,z:1
	parts := strings.Split(body, ":")
	if len(parts) < 2 || parts[0] != "PRB" {
		return coord.Point{}, fmt.Errorf("session: unexpected probe info %q", body)
	}
	xyz := strings.Split(parts[1], ",")
	if len(xyz) != 3 {
		return coord.Point{}, fmt.Errorf("session: malformed probe coordinates %q", parts[1])
	}
	var p coord.Point
	if _, err := fmt.Sscanf(xyz[0], "%f", &p.X); err != nil {
		return p, err
	}
	if _, err := fmt.Sscanf(xyz[1], "%f", &p.Y); err != nil {
		return p, err
	}
	if _, err := fmt.Sscanf(xyz[2], "%f", &p.Z); err != nil {
		return p, err
	}
	return p, nil
}

// AutoCommandOptions configures AutoCommand's M495 job-start sequence,
// mirroring cnc_controller.py's auto_command parameters.
type AutoCommandOptions struct {
	// Margin appends the job's max corner (C/D) to the min corner (X/Y)
	// taken from the controller's tracked path margins.
	Margin bool
	// ZProbe appends a Z-probe offset (O/F), or O0 when ZProbeAbsolute
	// is set to probe at the job origin instead.
	ZProbe         bool
	ZProbeAbsolute bool
	ZProbeOffsetX  float64
	ZProbeOffsetY  float64
	// Leveling appends the auto-leveling grid parameters (A/B/I/J/H) so
	// the firmware runs its own internal auto-level pass, and also
	// drives ProbeGrid/SetLevelingSurface so the host holds a
	// meshlevel-derived compensation surface for ExecuteGCode to apply
	// on top (the supplemented feature the distilled spec drops
	// entirely). I and J default to 3 and H to 5 when left zero,
	// matching the firmware's own defaults; ProbeHeight/ProbeDiameter
	// default to 9mm and 3.175mm when left zero.
	Leveling                   bool
	I, J, H                    int
	ProbeHeight, ProbeDiameter float64
	// GotoOrigin appends P1, returning to machine origin once done.
	GotoOrigin bool
}

// AutoCommand runs the machine's standard automatic job-start sequence
// by emitting the Carvera-specific M495 with its documented parameter
// encoding: M495 X..Y..[C..D..][O..F..][A..B..I..J..H..][P1], built
// from the job's tracked bounding box (cncstate.State.GetMargins). When
// Leveling is set, it follows up with a host-side ProbeGrid pass and
// installs the resulting surface via SetLevelingSurface.
func (c *Controller) AutoCommand(opts AutoCommandOptions) error {
	c.mu.Lock()
	box := c.state.GetMargins()
	c.mu.Unlock()

	i, j, h := opts.I, opts.J, opts.H
	if i == 0 {
		i = 3
	}
	if j == 0 {
		j = 3
	}
	if h == 0 {
		h = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "M495 X%gY%g", box.Min.X, box.Min.Y)
	if opts.Margin {
		fmt.Fprintf(&b, "C%gD%g", box.Max.X, box.Max.Y)
	}
	if opts.ZProbe {
		if opts.ZProbeAbsolute {
			b.WriteString("O0")
		} else {
			fmt.Fprintf(&b, "O%gF%g", opts.ZProbeOffsetX, opts.ZProbeOffsetY)
		}
	}
	if opts.Leveling {
		width := box.Max.X - box.Min.X
		height := box.Max.Y - box.Min.Y
		fmt.Fprintf(&b, "A%gB%gI%dJ%dH%d", width, height, i, j, h)
	}
	if opts.GotoOrigin {
		b.WriteString("P1")
	}

	if err := c.sendLine(b.String()); err != nil {
		return err
	}

	if !opts.Leveling {
		return nil
	}

	height, diameter := opts.ProbeHeight, opts.ProbeDiameter
	if height == 0 {
		height = 9.0
	}
	if diameter == 0 {
		diameter = 3.175
	}
	points, err := c.ProbeGrid(i, j, height, diameter)
	if err != nil {
		return fmt.Errorf("session: auto-level grid probe: %w", err)
	}
	return c.SetLevelingSurface(points, 1)
}

// Upload sends data to the controller as a file named name using the
// xmodem file-transfer engine, transitioning through FileTransferState.
func (c *Controller) Upload(name string, data []byte, done <-chan struct{}, onProgress xmodem.ProgressFunc) error {
	c.setConn(FileTransferState)
	defer c.setConn(Idle)
	return xmodem.Send(c.tr, name, data, done, onProgress)
}

// Download retrieves a file named name from the controller.
func (c *Controller) Download(name string, done <-chan struct{}, onProgress xmodem.ProgressFunc) ([]byte, error) {
	c.setConn(FileTransferState)
	defer c.setConn(Idle)
	return xmodem.Receive(c.tr, name, done, onProgress)
}

// UploadProgram parses src as G-code, re-serializes it block by block
// through gcode.Buffer, and uploads the canonical form. This drops
// comments and whitespace so the bytes on the wire always
// match what the parser accepted, catching malformed lines before the
// transfer starts instead of mid-stream.
func (c *Controller) UploadProgram(name string, src []byte, done <-chan struct{}, onProgress xmodem.ProgressFunc) error {
	p := gcode.NewParser(bytes.NewReader(src))
	buf := gcode.NewBuffer(p)
	data, err := io.ReadAll(buf)
	if err != nil {
		return fmt.Errorf("session: normalize program: %w", err)
	}
	return c.Upload(name, data, done, onProgress)
}
