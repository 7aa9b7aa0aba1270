package session

import (
	"bufio"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/xmodem"
)

func TestSplitAxisLetters(t *testing.T) {
	assert.Equal(t, []string{"X0", "Y0"}, splitAxisLetters("xy"))
	assert.Equal(t, []string{"Z0"}, splitAxisLetters("Z"))
}

// execAndCapture drives one ExecuteGCode-based operation over a
// net.Pipe, replies "ok", and returns the line the operation wrote.
func execAndCapture(t *testing.T, op func(ctl *Controller) error) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() { errc <- op(ctl) }()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, <-errc)
	return line
}

func TestSetFeedScaleSendsM220(t *testing.T) {
	line := execAndCapture(t, func(ctl *Controller) error { return ctl.SetFeedScale(150) })
	assert.Equal(t, "M220 S150\r\n", line)
}

func TestSetFeedScaleValidatesRange(t *testing.T) {
	ctl := New(&bufTransport{})
	assert.Error(t, ctl.SetFeedScale(0))
	assert.Error(t, ctl.SetFeedScale(301))
}

func TestSetSpindleScaleSendsM223(t *testing.T) {
	line := execAndCapture(t, func(ctl *Controller) error { return ctl.SetSpindleScale(75) })
	assert.Equal(t, "M223 S75\r\n", line)
}

func TestSetSpindleScaleValidatesRange(t *testing.T) {
	ctl := New(&bufTransport{})
	assert.Error(t, ctl.SetSpindleScale(0))
	assert.Error(t, ctl.SetSpindleScale(201))
}

func TestAutoCommandEncodesMargin(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()
	ctl.Lock()
	ctl.State().ExpandMargins(coord.Point{X: 0, Y: 0, Z: 0})
	ctl.State().ExpandMargins(coord.Point{X: 100, Y: 50, Z: 0})
	ctl.Unlock()

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() {
		errc <- ctl.AutoCommand(AutoCommandOptions{Margin: true, GotoOrigin: true})
	}()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, <-errc)

	assert.Equal(t, "M495 X0Y0C100D50P1\r\n", line)
}

func TestAutoCommandEncodesLevelingDefaults(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()
	ctl.Lock()
	ctl.State().ExpandMargins(coord.Point{X: 0, Y: 0, Z: 0})
	ctl.State().ExpandMargins(coord.Point{X: 10, Y: 20, Z: 0})
	ctl.Unlock()

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() {
		errc <- ctl.AutoCommand(AutoCommandOptions{Leveling: true})
	}()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "M495 X0Y0A10B20I3J3H5\r\n", line)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)

	// A default 3x3 grid over the 0,0-10,20 margin, boustrophedon order.
	grid := []coord.Point{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0},
		{X: 10, Y: 10}, {X: 5, Y: 10}, {X: 0, Y: 10},
		{X: 0, Y: 20}, {X: 5, Y: 20}, {X: 10, Y: 20},
	}
	for _, p := range grid {
		moveLine, err := serverReader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("G0 X%g Y%g\r\n", p.X, p.Y), moveLine)
		_, err = server.Write([]byte("ok\n"))
		require.NoError(t, err)

		probeLine, err := serverReader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "M495.3 H9 D3.175\r\n", probeLine)
		_, err = server.Write([]byte("ok\n"))
		require.NoError(t, err)
		_, err = server.Write([]byte(fmt.Sprintf("[PRB:%g,%g,0.000:1]\n", p.X, p.Y)))
		require.NoError(t, err)
	}

	require.NoError(t, <-errc)
}

func TestXYZProbeSendsM495Point3(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	serverReader := bufio.NewReader(server)
	type result struct {
		p   coord.Point
		err error
	}
	resc := make(chan result, 1)
	go func() {
		p, err := ctl.XYZProbe(9.0, 3.175)
		resc <- result{p, err}
	}()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "M495.3 H9 D3.175\r\n", line)

	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)
	_, err = server.Write([]byte("[PRB:1.500,2.250,-3.000:1]\n"))
	require.NoError(t, err)

	res := <-resc
	require.NoError(t, res.err)
	assert.Equal(t, coord.Point{X: 1.5, Y: 2.25, Z: -3}, res.p)
}

func TestParseProbeInfo(t *testing.T) {
	p, err := parseProbeInfo("PRB:1.500,2.250,-3.000:1")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 1.5, Y: 2.25, Z: -3}, p)

	_, err = parseProbeInfo("garbage")
	assert.Error(t, err)
}

func TestFeedHoldSendsRealtimeByte(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)

	done := make(chan error, 1)
	go func() { done <- ctl.FeedHold() }()

	buf := make([]byte, 1)
	_, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, FeedHoldByte, buf[0])
	require.NoError(t, <-done)
}

func TestUploadProgramNormalizesAndUploads(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)

	src := []byte("G0 X1 ; move\n(comment) G1 Y2\n")

	errc := make(chan error, 1)
	go func() { errc <- ctl.UploadProgram("job.gcode", src, nil, nil) }()

	got, err := xmodem.Receive(server, "job.gcode", nil, nil)
	require.NoError(t, err)
	require.NoError(t, <-errc)

	assert.Equal(t, "G0X1\nG1Y2\n", string(got))
}
