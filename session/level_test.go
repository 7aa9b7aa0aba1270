package session

import (
	"bufio"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/meshlevel"
)

func TestProbeGridRejectsUndersizedGrid(t *testing.T) {
	ctl := New(&bufTransport{})
	_, err := ctl.ProbeGrid(1, 3, 9, 3.175)
	assert.Error(t, err)
}

func TestProbeGridWalksBoustrophedonAndProbesEachPoint(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()
	ctl.Lock()
	ctl.State().ExpandMargins(coord.Point{X: 0, Y: 0, Z: 0})
	ctl.State().ExpandMargins(coord.Point{X: 10, Y: 10, Z: 0})
	ctl.Unlock()

	grid := []coord.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0},
		{X: 10, Y: 10}, {X: 0, Y: 10},
	}

	serverReader := bufio.NewReader(server)
	type result struct {
		points []coord.Point
		err    error
	}
	resc := make(chan result, 1)
	go func() {
		points, err := ctl.ProbeGrid(2, 2, 9, 3.175)
		resc <- result{points, err}
	}()

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
		_, err = server.Write([]byte(fmt.Sprintf("[PRB:%g,%g,-1.000:1]\n", p.X, p.Y)))
		require.NoError(t, err)
	}

	res := <-resc
	require.NoError(t, res.err)
	require.Len(t, res.points, 4)
	for i, p := range grid {
		assert.Equal(t, p.X, res.points[i].X)
		assert.Equal(t, p.Y, res.points[i].Y)
		assert.Equal(t, -1.0, res.points[i].Z)
	}
}

func TestClearLevelingSurfaceSendsM370AndDropsLeveler(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	surface, err := meshlevel.NewSurface([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 2},
	})
	require.NoError(t, err)
	ctl.mu.Lock()
	ctl.leveler = meshlevel.NewLeveler(surface, 5)
	ctl.mu.Unlock()

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() { errc <- ctl.ClearLevelingSurface() }()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "M370\r\n", line)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, <-errc)

	ctl.mu.Lock()
	leveler := ctl.leveler
	ctl.mu.Unlock()
	assert.Nil(t, leveler)
}

func TestExecuteGCodeCompensatesSingleMotionLineAgainstSurface(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	require.NoError(t, ctl.SetLevelingSurface([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 2},
	}, 5))

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() {
		_, err := ctl.ExecuteGCode("G1 X10 F100")
		errc <- err
	}()

	// The plane's slope over 0.1 mm Z per mm of X splits the 10mm move at
	// its 5mm granularity into two compensated points instead of one.
	first, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "G1 X5 Y0 Z0.5 A0\r\n", first)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)

	second, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "G1 X10 Y0 Z1 A0\r\n", second)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)

	require.NoError(t, <-errc)
}

func TestExecuteGCodeSendsLineUnmodifiedWithoutSurface(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() {
		_, err := ctl.ExecuteGCode("G1 X10 F100")
		errc <- err
	}()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "G1 X10 F100\r\n", line)
	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, <-errc)
}

func TestSingleMotionDetectsMixedMotionCycles(t *testing.T) {
	same := []cncstate.PathPoint{
		{X: 0, Y: 0, Z: 0, Motion: cncstate.MotionLinear},
		{X: 1, Y: 0, Z: 0, Motion: cncstate.MotionLinear},
	}
	assert.True(t, singleMotion(same))

	mixed := []cncstate.PathPoint{
		{X: 0, Y: 0, Z: 5, Motion: cncstate.MotionRapid},
		{X: 0, Y: 0, Z: -1, Motion: cncstate.MotionLinear},
		{X: 0, Y: 0, Z: 5, Motion: cncstate.MotionRapid},
	}
	assert.False(t, singleMotion(mixed))
}

func TestLevelAndSendMixedMotionSendsOneLinePerSegment(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	surface, err := meshlevel.NewSurface([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 2},
	})
	require.NoError(t, err)
	leveler := meshlevel.NewLeveler(surface, 20)

	// A canned drilling cycle: rapid down to retract height, feed to
	// depth, rapid back up, all at the same X/Y.
	points := []cncstate.PathPoint{
		{X: 5, Y: 0, Z: 5, Motion: cncstate.MotionRapid},
		{X: 5, Y: 0, Z: -2, Motion: cncstate.MotionLinear},
		{X: 5, Y: 0, Z: 5, Motion: cncstate.MotionRapid},
	}

	serverReader := bufio.NewReader(server)
	errc := make(chan error, 1)
	go func() {
		errc <- ctl.levelAndSend(leveler, coord.Point{}, points)
	}()

	wantCodes := []string{"G0", "G1", "G0"}
	for _, code := range wantCodes {
		line, err := serverReader.ReadString('\n')
		require.NoError(t, err)
		assert.Contains(t, line, code+" X5 Y0")
		_, err = server.Write([]byte("ok\n"))
		require.NoError(t, err)
	}

	require.NoError(t, <-errc)
}

func TestMotionLineFormatsRapidAndLinear(t *testing.T) {
	assert.Equal(t, "G0 X1 Y2 Z3 A4", motionLine(cncstate.MotionRapid, coord.Point{X: 1, Y: 2, Z: 3}, 4))
	assert.Equal(t, "G1 X1 Y2 Z3 A4", motionLine(cncstate.MotionLinear, coord.Point{X: 1, Y: 2, Z: 3}, 4))
}
