package session

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcowger/Carvera-Controller/cncstate"
)

// bufTransport is a non-blocking transport.Transport backed by an
// in-memory buffer, for prober tests that must not race a net.Pipe's
// synchronous Read/Write pairing against the test goroutine.
type bufTransport struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufTransport) Read(p []byte) (int, error)  { return 0, io.EOF }
func (b *bufTransport) Close() error                { return nil }
func (b *bufTransport) SetReadDeadline(time.Time) error  { return nil }
func (b *bufTransport) SetWriteDeadline(time.Time) error { return nil }

func (b *bufTransport) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufTransport) written() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestControllerConnectAndExecuteGCode(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)

	connErr := make(chan error, 1)
	go func() { connErr <- ctl.Connect() }()

	probe := make([]byte, 1)
	_, err := server.Read(probe)
	require.NoError(t, err)
	assert.Equal(t, StatusQuery, probe[0])

	_, err = server.Write([]byte("<Idle|MPos:0.000,0.000,0.000>\n"))
	require.NoError(t, err)

	require.NoError(t, <-connErr)
	assert.Equal(t, Idle, ctl.ConnState())

	serverReader := bufio.NewReader(server)

	type execResult struct {
		err error
	}
	resc := make(chan execResult, 1)
	go func() {
		_, err := ctl.ExecuteGCode("G0 X10")
		resc <- execResult{err: err}
	}()

	line, err := serverReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "G0 X10\r\n", line)

	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)

	res := <-resc
	require.NoError(t, res.err)

	ctl.Lock()
	pos := ctl.State().Position
	ctl.Unlock()
	assert.Equal(t, 10.0, pos.X)
}

func TestReadLoopAppliesStatusFieldsToState(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	_, err := server.Write([]byte("<Run|MPos:1.000,2.000,3.000,45.000|WPos:0.500,1.500,2.500,45.000|F:100,10000|S:12000|T:2|H:-1.500>\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ctl.Lock()
		defer ctl.Unlock()
		return ctl.State().SpindleRPM == 12000
	}, time.Second, time.Millisecond)

	ctl.Lock()
	state := ctl.State()
	assert.Equal(t, 1.0, state.Position.X)
	assert.Equal(t, 45.0, state.Position.A)
	assert.Equal(t, 100.0, state.Feed)
	assert.Equal(t, 10000.0, state.Seek)
	assert.Equal(t, 2, state.CurrentTool)
	assert.Equal(t, -1.5, state.ToolLengthOffset)
	// active WCS offset derived from MPos-WPos.
	assert.Equal(t, 0.5, state.ActiveOffset().Offset.X)
	ctl.Unlock()
}

func TestReadLoopRoutesInfoLinesToWCSTable(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	_, err := server.Write([]byte("[G55:10.000,20.000,-5.000]\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ctl.Lock()
		defer ctl.Unlock()
		return ctl.State().WCSOffsetFor(cncstate.G55).Offset.X == 10
	}, time.Second, time.Millisecond)

	ctl.Lock()
	off := ctl.State().WCSOffsetFor(cncstate.G55)
	ctl.Unlock()
	assert.Equal(t, 20.0, off.Offset.Y)
	assert.Equal(t, -5.0, off.Offset.Z)
}

func TestControllerExecuteGCodeReportsControllerError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go ctl.readLoop()

	serverReader := bufio.NewReader(server)

	resc := make(chan error, 1)
	go func() {
		_, err := ctl.ExecuteGCode("G0 X10")
		resc <- err
	}()

	_, err := serverReader.ReadString('\n')
	require.NoError(t, err)

	_, err = server.Write([]byte("error:20\n"))
	require.NoError(t, err)

	err = <-resc
	assert.Error(t, err)
}

func TestControllerConnectTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctl := New(client)
	go func() {
		buf := make([]byte, 1)
		server.Read(buf)
		// never reply
	}()

	done := make(chan error, 1)
	go func() { done <- ctl.Connect() }()

	select {
	case err := <-done:
		t.Fatalf("Connect should not have returned yet: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	ctl.Close()
}

func TestShouldProbeOnlyWhenIdleAndNotRunning(t *testing.T) {
	ctl := New(&bufTransport{})

	ctl.setConn(Idle)
	assert.True(t, ctl.shouldProbe())

	ctl.SetRunning(true)
	assert.False(t, ctl.shouldProbe(), "running flag must preempt the prober")
	ctl.SetRunning(false)

	ctl.setConn(Busy)
	assert.False(t, ctl.shouldProbe())

	ctl.setConn(FileTransferState)
	assert.False(t, ctl.shouldProbe())

	ctl.setConn(Disconnected)
	assert.False(t, ctl.shouldProbe())
}

func TestTickSendsStatusQueryWhenIdle(t *testing.T) {
	tr := &bufTransport{}
	ctl := New(tr)
	ctl.setConn(Idle)
	ctl.mu.Lock()
	ctl.lastActivity = time.Now()
	ctl.mu.Unlock()

	ctl.tick()

	assert.Equal(t, []byte{StatusQuery}, tr.written())
}

func TestTickWritesNothingWhileBusyOrFileTransferOrRunning(t *testing.T) {
	for _, s := range []ConnState{Busy, FileTransferState} {
		tr := &bufTransport{}
		ctl := New(tr)
		ctl.setConn(s)
		ctl.tick()
		assert.Empty(t, tr.written())
	}

	tr := &bufTransport{}
	ctl := New(tr)
	ctl.setConn(Idle)
	ctl.SetRunning(true)
	ctl.tick()
	assert.Empty(t, tr.written(), "no ? bytes may be transmitted while running=true")
}

func TestTickSendsExtraProbeAfterSilenceWarning(t *testing.T) {
	tr := &bufTransport{}
	ctl := New(tr)
	ctl.setConn(Idle)
	ctl.mu.Lock()
	ctl.lastActivity = time.Now().Add(-5 * time.Second)
	ctl.mu.Unlock()

	ctl.tick()

	assert.Equal(t, []byte{StatusQuery, StatusQuery}, tr.written())
	assert.Equal(t, Idle, ctl.ConnState())
}

func TestTickMarksErrorAndDisconnectsAfterSilenceTimeout(t *testing.T) {
	tr := &bufTransport{}
	ctl := New(tr)
	ctl.setConn(Idle)
	ctl.mu.Lock()
	ctl.lastActivity = time.Now().Add(-8 * time.Second)
	ctl.mu.Unlock()

	disconnected := false
	ctl.OnDisconnect = func() { disconnected = true }

	ctl.tick()

	assert.Equal(t, ErrorState, ctl.ConnState())
	assert.True(t, disconnected)
}
