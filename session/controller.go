// Package session implements component F: the connection/session
// controller. It owns the mutex that guards the shared cncstate.State,
// demultiplexes controller replies, runs a background keep-alive
// prober, and exposes the high-level machine operations (home, jog,
// probe, tool change, file transfer).
//
// Grounded on the teacher's machine/grbl/serialadapter.go (ticker-driven
// keep-alive goroutine, mutex-guarded last-known state, channel-based
// signaling) and machine/grbl/parse.go (status/probe line demux). The
// explicit connection-lifecycle state machine has no teacher precedent
// and is modeled directly off spec.md's diagram.
package session

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/mcowger/Carvera-Controller/cncstate"
	"github.com/mcowger/Carvera-Controller/coord"
	"github.com/mcowger/Carvera-Controller/interp"
	"github.com/mcowger/Carvera-Controller/meshlevel"
	"github.com/mcowger/Carvera-Controller/transport"
)

// Prober cadences, spec.md §4.F: while idle and not running, write `?`
// every ProbeInterval; once ProbeSilenceWarning of read silence has
// passed, every tick also writes one unconditional extra `?`; after
// ProbeSilenceTimeout of silence the
// link is declared dead. The prober never runs outside the idle state
// or while the running flag is set (spec.md §5's "running flag preempts
// the prober").
const (
	ProbeInterval       = 200 * time.Millisecond
	ProbeSilenceWarning = 4500 * time.Millisecond
	ProbeSilenceTimeout = 7000 * time.Millisecond
)

// Controller manages one connection to a machine.
type Controller struct {
	mu    sync.Mutex
	tr    transport.Transport
	state *cncstate.State
	conn  ConnState

	// running is the caller-asserted flag (spec.md §3/§5) set around a
	// long streamed job. While true the prober never writes, mirroring
	// the file-transfer engine's own preemption of it.
	running      bool
	lastActivity time.Time

	lineNo   int
	acks     chan Reply
	infos    chan Reply
	activity chan struct{}

	lastStatus StatusReport

	// leveler compensates every motion ExecuteGCode transmits against a
	// surveyed bed surface, once one has been set via
	// SetLevelingSurface. nil means no compensation is active.
	leveler *meshlevel.Leveler

	closeOnce sync.Once
	closed    chan struct{}

	OnStatus     func(StatusReport)
	OnInfo       func(Reply)
	OnDisconnect func()
}

// New wraps tr in a Controller with a freshly initialized cncstate.State.
func New(tr transport.Transport) *Controller {
	return &Controller{
		tr:       tr,
		state:    cncstate.New(),
		conn:     Disconnected,
		acks:     make(chan Reply, 1),
		infos:    make(chan Reply, 16),
		activity: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// ConnState returns the current connection lifecycle state.
func (c *Controller) ConnState() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Controller) setConn(s ConnState) {
	c.mu.Lock()
	c.conn = s
	c.mu.Unlock()
}

// Connect starts the reader and prober goroutines and transitions to
// Idle once the link proves responsive.
func (c *Controller) Connect() error {
	c.setConn(Connecting)
	go c.readLoop()
	go c.proberLoop()

	c.tr.Write([]byte{StatusQuery})
	select {
	case <-c.activity:
	case <-time.After(5 * time.Second):
		c.setConn(ErrorState)
		return fmt.Errorf("session: no response from controller")
	case <-c.closed:
		return fmt.Errorf("session: closed during connect")
	}
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
	c.setConn(Idle)
	return nil
}

// SetRunning declares whether a long-running, caller-driven job (e.g. a
// streamed program) is in progress. While true the background prober
// never writes a status query, per spec.md §4.F/§5's running-flag
// preemption of the keep-alive task.
func (c *Controller) SetRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()
}

// Running reports whether a caller-declared long-running job is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close shuts down the background goroutines and the transport.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	c.setConn(Disconnected)
	return c.tr.Close()
}

// State returns the guarded machine state. Callers must hold Lock/Unlock
// around any read or write, since the interpreter and the status-line
// handler share it.
func (c *Controller) State() *cncstate.State { return c.state }

// Lock/Unlock expose the Controller's mutex to callers that need to read
// or mutate State consistently with the background status handler.
func (c *Controller) Lock()   { c.mu.Lock() }
func (c *Controller) Unlock() { c.mu.Unlock() }

func (c *Controller) readLoop() {
	scanner := bufio.NewScanner(c.tr)
	for scanner.Scan() {
		select {
		case <-c.closed:
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()
		select {
		case c.activity <- struct{}{}:
		default:
		}
		reply := classify(line)
		switch reply.Kind {
		case ReplyStatus:
			status := ParseStatus(reply.Body)
			c.mu.Lock()
			c.lastStatus = status
			applyStatusToState(c.state, status)
			c.mu.Unlock()
			if c.OnStatus != nil {
				c.OnStatus(status)
			}
		case ReplyInfo:
			c.mu.Lock()
			applyInfoToState(c.state, reply.Body)
			c.mu.Unlock()
			if c.OnInfo != nil {
				c.OnInfo(reply)
			}
			nonBlockingSend(c.infos, reply)
		case ReplyOK, ReplyError, ReplyAlarm:
			nonBlockingSend(c.acks, reply)
		}
	}
}

func nonBlockingSend(ch chan Reply, r Reply) {
	select {
	case ch <- r:
	default:
	}
}

func (c *Controller) proberLoop() {
	t := time.NewTicker(ProbeInterval)
	defer t.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-t.C:
			c.tick()
		}
	}
}

// tick runs one prober cycle. It writes nothing unless the link is
// idle and the caller has not asserted the running flag (spec.md §5);
// component C's FileTransferState and any caller-declared job both
// preempt it the same way.
func (c *Controller) tick() {
	if !c.shouldProbe() {
		return
	}
	if _, err := c.tr.Write([]byte{StatusQuery}); err != nil {
		log.Printf("session: prober lost link: %v", err)
	}

	switch silence := c.silenceSince(); {
	case silence >= ProbeSilenceTimeout:
		c.setConn(ErrorState)
		if c.OnDisconnect != nil {
			c.OnDisconnect()
		}
	case silence >= ProbeSilenceWarning:
		if _, err := c.tr.Write([]byte{StatusQuery}); err != nil {
			log.Printf("session: prober lost link: %v", err)
		}
	}
}

// shouldProbe reports whether the background prober may write a status
// query given the controller's current state.
func (c *Controller) shouldProbe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == Idle && !c.running
}

func (c *Controller) silenceSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

// ExecuteGCode tokenizes and interprets one line of G-code against the
// controller's state, then transmits it and waits for an ok/error
// acknowledgement. If a leveling surface is active (SetLevelingSurface),
// the interpreted line's machine-coordinate points are transmitted
// Z-compensated instead of the original line text.
func (c *Controller) ExecuteGCode(line string) (interp.ParsedLine, error) {
	c.mu.Lock()
	c.lineNo++
	lineNo := c.lineNo
	before := coord.Point{X: c.state.Position.X, Y: c.state.Position.Y, Z: c.state.Position.Z}
	parsed, err := interp.ParseLine(c.state, line, lineNo)
	var path []cncstate.PathPoint
	if err == nil {
		path = append([]cncstate.PathPoint(nil), c.state.Path()...)
	}
	leveler := c.leveler
	c.mu.Unlock()
	if err != nil {
		return parsed, err
	}
	if leveler == nil || len(path) == 0 {
		return parsed, c.sendLine(line)
	}
	return parsed, c.levelAndSend(leveler, before, path)
}

// sendLine transmits one line and waits for an ok/error acknowledgement,
// without running it through the gcode interpreter. Used for
// firmware-specific commands ($H, $J=, G28.2, M495, M495.3, M220, M223)
// whose text ('$' prefixes, parameter letters D and O) falls outside the
// standard word grammar interp.ParseLine enforces, and which carry no
// state cncstate.State needs to track.
func (c *Controller) sendLine(line string) error {
	c.setConn(Busy)
	defer func() {
		if c.ConnState() == Busy {
			c.setConn(Idle)
		}
	}()

	if _, werr := io.WriteString(c.tr, line+"\r\n"); werr != nil {
		return fmt.Errorf("session: write: %w", werr)
	}
	select {
	case r := <-c.acks:
		if r.Kind == ReplyError {
			return fmt.Errorf("session: controller reported error:%d", r.Code)
		}
		if r.Kind == ReplyAlarm {
			c.setConn(ErrorState)
			return fmt.Errorf("session: controller reported ALARM:%d", r.Code)
		}
	case <-time.After(30 * time.Second):
		return fmt.Errorf("session: timed out waiting for acknowledgement")
	case <-c.closed:
		return fmt.Errorf("session: closed")
	}
	return nil
}
