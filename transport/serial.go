package transport

import (
	"time"

	"github.com/tarm/serial"
	"go.bug.st/serial/enumerator"
)

// SerialConfig describes how to open a physical serial port.
type SerialConfig struct {
	Device string
	Baud   int
	// ReadTimeout bounds every Read call. SerialTransport's
	// SetReadDeadline is a no-op, so this is the only read timeout.
	ReadTimeout time.Duration
}

// SerialTransport is a Transport backed by github.com/tarm/serial.
type SerialTransport struct {
	port   *serial.Port
	device string
}

// OpenSerial opens the serial device described by cfg.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	sc := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	}
	p, err := serial.OpenPort(sc)
	if err != nil {
		return nil, &Error{Op: "open", Target: cfg.Device, Err: err}
	}
	return &SerialTransport{port: p, device: cfg.Device}, nil
}

func (s *SerialTransport) Read(b []byte) (int, error) {
	n, err := s.port.Read(b)
	if err != nil {
		return n, &Error{Op: "read", Target: s.device, Err: err}
	}
	return n, nil
}

func (s *SerialTransport) Write(b []byte) (int, error) {
	n, err := s.port.Write(b)
	if err != nil {
		return n, &Error{Op: "write", Target: s.device, Err: err}
	}
	return n, nil
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// tarm/serial has no per-call deadline API; ReadTimeout is fixed at
// open time, so these are no-ops kept to satisfy the Transport
// interface for callers that set deadlines unconditionally.
func (s *SerialTransport) SetReadDeadline(t time.Time) error  { return nil }
func (s *SerialTransport) SetWriteDeadline(t time.Time) error { return nil }

// PortInfo describes one enumerated serial device.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID, PID     string
	SerialNumber string
}

// ListSerialPorts enumerates locally attached serial devices using
// go.bug.st/serial's platform-native enumerator, which surfaces USB
// vendor/product IDs that tarm/serial's own listing does not.
func ListSerialPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, &Error{Op: "enumerate", Target: "serial", Err: err}
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	return ports, nil
}
