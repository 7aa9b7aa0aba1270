// Package discovery implements component B: UDP broadcast discovery of
// controllers on the local subnet. No example repo in the corpus does
// same-subnet broadcast discovery, so this package is built directly
// against net.ListenUDP/net.DialUDP rather than an ecosystem library.
package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Port is the fixed UDP port controllers listen for discovery queries on.
const Port = 3333

// MachineInfo is one controller's discovery response, parsed from a
// "<name>,<ip>,<port>,<busy-flag>" datagram.
type MachineInfo struct {
	Name string
	IP   string
	Port int
	Busy bool
}

func (m MachineInfo) key() string { return net.JoinHostPort(m.IP, strconv.Itoa(m.Port)) }

func parseResponse(from net.Addr, data []byte) (MachineInfo, error) {
	fields := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(fields) != 4 {
		return MachineInfo{}, fmt.Errorf("discovery: malformed response %q", data)
	}
	port, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return MachineInfo{}, fmt.Errorf("discovery: bad port in %q: %w", data, err)
	}
	ip := strings.TrimSpace(fields[1])
	if ip == "" {
		if udpAddr, ok := from.(*net.UDPAddr); ok {
			ip = udpAddr.IP.String()
		}
	}
	return MachineInfo{
		Name: strings.TrimSpace(fields[0]),
		IP:   ip,
		Port: port,
		Busy: strings.TrimSpace(fields[3]) == "1",
	}, nil
}

// Query broadcasts a discovery request on the local subnet and collects
// responses for the given window, de-duplicating by (ip, port).
func Query(window time.Duration) ([]MachineInfo, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, fmt.Errorf("discovery: listen: %w", err)
	}
	defer conn.Close()

	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	if _, err := conn.WriteToUDP([]byte("?"), broadcast); err != nil {
		return nil, fmt.Errorf("discovery: send: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(window))

	seen := make(map[string]bool)
	var results []MachineInfo
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			return results, fmt.Errorf("discovery: read: %w", err)
		}
		info, perr := parseResponse(addr, buf[:n])
		if perr != nil {
			continue
		}
		if seen[info.key()] {
			continue
		}
		seen[info.key()] = true
		results = append(results, info)
	}
	return results, nil
}
