package endpoint

import (
	"fmt"
	"net"
	"time"
)

// UDPEndpoint is the Endpoint implementation backed by a *net.UDPConn.
// Send and SendTo wrap their errors with context; Recv and RecvFrom return
// the socket's error unwrapped.
type UDPEndpoint struct {
	conn        *net.UDPConn
	readTimeout time.Duration
}

// Bind opens a fresh unconnected endpoint bound to addr. Pass "0.0.0.0:0"
// (or any address with port 0) to obtain an ephemeral local port.
func Bind(addr string) (*UDPEndpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: resolve bind address %q: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: bind %q: %w", addr, err)
	}

	return &UDPEndpoint{conn: conn}, nil
}

// Connect pins the endpoint to addr. net.UDPConn offers no in-place connect
// for an already-bound socket, so this closes the unconnected listening
// socket and redials on the same local port — the same local 5-tuple the
// caller already observed from LocalAddr.
func (e *UDPEndpoint) Connect(addr *net.UDPAddr) error {
	local := e.conn.LocalAddr().(*net.UDPAddr)
	if err := e.conn.Close(); err != nil {
		return fmt.Errorf("endpoint: connect: closing bound socket: %w", err)
	}

	conn, err := net.DialUDP("udp", local, addr)
	if err != nil {
		return fmt.Errorf("endpoint: connect to %s: %w", addr, err)
	}
	e.conn = conn
	return nil
}

func (e *UDPEndpoint) Send(buf []byte) error {
	_, err := e.conn.Write(buf)
	if err != nil {
		return fmt.Errorf("endpoint: send: %w", err)
	}
	return nil
}

func (e *UDPEndpoint) Recv(buf []byte) (int, error) {
	if err := e.armReadDeadline(); err != nil {
		return 0, err
	}
	n, err := e.conn.Read(buf)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (e *UDPEndpoint) SendTo(buf []byte, addr *net.UDPAddr) error {
	_, err := e.conn.WriteToUDP(buf, addr)
	if err != nil {
		return fmt.Errorf("endpoint: send to %s: %w", addr, err)
	}
	return nil
}

func (e *UDPEndpoint) RecvFrom(buf []byte) (int, *net.UDPAddr, error) {
	if err := e.armReadDeadline(); err != nil {
		return 0, nil, err
	}
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return n, nil, err
	}
	return n, addr, nil
}

func (e *UDPEndpoint) SetReadTimeout(d time.Duration) error {
	e.readTimeout = d
	return e.armReadDeadline()
}

// armReadDeadline starts the read timeout afresh for the next receive.
func (e *UDPEndpoint) armReadDeadline() error {
	if e.readTimeout <= 0 {
		return e.conn.SetReadDeadline(time.Time{})
	}
	return e.conn.SetReadDeadline(time.Now().Add(e.readTimeout))
}

func (e *UDPEndpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

func (e *UDPEndpoint) RemoteAddr() *net.UDPAddr {
	addr, _ := e.conn.RemoteAddr().(*net.UDPAddr)
	return addr
}

func (e *UDPEndpoint) Close() error {
	return e.conn.Close()
}
