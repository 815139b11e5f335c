// Package socket implements JamSocket, a non-blocking UDP endpoint used by
// both the client and server halves of the data plane.
package socket

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// ErrNotConnected is returned by Send when no remote endpoint has been set.
var ErrNotConnected = errors.New("socket: not connected")

// ErrWouldBlock is returned by Recv when no datagram is currently pending.
var ErrWouldBlock = errors.New("socket: would block")

// lowDelayTOS is the IPTOS_LOWDELAY value (§4.6); best-effort, ignored where
// the OS doesn't let an unprivileged process set it.
const lowDelayTOS = 0x10

// pollInterval bounds how long a single Recv call waits for a datagram
// before giving up and reporting ErrWouldBlock. JamSocket is meant to be
// polled once per audio frame, so this is kept well under one frame period.
const pollInterval = time.Millisecond

// JamSocket is a UDP socket bound to a fixed local port with an optional
// remote peer. It never blocks longer than pollInterval on a Recv call.
type JamSocket struct {
	conn     *net.UDPConn
	remote   *net.UDPAddr
	clientID uint32
	connected bool
}

// Listen opens a JamSocket bound to the given local port (0 picks an
// ephemeral port, used by clients; servers bind a fixed port).
func Listen(port int) (*JamSocket, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	setLowDelayTOS(conn, lowDelayTOS)
	return &JamSocket{conn: conn}, nil
}

// LocalPort returns the bound local port.
func (s *JamSocket) LocalPort() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Connect stores the remote address and client identity. No handshake is
// performed; this only configures where Send writes to.
func (s *JamSocket) Connect(host string, port int, clientID uint32) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	s.remote = addr
	s.clientID = clientID
	s.connected = true
	return nil
}

// Disconnect clears the remote endpoint. Send will fail with
// ErrNotConnected until Connect is called again.
func (s *JamSocket) Disconnect() {
	s.remote = nil
	s.connected = false
}

// Connected reports whether a remote endpoint is currently set.
func (s *JamSocket) Connected() bool {
	return s.connected
}

// ClientID returns the client identity passed to the last successful
// Connect call.
func (s *JamSocket) ClientID() uint32 {
	return s.clientID
}

// Send writes data to the configured remote endpoint. Returns
// ErrNotConnected if Connect has not been called.
func (s *JamSocket) Send(data []byte) error {
	if !s.connected {
		return ErrNotConnected
	}
	_, err := s.conn.WriteToUDP(data, s.remote)
	return err
}

// SendTo writes data to an explicit address, bypassing the configured
// remote endpoint. Used by the server fan-out loop, which talks to many
// peers over one bound socket.
func (s *JamSocket) SendTo(data []byte, addr *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

// Recv fills buf with one pending datagram's payload, returning the number
// of bytes read and the sender's address. Returns ErrWouldBlock if nothing
// arrives within pollInterval.
func (s *JamSocket) Recv(buf []byte) (n int, from *net.UDPAddr, err error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return 0, nil, err
	}
	n, from, err = s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, err
	}
	return n, from, nil
}

// SetRecvTimeout sets a read deadline d from now, which subsequent RecvRaw
// calls honor; Recv ignores it and sets its own pollInterval deadline. The
// broadcast loop uses a 1-second timeout (§4.8). A deadline that has
// already passed makes RecvRaw report ErrWouldBlock even when a datagram
// is pending.
func (s *JamSocket) SetRecvTimeout(d time.Duration) error {
	return s.conn.SetReadDeadline(time.Now().Add(d))
}

// RecvRaw behaves like Recv but honors a deadline already set via
// SetRecvTimeout instead of resetting pollInterval, for callers (like the
// broadcast loop) that manage their own timeout cadence.
func (s *JamSocket) RecvRaw(buf []byte) (n int, from *net.UDPAddr, err error) {
	n, from, err = s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, err
	}
	return n, from, nil
}

// Close releases the underlying socket.
func (s *JamSocket) Close() error {
	return s.conn.Close()
}
