package transport

import (
	"context"
	"fmt"
	"net"
)

// DialTCP connects to a MIDI peer at addr. The returned connection carries
// raw MIDI bytes and supports read deadlines, so it can be attached to a
// manager directly.
func DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	return conn, nil
}

// TCPListener accepts MIDI peers over TCP.
type TCPListener struct {
	listener net.Listener
}

// ListenTCP starts listening on addr. Use ":0" to pick a free port.
func ListenTCP(addr string) (*TCPListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}
	return &TCPListener{listener: l}, nil
}

// Addr returns the address the listener is bound to.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept waits for the next peer.
func (l *TCPListener) Accept() (net.Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccept, err)
	}
	return conn, nil
}

// Close stops listening. Connections already accepted stay open.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}
