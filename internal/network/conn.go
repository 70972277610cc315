package network

import (
	"fmt"
	"net"
	"time"
)

// UDPConn is an abstraction over a UDP net.PacketConn to give it net.Conn-like semantics. It
// statefully tracks connection state changes across reads and writes, assuming that a write follows
// an initial read.
type UDPConn struct {
	conn         net.PacketConn
	readTimeout  time.Duration
	writeTimeout time.Duration
	remote       net.Addr
	pending      []byte
}

// NewUDPConn creates a UDPConn from a backing net.PacketConn. Read performs a live socket read.
func NewUDPConn(conn net.PacketConn, readTimeout time.Duration, writeTimeout time.Duration) *UDPConn {
	return &UDPConn{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// NewUDPConnWithDatagram creates a UDPConn already bound to a datagram the listener has already
// read off the wire. Read returns that owned buffer instead of touching the socket again; Write
// still goes to the socket, addressed back at remote. This is the shape the request pipeline's
// worker pool uses: the listener goroutine owns the single ReadFrom loop, and each worker gets its
// own copy of one datagram to process independently.
func NewUDPConnWithDatagram(conn net.PacketConn, remote net.Addr, data []byte, writeTimeout time.Duration) *UDPConn {
	return &UDPConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		remote:       remote,
		pending:      data,
	}
}

// Read performs a read from the remote client. The remote address is statefully tracked as a struct
// member. If the connection was constructed with an already-read datagram, that buffer is returned
// once instead of reading the socket again.
func (c *UDPConn) Read(buf []byte) (n int, err error) {
	if c.pending != nil {
		n = copy(buf, c.pending)
		c.pending = nil
		return n, nil
	}

	if c.remote != nil {
		return 0, fmt.Errorf("conn: already associated with a transaction")
	}

	if c.readTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}

	n, c.remote, err = c.conn.ReadFrom(buf)

	return
}

// Write writes to the same client from which data was read. It is an error to write to a connection
// without a prior read from a remote client.
func (c *UDPConn) Write(buf []byte) (n int, err error) {
	if c.remote == nil {
		return 0, fmt.Errorf("conn: no remote associated with this connection")
	}

	if c.writeTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return c.conn.WriteTo(buf, c.remote)
}

// Close closes the underlying connection.
func (c *UDPConn) Close() error {
	return c.conn.Close()
}

// LocalAddr obtains the connection's local address.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr obtains the connection's remote address.
func (c *UDPConn) RemoteAddr() net.Addr {
	return c.remote
}

// SetDeadline sets both the read and write deadline.
func (c *UDPConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *UDPConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *UDPConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
