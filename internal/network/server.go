//go:generate go run golang.org/x/tools/cmd/stringer -type=Transport

package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"dnsproxy/internal/concurrent"
	"dnsproxy/internal/metrics"
)

// contextKey is a type alias for context keys passed to server handlers.
type contextKey int

// Transport describes a network transport type.
type Transport int

// ServerHandler is a common interface that wraps logic for handling a single received datagram.
type ServerHandler interface {
	// Handle describes the routine to run for a single client datagram. The passed conn is a
	// UDPConn already bound to the datagram's owned copy and originating address.
	Handle(ctx context.Context, conn net.Conn) error

	// ConsumeError is a callback invoked when the server fails to read a datagram, or when the
	// handler returns an error.
	ConsumeError(ctx context.Context, err error)
}

// UDPServer owns a single UDP listen socket and dispatches each received datagram to a bounded
// worker pool. The listener itself never parses a datagram; it only reads, copies, and dispatches.
type UDPServer struct {
	addr       string
	opts       UDPServerOpts
	pool       *concurrent.Pool
	cxLifecycle metrics.ConnectionLifecycleHook
}

// UDPServerOpts formalizes UDP server configuration options.
type UDPServerOpts struct {
	// Workers is the fixed number of worker goroutines draining the dispatch queue. Non-positive
	// defaults to a reasonable fan-out.
	Workers int
	// WriteTimeout is the maximum amount of time the server is allowed to take to write data back
	// to a client, after which the server will consider the write to have failed.
	WriteTimeout time.Duration
}

const (
	// TransportContextKey is the name of the context key used to indicate the network transport
	// protocol the handler is serving.
	TransportContextKey contextKey = iota
)

const (
	// UDP describes a UDP transport. It is the only transport this server supports; DNS-over-TCP
	// is explicitly out of scope.
	UDP Transport = iota
)

// NewUDPServer creates a UDP server listening on the specified address, backed by a fixed worker
// pool. cxLifecycle reports the listener's own open/close lifecycle; since UDP is connectionless,
// that lifecycle spans the whole process rather than per-datagram traffic.
func NewUDPServer(addr string, cxLifecycle metrics.ConnectionLifecycleHook, opts UDPServerOpts) *UDPServer {
	return &UDPServer{
		addr:        addr,
		opts:        opts,
		pool:        concurrent.NewPool(concurrent.PoolOpts{Workers: opts.Workers}),
		cxLifecycle: cxLifecycle,
	}
}

// ListenAndServe binds the UDP socket and runs a single read loop, copying each datagram into an
// owned buffer and submitting it to the worker pool for handling. It never shares the reusable
// read buffer across dispatched tasks. It blocks until the passed context is cancelled, at which
// point it closes the socket, shuts down the worker pool, and returns.
func (s *UDPServer) ListenAndServe(ctx context.Context, handler ServerHandler) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on UDP socket: err=%v", err)
	}

	s.cxLifecycle.EmitConnectionOpen(0, conn.LocalAddr())

	handlerCtx := context.WithValue(context.Background(), TransportContextKey, UDP)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 512)
	for {
		n, remote, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				s.cxLifecycle.EmitConnectionClose(conn.LocalAddr())
				s.pool.Shutdown()
				return nil
			default:
				handler.ConsumeError(handlerCtx, err)
				continue
			}
		}

		owned := make([]byte, n)
		copy(owned, buf[:n])

		s.pool.Submit(func() {
			udpConn := NewUDPConnWithDatagram(conn, remote, owned, s.opts.WriteTimeout)
			if err := handler.Handle(handlerCtx, udpConn); err != nil {
				handler.ConsumeError(handlerCtx, err)
			}
		})
	}
}
