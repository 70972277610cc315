package network

import (
	"net"
	"testing"
	"time"
)

func TestUDPConnReadReturnsPreReadDatagram(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	remote := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}
	data := []byte("hello")

	c := NewUDPConnWithDatagram(conn, remote, data, 0)

	buf := make([]byte, 16)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("expected to read back the pre-read datagram, got %q", buf[:n])
	}
}

func TestUDPConnReadPendingIsConsumedOnce(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	remote := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}
	c := NewUDPConnWithDatagram(conn, remote, []byte("once"), 0)

	buf := make([]byte, 16)
	if _, err := c.Read(buf); err != nil {
		t.Fatalf("unexpected error on first read: %v", err)
	}

	// A second read without a pending datagram and with a remote already associated is rejected;
	// this connection shape expects exactly one read per dispatched datagram.
	if _, err := c.Read(buf); err == nil {
		t.Error("expected a second Read to fail once the pending datagram is consumed")
	}
}

func TestUDPConnWriteRequiresPriorRead(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	c := NewUDPConn(conn, 0, 0)

	if _, err := c.Write([]byte("data")); err == nil {
		t.Error("expected Write to fail without an associated remote address")
	}
}

func TestUDPConnWriteToRemote(t *testing.T) {
	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer server.Close()

	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	c := NewUDPConnWithDatagram(server, client.LocalAddr(), []byte("ping"), time.Second)

	buf := make([]byte, 16)
	if _, err := c.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Write([]byte("pong")); err != nil {
		t.Fatalf("unexpected error writing reply: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := client.ReadFrom(buf)
	if err != nil {
		t.Fatalf("unexpected error reading reply on client: %v", err)
	}
	if string(buf[:n]) != "pong" {
		t.Errorf("expected to receive \"pong\", got %q", buf[:n])
	}
}

func TestUDPConnLocalAddr(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	c := NewUDPConn(conn, 0, 0)
	if c.LocalAddr().String() != conn.LocalAddr().String() {
		t.Errorf("expected LocalAddr to match the backing connection's address")
	}
}
