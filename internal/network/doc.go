// Package network contains the UDP listener and connection abstractions the request pipeline is
// built on. It owns the single listen socket and the fixed worker pool dispatching datagrams off
// of it, decoupling socket I/O from the DNS-protocol-aware handling logic in package protocol.
package network
