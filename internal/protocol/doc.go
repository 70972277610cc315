// Package protocol contains the DNS request handler: the pipeline that turns a raw client
// datagram into a parsed query, resolves it against the cache or the upstream resolver, and
// writes a response back.
package protocol
