package protocol

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/getsentry/raven-go"
	"lib.kevinlin.info/aperture/lib"

	"dnsproxy/internal/cache"
	"dnsproxy/internal/dns"
	"dnsproxy/internal/log"
	"dnsproxy/internal/metrics"
)

// DNSHandler implements network.ServerHandler. It is the request pipeline's state machine: parse
// the query, consult the cache, either answer directly or forward upstream and cache the reply,
// and finally write a response back to the client. Any failure along the way is mapped to a
// classified DNS error response rather than propagated as a dropped request.
type DNSHandler struct {
	Cache            *cache.Cache
	Upstream         string
	ClientCxIOHook   metrics.ConnectionIOHook
	UpstreamCxIOHook metrics.ConnectionIOHook
	ProxyHook        metrics.ProxyHook
	Logger           log.Logger
	Opts             DNSHandlerOpts
}

// DNSHandlerOpts formalizes configuration options for the handler.
type DNSHandlerOpts struct {
	// UpstreamTimeout bounds how long the handler waits for the upstream resolver to answer a
	// forwarded query before giving up and replying SERVFAIL.
	UpstreamTimeout time.Duration
}

// ConsumeError logs a handler-level failure, reports it to the proxy metrics hook, and
// best-effort reports it to Sentry if configured.
func (h *DNSHandler) ConsumeError(ctx context.Context, err error) {
	h.Logger.Error("protocol: %v", err)
	h.ProxyHook.EmitError()

	raven.CaptureError(err, map[string]string{"transport": "udp"})
}

// Handle runs one request through the full pipeline: PARSED -> CACHE_HIT|CACHE_MISS ->
// [FORWARDING -> UPSTREAM_REPLY -> CACHE_UPDATED] -> REPLY_SENT.
func (h *DNSHandler) Handle(ctx context.Context, conn net.Conn) error {
	rtt := lib.NewStopwatch()

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		h.ClientCxIOHook.EmitReadError(conn.RemoteAddr())
		return fmt.Errorf("protocol: error reading client datagram: err=%v", err)
	}
	reqBytes := buf[:n]

	query, parseErr := dns.ParseQuery(reqBytes)
	if parseErr != nil {
		return h.sendError(conn, parseErr)
	}

	h.Logger.Debug("protocol: parsed query: name=%s type=%d id=%d", query.Name, query.Type, query.Header.ID)

	now := time.Now()
	entry := h.Cache.Lookup(query.Name)

	var respBytes []byte
	if entry.Fresh(now) {
		h.Logger.Debug("protocol: cache hit: name=%s", query.Name)
		respBytes = dns.NewAnswerResponse(query, entry.Address, uint32(cache.TTL.Seconds()))
	} else {
		upstreamTimer := lib.NewStopwatch()

		answer, upstreamErr := h.forward(query)
		if upstreamErr != nil {
			return h.sendError(conn, upstreamErr)
		}

		h.ProxyHook.EmitUpstreamLatency(upstreamTimer.Elapsed(), conn.RemoteAddr(), h.upstreamAddr())
		h.Cache.Update(answer.Name, answer.Address, now)

		respBytes = dns.NewAnswerResponse(query, answer.Address, uint32(cache.TTL.Seconds()))
	}

	if err := h.reply(conn, respBytes); err != nil {
		return err
	}

	h.ProxyHook.EmitRequestSize(int64(n), conn.RemoteAddr())
	h.ProxyHook.EmitResponseSize(int64(len(respBytes)), conn.RemoteAddr())
	h.ProxyHook.EmitRTT(rtt.Elapsed(), conn.RemoteAddr(), h.upstreamAddr())

	return nil
}

// forward re-emits the query to the configured upstream resolver over a fresh, one-shot UDP
// socket, and parses its reply. There is no connection pooling: UDP is connectionless, and a
// forwarded DNS query is exactly one write followed by exactly one read.
func (h *DNSHandler) forward(query *dns.Query) (*dns.Answer, error) {
	upstream, err := net.Dial("udp", h.Upstream)
	if err != nil {
		h.UpstreamCxIOHook.EmitConnectionError()
		return nil, dns.NewServFailError(query.Header.ID, fmt.Sprintf("error dialing upstream: err=%v", err))
	}
	defer upstream.Close()

	timeout := h.Opts.UpstreamTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := upstream.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, dns.NewServFailError(query.Header.ID, fmt.Sprintf("error setting upstream deadline: err=%v", err))
	}

	if _, err := upstream.Write(query.Encode()); err != nil {
		h.UpstreamCxIOHook.EmitWriteError(upstream.RemoteAddr())
		return nil, dns.NewServFailError(query.Header.ID, fmt.Sprintf("error writing to upstream: err=%v", err))
	}

	buf := make([]byte, 512)
	n, err := upstream.Read(buf)
	if err != nil {
		h.UpstreamCxIOHook.EmitReadError(upstream.RemoteAddr())
		return nil, dns.NewServFailError(query.Header.ID, fmt.Sprintf("error reading from upstream: err=%v", err))
	}

	answer, parseErr := dns.ParseUpstreamAnswer(buf[:n])
	if parseErr != nil {
		return nil, parseErr
	}

	return answer, nil
}

// sendError maps err to a minimal error response and writes it back to the client.
func (h *DNSHandler) sendError(conn net.Conn, err error) error {
	dnsErr, ok := err.(*dns.Error)
	if !ok {
		dnsErr = dns.NewServFailError(0, err.Error())
	}

	if sendErr := h.reply(conn, dns.NewErrorResponse(dnsErr.Code, dnsErr.ID)); sendErr != nil {
		h.Logger.Error("protocol: failed to deliver error response: original=%v send_err=%v", dnsErr, sendErr)
	}

	return dnsErr
}

// reply writes resp back to the client connection.
func (h *DNSHandler) reply(conn net.Conn, resp []byte) error {
	if _, err := conn.Write(resp); err != nil {
		h.ClientCxIOHook.EmitWriteError(conn.RemoteAddr())
		return fmt.Errorf("protocol: error writing reply to client: err=%v", err)
	}

	return nil
}

func (h *DNSHandler) upstreamAddr() net.Addr {
	addr, err := net.ResolveUDPAddr("udp", h.Upstream)
	if err != nil {
		return nil
	}
	return addr
}
