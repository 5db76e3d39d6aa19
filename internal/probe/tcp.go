package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/resultcode"
)

// memcacheSpecial marks the port that gets a protocol-level "stats\r\n"
// exchange once the connection is open. The connection-level result
// (PortOpen) is kept regardless of how the exchange goes; its outcome is
// neither inspected nor logged.
const memcacheSpecial uint8 = 1

// TCPDialer abstracts the network dial so tests can substitute a fake
// listener or a deterministic failure without touching a real socket.
type TCPDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProbe performs the connect-probe state machine described in
// probe_tcp: non-blocking connect with a bounded wait for writability,
// classified via resultcode.ClassifyTCP, with an optional protocol
// exchange for special-cased ports.
type TCPProbe struct {
	Dialer  TCPDialer
	Timeout time.Duration
}

// NewTCPProbe builds a TCPProbe using net.Dialer, whose DialContext already
// implements non-blocking connect plus a context-bounded readiness wait —
// the same semantics probe_tcp describes in terms of raw sockets.
func NewTCPProbe(timeout time.Duration) *TCPProbe {
	return &TCPProbe{Dialer: &net.Dialer{}, Timeout: timeout}
}

// Probe connects to target:port and returns the classified result code.
// The socket is always closed before Probe returns.
func (p *TCPProbe) Probe(ctx context.Context, target string, port portcatalog.Port) resultcode.Code {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	address := net.JoinHostPort(target, strconv.Itoa(int(port.PortNum)))
	conn, err := p.Dialer.DialContext(ctx, "tcp6", address)
	code := resultcode.ClassifyTCP(ctx, err)
	if err != nil {
		return code
	}
	defer conn.Close()

	if port.Special == memcacheSpecial {
		probeMemcache(conn, p.Timeout)
	}

	return code
}

// probeMemcache sends a "stats\r\n" request and reads (and discards) the
// first response bytes; any error here is swallowed since the connection
// already proved the port open.
func probeMemcache(conn net.Conn, timeout time.Duration) {
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte("stats\r\n")); err != nil {
		return
	}
	buf := make([]byte, 256)
	_, _ = conn.Read(buf)
}
