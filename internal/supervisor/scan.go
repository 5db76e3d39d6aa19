package supervisor

import (
	"context"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/session"
	"github.com/ipscand/ipscand/internal/store"
)

// Limits bounds one supervisor run: MAXCHILDREN/MAXUDPCHILDREN as
// FanOutMax, MAXPORTSPERCHILD/MAXUDPPORTSPERCHILD as ChunkSize.
type Limits struct {
	FanOutMax int
	ChunkSize int
}

// RunTCP probes every port in ports against target using p, writing each
// outcome to s under key. Per-port write failures are returned as errors;
// a probe outcome is still attempted for every port regardless of earlier
// write failures.
func RunTCP(ctx context.Context, target string, key session.Key, ports []portcatalog.Port, p *probe.TCPProbe, s store.Store, limits Limits) []error {
	write := func(ctx context.Context, port portcatalog.Port) error {
		code := p.Probe(ctx, target, port)
		return s.Write(ctx, key, store.Row{
			PortKey: port.Key(portcatalog.ProtocolTCP),
			Code:    code,
		})
	}
	return Run(ctx, ports, limits.FanOutMax, limits.ChunkSize, write)
}

// RunUDP is RunTCP's UDP counterpart.
func RunUDP(ctx context.Context, target string, key session.Key, ports []portcatalog.Port, p *probe.UDPProbe, s store.Store, limits Limits) []error {
	write := func(ctx context.Context, port portcatalog.Port) error {
		code := p.Probe(ctx, target, port)
		return s.Write(ctx, key, store.Row{
			PortKey: port.Key(portcatalog.ProtocolUDP),
			Code:    code,
		})
	}
	return Run(ctx, ports, limits.FanOutMax, limits.ChunkSize, write)
}

// RunICMPv6 performs the single echo-request exchange and writes its
// result under the test-state protocol tag's sibling ICMPv6 port key (port
// 0, special 0). Unlike RunTCP/RunUDP it is not chunked across workers:
// the spec defines exactly one echo probe per session.
func RunICMPv6(ctx context.Context, target string, key session.Key, p *probe.ICMPv6Probe, s store.Store) error {
	result, err := p.Probe(ctx, target, key)
	code := result.Code
	if err != nil {
		code = resultcode.PortInternalError
	}
	row := store.Row{
		PortKey:      portcatalog.EncodePortKey(0, 0, portcatalog.ProtocolICMPv6),
		Code:         code,
		IndirectHost: result.ResponderAddr,
	}
	return s.Write(ctx, key, row)
}
