package probe

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/session"
)

// icmpv6PayloadLen matches probe_icmpv6_echo's 16-byte correlation payload:
// an 8-byte session ID followed by an 8-byte start time, letting replies be
// matched to the right in-flight test when the process runs many probes
// concurrently.
const icmpv6PayloadLen = 16

// ICMPv6Result is the outcome of one echo exchange: the classified code and,
// for an indirect response, the printable address of the actual responder.
type ICMPv6Result struct {
	Code          resultcode.Code
	ResponderAddr string
}

// ICMPv6Probe sends a single ICMPv6 echo request and waits for the
// matching reply, using a raw ICMPv6 socket that requires CAP_NET_RAW.
type ICMPv6Probe struct {
	Timeout time.Duration
}

// NewICMPv6Probe builds an ICMPv6Probe with the given per-host timeout.
func NewICMPv6Probe(timeout time.Duration) *ICMPv6Probe {
	return &ICMPv6Probe{Timeout: timeout}
}

// Probe sends one echo request to target, correlated by key, and waits for
// a reply. A reply from an address other than target is reported with the
// indirect-response bias applied to Code and ResponderAddr set to the
// printable address of the actual sender, mirroring IPSCAN_INDIRECT_RESPONSE.
func (p *ICMPv6Probe) Probe(ctx context.Context, target string, key session.Key) (ICMPv6Result, error) {
	conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		return ICMPv6Result{Code: resultcode.PortInternalError}, fmt.Errorf("probe: listen icmpv6: %w", err)
	}
	defer conn.Close()

	pconn := conn.IPv6PacketConn()
	var filter ipv6.ICMPFilter
	filter.SetAll(true)
	filter.Accept(ipv6.ICMPTypeEchoReply)
	filter.Accept(ipv6.ICMPTypeDestinationUnreachable)
	filter.Accept(ipv6.ICMPTypePacketTooBig)
	filter.Accept(ipv6.ICMPTypeParameterProblem)
	_ = pconn.SetICMPFilter(&filter)
	_ = pconn.SetControlMessage(ipv6.FlagSrc, true)

	payload := make([]byte, icmpv6PayloadLen)
	binary.BigEndian.PutUint64(payload[0:8], key.SessionID)
	binary.BigEndian.PutUint64(payload[8:16], key.StartTime)

	msg := icmp.Message{
		Type: ipv6.ICMPTypeEchoRequest,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(key.SessionID & 0xffff),
			Seq:  1,
			Data: payload,
		},
	}
	wireBytes, err := msg.Marshal(nil)
	if err != nil {
		return ICMPv6Result{Code: resultcode.PortInternalError}, fmt.Errorf("probe: marshal echo request: %w", err)
	}

	dst, err := net.ResolveIPAddr("ip6", target)
	if err != nil {
		return ICMPv6Result{Code: resultcode.PortInternalError}, fmt.Errorf("probe: resolve target: %w", err)
	}

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.WriteTo(wireBytes, dst); err != nil {
		return ICMPv6Result{Code: resultcode.EchoNoReply}, nil
	}

	reply := make([]byte, 1500)
	for {
		n, cm, peer, err := pconn.ReadFrom(reply)
		if err != nil {
			return ICMPv6Result{Code: resultcode.EchoNoReply}, nil
		}

		parsed, err := icmp.ParseMessage(58, reply[:n])
		if err != nil {
			continue
		}
		if parsed.Type != ipv6.ICMPTypeEchoReply {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok || echo.ID != int(key.SessionID&0xffff) {
			continue
		}

		code := resultcode.EchoReply
		result := ICMPv6Result{Code: code}
		if !sameAddr(peer, dst) || (cm != nil && !cm.Src.Equal(dst.IP)) {
			result.Code = resultcode.Indirect(code)
			result.ResponderAddr = peerString(peer)
		}
		return result, nil
	}
}

func sameAddr(peer net.Addr, dst *net.IPAddr) bool {
	ipa, ok := peer.(*net.IPAddr)
	if !ok {
		return false
	}
	return ipa.IP.Equal(dst.IP)
}

func peerString(peer net.Addr) string {
	if ipa, ok := peer.(*net.IPAddr); ok {
		return ipa.IP.String()
	}
	return peer.String()
}
