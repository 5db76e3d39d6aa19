package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/resultcode"
)

// UDPProbe performs the application-aware datagram probe described in
// probe_udp: send a protocol-native payload, wait for either a reply or an
// asynchronous ICMPv6 delivery error, and classify the outcome.
type UDPProbe struct {
	Timeout time.Duration
}

// NewUDPProbe builds a UDPProbe with the given per-port timeout.
func NewUDPProbe(timeout time.Duration) *UDPProbe {
	return &UDPProbe{Timeout: timeout}
}

// Probe sends the canonical payload for port to target and returns the
// classified result code. The socket is always closed before Probe
// returns.
func (p *UDPProbe) Probe(ctx context.Context, target string, port portcatalog.Port) resultcode.Code {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	address := net.JoinHostPort(target, strconv.Itoa(int(port.PortNum)))

	var dialer net.Dialer
	rawConn, err := dialer.DialContext(ctx, "udp6", address)
	if err != nil {
		return resultcode.ClassifyUDP(ctx, false, err)
	}
	defer rawConn.Close()

	conn, isUDP := rawConn.(*net.UDPConn)
	if isUDP {
		_ = enableICMPv6Errors(conn)
	}

	payload := udpPayload(port)
	if _, err := rawConn.Write(payload); err != nil {
		return resultcode.ClassifyUDP(ctx, false, mapUDPWriteError(err))
	}

	deadline, _ := ctx.Deadline()
	_ = rawConn.SetReadDeadline(deadline)

	buf := make([]byte, 1500)
	n, err := rawConn.Read(buf)
	if err != nil {
		if isUDP {
			if errno, found, _ := readICMPv6Error(conn); found {
				return resultcode.ClassifyUDP(ctx, false, errno)
			}
		}
		return resultcode.ClassifyUDP(ctx, false, mapUDPReadError(err))
	}
	return resultcode.ClassifyUDP(ctx, n > 0, nil)
}

// mapUDPWriteError and mapUDPReadError strip the net.OpError/timeout
// wrapper that Write/Read add around the ICMPv6-derived syscall errno so
// resultcode.ClassifyUDP's errors.Is checks against the raw errno succeed.
func mapUDPWriteError(err error) error {
	return unwrapNetError(err)
}

func mapUDPReadError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return unwrapNetError(err)
}

func unwrapNetError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Err
	}
	return err
}
