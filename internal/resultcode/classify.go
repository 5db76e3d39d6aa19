package resultcode

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// ClassifyTCP maps the outcome of a TCP connect attempt to a Code. err is
// the error returned by the dial/connect call (nil on success); ctx is
// consulted to distinguish a deadline-driven stealth result from an
// unrelated cancellation.
func ClassifyTCP(ctx context.Context, err error) Code {
	if err == nil {
		return PortOpen
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return PortInProgress
	}

	switch {
	case errors.Is(err, unix.ECONNABORTED):
		return PortAbort
	case errors.Is(err, unix.ECONNREFUSED):
		return PortRefused
	case errors.Is(err, unix.ECONNRESET):
		return PortConnReset
	case errors.Is(err, unix.ENETRESET):
		return PortNetReset
	case errors.Is(err, unix.EACCES):
		return PortProhibited
	case errors.Is(err, unix.ENETUNREACH):
		return PortUnreachable
	case errors.Is(err, unix.EHOSTUNREACH):
		return PortNoRoute
	case errors.Is(err, unix.EMSGSIZE):
		return PortPktTooBig
	case errors.Is(err, unix.EPROTO):
		return PortParamProb
	case errors.Is(err, unix.ETIMEDOUT), errors.Is(err, unix.EINPROGRESS):
		return PortInProgress
	default:
		return PortUnexpected
	}
}

// ClassifyUDP maps the outcome of a UDP application probe to a Code: a
// received reply is UDPOpen, a timeout or EAGAIN is UDPStealth (the benign
// outcome), and an ICMPv6-derived delivery error is classified the same way
// TCP connect errors are, since both arrive as ICMPv6 destination
// unreachable/administratively-prohibited/etc. messages.
func ClassifyUDP(ctx context.Context, gotReply bool, err error) Code {
	if gotReply {
		return UDPOpen
	}
	if err == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, unix.EAGAIN) {
		return UDPStealth
	}

	switch {
	case errors.Is(err, unix.EACCES):
		return PortProhibited
	case errors.Is(err, unix.ENETUNREACH):
		return PortUnreachable
	case errors.Is(err, unix.EHOSTUNREACH):
		return PortNoRoute
	case errors.Is(err, unix.ECONNREFUSED):
		return PortRefused
	case errors.Is(err, unix.EMSGSIZE):
		return PortPktTooBig
	case errors.Is(err, unix.EPROTO):
		return PortParamProb
	default:
		return UDPStealth
	}
}
