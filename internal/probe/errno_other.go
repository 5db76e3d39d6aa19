//go:build !linux

package probe

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var errICMPv6ErrorsUnsupported = errors.New("probe: IPV6_RECVERR not supported on this platform")

func enableICMPv6Errors(*net.UDPConn) error {
	return errICMPv6ErrorsUnsupported
}

func readICMPv6Error(*net.UDPConn) (unix.Errno, bool, error) {
	return 0, false, errICMPv6ErrorsUnsupported
}
