//go:build linux

package probe

import (
	"encoding/binary"
	"net"

	"golang.org/x/sys/unix"
)

// enableICMPv6Errors turns on IPV6_RECVERR so a later read surfaces the
// specific ICMPv6 error (destination unreachable / packet too big / param
// problem) that accompanied a failed send, rather than just a generic
// connection-refused the kernel would otherwise report for the simpler
// cases. Best-effort: callers fall back to whatever net.Conn already
// reports if this fails or the platform lacks the option.
func enableICMPv6Errors(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_RECVERR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// readICMPv6Error drains the socket's error queue (MSG_ERRORQUEUE) and
// returns the errno carried by the extended socket error, if one is
// pending. found is false when no asynchronous error has arrived yet.
func readICMPv6Error(conn *net.UDPConn) (errno unix.Errno, found bool, err error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, false, err
	}

	var oob [256]byte
	var n int
	var rerr error
	err = raw.Read(func(fd uintptr) bool {
		_, n, _, _, rerr = unix.Recvmsg(int(fd), nil, oob[:], unix.MSG_ERRORQUEUE)
		return true
	})
	if err != nil {
		return 0, false, err
	}
	if rerr != nil || n == 0 {
		return 0, false, nil
	}

	scms, err := unix.ParseSocketControlMessage(oob[:n])
	if err != nil || len(scms) == 0 {
		return 0, false, err
	}

	for _, scm := range scms {
		isIPv6Err := scm.Header.Level == unix.IPPROTO_IPV6 && scm.Header.Type == unix.IPV6_RECVERR
		if !isIPv6Err || len(scm.Data) < 16 {
			continue
		}
		// struct sock_extended_err (16 bytes): uint32 ee_errno; uint8
		// ee_origin, ee_type, ee_code, ee_pad; uint32 ee_info, ee_data
		// (native-endian on Linux). Only ee_errno is used here.
		errVal := binary.NativeEndian.Uint32(scm.Data[0:4])
		return unix.Errno(errVal), true, nil
	}
	return 0, false, nil
}
