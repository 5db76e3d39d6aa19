// Package resultcode defines the ordered taxonomy of per-port scan outcomes
// and the errno-to-outcome classification used by the TCP, UDP, and ICMPv6
// probes.
package resultcode

import "golang.org/x/sys/unix"

// Code identifies a scan outcome. Values are stable across releases since
// they are persisted in the result store and reused by clients polling JSON
// dumps mid-scan.
type Code int32

// Result codes, declared in the same monotonically increasing order as the
// original scanner's result table. Do not renumber existing entries.
const (
	PortOpen Code = iota
	PortAbort
	PortRefused
	PortConnReset
	PortNetReset
	PortInProgress // stealth: no response within the timeout, TCP case
	PortProhibited
	PortUnreachable
	PortNoRoute
	PortPktTooBig
	PortParamProb
	EchoNoReply  // ideal ICMPv6 outcome: no echo reply received
	EchoReply    // an echo reply was received
	UDPOpen      // a valid application-layer reply was received on the UDP port
	UDPStealth   // no UDP response within the timeout
	PortUnexpected
	PortUnknown
	PortInternalError
	portEOL // sentinel; never assigned to a probe result
)

// indirectResponseOffset biases an ICMPv6 result code when the reply that
// produced it arrived from a router other than the probed target, mirroring
// IPSCAN_INDIRECT_RESPONSE: the raw code is still meaningful to Lookup, but
// the offset marks the entry distinctly in logs and dumps.
const indirectResponseOffset Code = 1000

// Entry describes one row of the result taxonomy: its wire-level errno
// mapping (where applicable), short label, presentation color class, and a
// human-readable description suitable for the results page.
type Entry struct {
	Code        Code
	Errno       int
	Label       string
	Color       string
	Description string
}

// table holds the result taxonomy in Code order, terminated logically by
// portEOL (never looked up directly).
var table = []Entry{
	{PortOpen, 0, "OPEN", "red", "An IPv6 TCP connection was successfully established to this port. You should check that this is the expected outcome since an attacker may be able to compromise your machine by accessing this IPv6 address/port combination."},
	{PortAbort, int(unix.ECONNABORTED), "ABRT", "yellow", "An abort indication was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortRefused, int(unix.ECONNREFUSED), "RFSD", "yellow", "A refused indication (TCP RST/ACK or ICMPv6 type 1 code 4) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortConnReset, int(unix.ECONNRESET), "CRST", "yellow", "A connection reset request was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortNetReset, int(unix.ENETRESET), "NRST", "yellow", "A network reset request was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortInProgress, int(unix.EINPROGRESS), "STLTH", "green", "No response was received from your machine in the allocated time period. This is the ideal response since no-one can ascertain your machine's presence at this IPv6 address/port combination."},
	{PortProhibited, int(unix.EACCES), "PHBTD", "yellow", "An administratively prohibited response (ICMPv6 type 1 code 1) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortUnreachable, int(unix.ENETUNREACH), "NUNRCH", "yellow", "An unreachable response (ICMPv6 type 1 code 0) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortNoRoute, int(unix.EHOSTUNREACH), "HUNRCH", "yellow", "A no route to host response (ICMPv6 type 1 code 3 or ICMPv6 type 3) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortPktTooBig, int(unix.EMSGSIZE), "TOOBIG", "yellow", "A packet too big response (ICMPv6 type 2) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{PortParamProb, int(unix.EPROTO), "PRMPRB", "yellow", "A parameter problem response (ICMPv6 type 4) was received when attempting to open this port. Someone can ascertain that your machine is responding on this IPv6 address/port combination, but cannot establish a TCP connection."},
	{EchoNoReply, -96, "ECHO NO REPLY", "green", "No ICMPv6 echo reply packet was received in response to the ICMPv6 echo request which was sent. This is the ideal response since no-one can ascertain your machine's presence at this IPv6 address."},
	{EchoReply, -97, "ECHO REPLY", "yellow", "An ICMPv6 echo reply packet was received in response to the ICMPv6 echo request which was sent. Someone can ascertain that your machine is present on this IPv6 address."},
	{UDPOpen, -95, "UDPOPEN", "red", "A valid response was received from this UDP port. You should check that this is the expected outcome since an attacker may be able to compromise your machine by accessing this IPv6 address/port combination."},
	{UDPStealth, int(unix.EAGAIN), "UDPSTEALTH", "green", "No UDP response was received from your machine in the allocated time period. This is the ideal response since no-one can ascertain your machine's presence at this IPv6 address/port combination."},
	{PortUnexpected, -98, "UNXPCT", "white", "An unexpected response was received to the connect attempt."},
	{PortUnknown, -99, "UNKWN", "white", "An unknown error response was received, or the port is yet to be tested."},
	{PortInternalError, -100, "INTERR", "white", "An internal error occurred."},
}

// byCode indexes table for O(1) Lookup despite its small size being just as
// fast scanned linearly; kept as a map for clarity at call sites that look
// codes up by value repeatedly (the JSON encoder, the results page).
var byCode = func() map[Code]Entry {
	m := make(map[Code]Entry, len(table))
	for _, e := range table {
		m[e.Code] = e
	}
	return m
}()

// Lookup returns the taxonomy entry for code. An indirect ICMPv6 response is
// first folded back to its base code. Codes with no matching entry resolve
// to PortUnknown, matching the original scanner's fallback behavior.
func Lookup(code Code) Entry {
	code = BaseCode(code)
	if e, ok := byCode[code]; ok {
		return e
	}
	return byCode[PortUnknown]
}

// IsIndirect reports whether code carries the indirect-response bias applied
// when an ICMPv6 reply arrived from a router other than the probed target.
func IsIndirect(code Code) bool {
	return code >= indirectResponseOffset
}

// BaseCode strips the indirect-response bias from code, if present.
func BaseCode(code Code) Code {
	if code >= indirectResponseOffset {
		return code - indirectResponseOffset
	}
	return code
}

// Indirect applies the indirect-response bias to code.
func Indirect(code Code) Code {
	return BaseCode(code) + indirectResponseOffset
}
