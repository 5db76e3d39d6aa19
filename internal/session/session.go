// Package session defines the scan session identity (tuple primary key) and
// the client-reported test-state bitfield lifecycle.
package session

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
)

// Key is the primary key of a single in-flight or recently-completed scan:
// the client's IPv6 address split big-endian into two 64-bit halves, the
// Unix second the test started, and a pseudo-random session identifier.
// The tuple uniquely identifies exactly one test.
type Key struct {
	HostMSB   uint64
	HostLSB   uint64
	StartTime uint64
	SessionID uint64
}

// NewKey derives a Key's address halves from addr and stores startTime and
// sessionID as given (the caller supplies them: a client-sent value, or the
// clock and NewSessionID for a server-minted session). It fails if addr is
// not IPv6.
func NewKey(addr netip.Addr, startTime, sessionID uint64) (Key, error) {
	if !addr.Is6() {
		return Key{}, fmt.Errorf("session: address %s is not IPv6", addr)
	}
	b := addr.As16()
	return Key{
		HostMSB:   binary.BigEndian.Uint64(b[0:8]),
		HostLSB:   binary.BigEndian.Uint64(b[8:16]),
		StartTime: startTime,
		SessionID: sessionID,
	}, nil
}

// Addr reconstructs the scanned IPv6 address from the tuple's host halves.
func (k Key) Addr() netip.Addr {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], k.HostMSB)
	binary.BigEndian.PutUint64(b[8:16], k.HostLSB)
	return netip.AddrFrom16(b)
}

// String renders the tuple as a stable identifier suitable for log lines and
// store keys.
func (k Key) String() string {
	return fmt.Sprintf("%016x:%016x:%d:%016x", k.HostMSB, k.HostLSB, k.StartTime, k.SessionID)
}

// NewSessionID generates a pseudo-random 64-bit session identifier from a
// fresh UUIDv4, used for server-generated sessions (the single-shot
// text-mode page, which has no JavaScript client to mint one).
func NewSessionID() (uint64, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return 0, fmt.Errorf("session: generating session id: %w", err)
	}
	b := id[:]
	return binary.BigEndian.Uint64(b[:8]), nil
}
