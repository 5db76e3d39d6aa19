// Package store defines the result store contract shared by every scan
// component: probes write outcomes, the dispatcher reads and dumps them,
// client reports update the test-state row, and a periodic tidy reclaims
// abandoned sessions.
package store

import (
	"context"
	"time"

	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/session"
)

// Row is one persisted port result: the encoded port key (see
// internal/portcatalog), the classified result code, and — for an ICMPv6
// echo reply observed from a router other than the scanned target — the
// printable address of that responder.
type Row struct {
	PortKey      uint32
	Code         resultcode.Code
	IndirectHost string
}

// Store persists and retrieves per-session port results and the session's
// test-state row. Implementations must be safe for concurrent use: the
// parallel supervisor writes from many goroutines at once.
type Store interface {
	// Write records a new row for key, or overwrites an existing one for
	// the same (key, portKey). Used by probes reporting a port outcome and
	// by session creation writing the initial test-state row.
	Write(ctx context.Context, key session.Key, row Row) error

	// Update is semantically identical to Write but documents the
	// test-state-mutation call sites (client fetch reports): Write is the
	// common case precisely because the original scanner's own UPDATE
	// statement for the test-state row was a plain upsert.
	Update(ctx context.Context, key session.Key, row Row) error

	// Read returns the row stored for (key, portKey). ok is false if no row
	// exists for that key/portKey pair.
	Read(ctx context.Context, key session.Key, portKey uint32) (Row, bool, error)

	// Dump returns every row for key in the store's natural order, used by
	// the JSON polling endpoint and the synchronous results page.
	Dump(ctx context.Context, key session.Key) ([]Row, error)

	// Delete removes every row for key as a group.
	Delete(ctx context.Context, key session.Key) error

	// Tidy deletes sessions whose start_time is older than retention,
	// returning the number of sessions removed.
	Tidy(ctx context.Context, retention time.Duration) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
