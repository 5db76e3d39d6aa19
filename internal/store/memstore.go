package store

import (
	"context"
	"sync"
	"time"

	"github.com/ipscand/ipscand/internal/session"
)

type memSession struct {
	startTime time.Time
	rows      map[uint32]Row
	order     []uint32
}

// MemStore is an in-process Store backed by a map, suitable for tests and
// small deployments that do not need results to survive a restart.
type MemStore struct {
	mu       sync.Mutex
	sessions map[session.Key]*memSession
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[session.Key]*memSession)}
}

func (m *MemStore) Write(_ context.Context, key session.Key, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		sess = &memSession{startTime: time.Unix(int64(key.StartTime), 0), rows: make(map[uint32]Row)}
		m.sessions[key] = sess
	}
	if _, exists := sess.rows[row.PortKey]; !exists {
		sess.order = append(sess.order, row.PortKey)
	}
	sess.rows[row.PortKey] = row
	return nil
}

func (m *MemStore) Update(ctx context.Context, key session.Key, row Row) error {
	return m.Write(ctx, key, row)
}

func (m *MemStore) Read(_ context.Context, key session.Key, portKey uint32) (Row, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return Row{}, false, nil
	}
	row, ok := sess.rows[portKey]
	return row, ok, nil
}

func (m *MemStore) Dump(_ context.Context, key session.Key) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	rows := make([]Row, 0, len(sess.order))
	for _, pk := range sess.order {
		rows = append(rows, sess.rows[pk])
	}
	return rows, nil
}

func (m *MemStore) Delete(_ context.Context, key session.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

func (m *MemStore) Tidy(_ context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for k, sess := range m.sessions {
		if sess.startTime.Before(cutoff) {
			delete(m.sessions, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemStore) Close() error {
	return nil
}
