// Package store: bbolt-backed implementation.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ipscand/ipscand/internal/session"
)

const (
	// dbFileMode is the file permission mode for the bbolt database file.
	dbFileMode = 0o600
	// dbOpenTimeout bounds how long Open waits for the file lock.
	dbOpenTimeout = 5 * time.Second
)

var (
	// bucketSessions holds one sub-bucket per session, named by its tuple
	// string. Each sub-bucket maps a big-endian port key to a gob-encoded
	// Row.
	bucketSessions = []byte("sessions")
	// bucketStartTimes maps a session tuple string to its big-endian
	// Unix-second start time, letting Tidy scan ages without opening every
	// session sub-bucket.
	bucketStartTimes = []byte("start_times")
)

// bufferPool reduces allocations across the frequent small gob encodes a
// scan produces (one per probed port).
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// BoltStore implements Store using an embedded bbolt database, keyed by
// session tuple then by port key.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating database directory: %w", err)
		}
	}

	db, err := bolt.Open(path, dbFileMode, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return fmt.Errorf("create sessions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketStartTimes); err != nil {
			return fmt.Errorf("create start_times bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func sessionBucketName(key session.Key) []byte {
	return []byte(key.String())
}

func portKeyBytes(portKey uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], portKey)
	return b[:]
}

func encodeRow(row Row) ([]byte, error) {
	buf, ok := bufferPool.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(row); err != nil {
		return nil, fmt.Errorf("gob encode row: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decodeRow(data []byte) (Row, error) {
	var row Row
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&row); err != nil {
		return Row{}, fmt.Errorf("gob decode row: %w", err)
	}
	return row, nil
}

func (s *BoltStore) Write(ctx context.Context, key session.Key, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := encodeRow(row)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		name := sessionBucketName(key)

		sb, err := sessions.CreateBucketIfNotExists(name)
		if err != nil {
			return fmt.Errorf("create session bucket: %w", err)
		}

		starts := tx.Bucket(bucketStartTimes)
		if starts.Get(name) == nil {
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], key.StartTime)
			if err := starts.Put(name, tb[:]); err != nil {
				return err
			}
		}

		return sb.Put(portKeyBytes(row.PortKey), value)
	})
}

func (s *BoltStore) Update(ctx context.Context, key session.Key, row Row) error {
	return s.Write(ctx, key, row)
}

func (s *BoltStore) Read(ctx context.Context, key session.Key, portKey uint32) (Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, false, err
	}

	var row Row
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSessions).Bucket(sessionBucketName(key))
		if sb == nil {
			return nil
		}
		val := sb.Get(portKeyBytes(portKey))
		if val == nil {
			return nil
		}
		found = true
		var err error
		row, err = decodeRow(val)
		return err
	})
	return row, found, err
}

func (s *BoltStore) Dump(ctx context.Context, key session.Key) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []Row
	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSessions).Bucket(sessionBucketName(key))
		if sb == nil {
			return nil
		}
		return sb.ForEach(func(_, v []byte) error {
			row, err := decodeRow(v)
			if err != nil {
				return err
			}
			rows = append(rows, row)
			return nil
		})
	})
	return rows, err
}

func (s *BoltStore) Delete(ctx context.Context, key session.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		name := sessionBucketName(key)
		sessions := tx.Bucket(bucketSessions)
		if sessions.Bucket(name) != nil {
			if err := sessions.DeleteBucket(name); err != nil {
				return fmt.Errorf("delete session bucket: %w", err)
			}
		}
		return tx.Bucket(bucketStartTimes).Delete(name)
	})
}

func (s *BoltStore) Tidy(ctx context.Context, retention time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention).Unix()
	var stale [][]byte

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketStartTimes).Cursor()
		for name, val := c.First(); name != nil; name, val = c.Next() {
			start := int64(binary.BigEndian.Uint64(val))
			if start < cutoff {
				stale = append(stale, append([]byte(nil), name...))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		starts := tx.Bucket(bucketStartTimes)
		for _, name := range stale {
			if sessions.Bucket(name) != nil {
				if err := sessions.DeleteBucket(name); err != nil {
					return err
				}
			}
			if err := starts.Delete(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(stale), nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
