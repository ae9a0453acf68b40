// Package store persists normalized records and hints in a local badger
// database, one keyspace per monitoring session. It implements the monitor
// sink interfaces, so it can sit behind a Session as the storage
// collaborator without the core knowing about it.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/metrics"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// SessionMeta describes one stored monitoring session.
type SessionMeta struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// TraceStore is a badger-backed trace archive. Values are
// snappy-compressed JSON. Sink methods never fail the pipeline; write
// errors are counted and logged.
type TraceStore struct {
	db      *badger.DB
	session SessionMeta

	mu        sync.Mutex
	recCount  int64
	hintCount int64
}

// Open opens (or creates) the store at path and starts a new session.
func Open(path string) (*TraceStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %s: %w", path, err)
	}

	s := &TraceStore{
		db: db,
		session: SessionMeta{
			ID:        uuid.NewString(),
			StartedAt: time.Now().UTC(),
		},
	}
	if err := s.putJSON(sessionKey(s.session.ID), s.session); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: write session meta: %w", err)
	}
	return s, nil
}

// Close flushes and closes the underlying database.
func (s *TraceStore) Close() error {
	return s.db.Close()
}

// SessionID returns the id of the session this store instance writes to.
func (s *TraceStore) SessionID() string {
	return s.session.ID
}

// Ping verifies the database is still usable. Suitable as a health check.
func (s *TraceStore) Ping() error {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(sessionKey(s.session.ID))
		return err
	})
	if err != nil {
		return fmt.Errorf("store.Ping: %w", err)
	}
	return nil
}

// AcceptRecord persists one normalized record in stream order. Synthesized
// records share their trigger's sequence number, so keys use a write index
// rather than the sequence.
func (s *TraceStore) AcceptRecord(rec *timeline.Record) {
	s.mu.Lock()
	idx := s.recCount
	s.recCount++
	s.mu.Unlock()

	key := recordKey(s.session.ID, idx)
	if err := s.putJSON(key, rec); err != nil {
		metrics.StoreWriteErrors.Inc()
		slog.Warn("trace store record write failed",
			"session", s.session.ID, "sequence", rec.Sequence, "error", err)
		return
	}
	metrics.StoreWrites.WithLabelValues("record").Inc()
}

// AcceptHint persists one hint in emission order.
func (s *TraceStore) AcceptHint(h hintlet.Hint) {
	s.mu.Lock()
	idx := s.hintCount
	s.hintCount++
	s.mu.Unlock()

	key := hintKey(s.session.ID, idx)
	if err := s.putJSON(key, h); err != nil {
		metrics.StoreWriteErrors.Inc()
		slog.Warn("trace store hint write failed",
			"session", s.session.ID, "rule", h.HintletRule, "error", err)
		return
	}
	metrics.StoreWrites.WithLabelValues("hint").Inc()
}

// Records returns the stored record stream for a session in stream order.
func (s *TraceStore) Records(sessionID string) ([]*timeline.Record, error) {
	var out []*timeline.Record
	prefix := []byte(fmt.Sprintf("rec:%s:", sessionID))
	err := s.scan(prefix, func(val []byte) error {
		var rec timeline.Record
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.Records: %s: %w", sessionID, err)
	}
	return out, nil
}

// Hints returns the stored hints for a session in emission order.
func (s *TraceStore) Hints(sessionID string) ([]hintlet.Hint, error) {
	var out []hintlet.Hint
	prefix := []byte(fmt.Sprintf("hint:%s:", sessionID))
	err := s.scan(prefix, func(val []byte) error {
		var h hintlet.Hint
		if err := json.Unmarshal(val, &h); err != nil {
			return err
		}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.Hints: %s: %w", sessionID, err)
	}
	return out, nil
}

// Sessions lists all stored sessions.
func (s *TraceStore) Sessions() ([]SessionMeta, error) {
	var out []SessionMeta
	err := s.scan([]byte("sess:"), func(val []byte) error {
		var m SessionMeta
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.Sessions: %w", err)
	}
	return out, nil
}

func (s *TraceStore) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, data)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, compressed)
	})
}

// scan iterates all values under prefix in key order, decompressing each.
func (s *TraceStore) scan(prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				decoded, err := snappy.Decode(nil, val)
				if err != nil {
					return err
				}
				return fn(decoded)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys sort lexicographically in badger; write indexes are zero-padded so
// key order matches stream order.

func sessionKey(id string) []byte {
	return []byte("sess:" + id)
}

func recordKey(sessionID string, idx int64) []byte {
	return []byte(fmt.Sprintf("rec:%s:%020d", sessionID, idx))
}

func hintKey(sessionID string, idx int64) []byte {
	return []byte(fmt.Sprintf("hint:%s:%020d", sessionID, idx))
}
