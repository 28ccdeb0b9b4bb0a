// Package state provides the per-invocation journal that sits between the
// host and its committed key-value store.
package state

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// pendingEntry is one overlay slot. A deleted entry shadows a committed value.
type pendingEntry struct {
	value   []byte
	deleted bool
}

// StateDB is a write overlay on top of a committed ethdb.KeyValueStore.
// Reads consult the overlay first and fall through to the store; writes only
// touch the overlay until Commit flushes everything in one batch. Discarding
// the overlay leaves the store exactly as it was.
type StateDB struct {
	db ethdb.KeyValueStore

	// pending records the final value for every key written during the
	// invocation: pending[key] = value (or a deletion marker).
	pending map[string]pendingEntry

	mu sync.Mutex // guards pending
}

// New creates an empty overlay over db.
func New(db ethdb.KeyValueStore) *StateDB {
	return &StateDB{db: db}
}

// ensureJournal lazily allocs the overlay.
func (s *StateDB) ensureJournal() {
	if s.pending == nil {
		s.pending = make(map[string]pendingEntry)
	}
}

// Get returns the value stored at key and whether it exists.
func (s *StateDB) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[string(key)]; ok {
		if e.deleted {
			return nil, false, nil
		}
		return append([]byte(nil), e.value...), true, nil
	}
	ok, err := s.db.Has(key)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put records value at key in the overlay. The slice is copied.
func (s *StateDB) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureJournal()
	s.pending[string(key)] = pendingEntry{value: append([]byte(nil), value...)}
}

// Delete shadows key in the overlay.
func (s *StateDB) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureJournal()
	s.pending[string(key)] = pendingEntry{deleted: true}
}

// GetRLP decodes the value at key into out.
func (s *StateDB) GetRLP(key []byte, out interface{}) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	return true, rlp.DecodeBytes(raw, out)
}

// PutRLP encodes value and records it at key.
func (s *StateDB) PutRLP(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	s.Put(key, raw)
	return nil
}

// HasPending reports whether the overlay holds any un-flushed changes.
func (s *StateDB) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Commit applies everything recorded in the overlay to the underlying store
// in a single batch and then clears the overlay.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	// Sorted so that batch replays are deterministic.
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := s.db.NewBatch()
	for _, k := range keys {
		e := s.pending[k]
		var err error
		if e.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), e.value)
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	log.Trace("Flushed state overlay", "keys", len(keys), "size", batch.ValueSize())

	// reset
	s.pending = nil
	return nil
}

// Discard drops the overlay without touching the store.
func (s *StateDB) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.pending); n > 0 {
		log.Trace("Discarded state overlay", "keys", n)
	}
	s.pending = nil
}
