package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"tierstake/storage"
)

var errManagerClosed = errors.New("state: manager already committed or discarded")

// Manager is a single optimistic transaction over the versioned store. Reads
// record the version they observed; writes are buffered until Commit, which
// applies them only if none of the observed versions changed in between.
type Manager struct {
	db     storage.Database
	reads  map[string]uint64
	writes map[string][]byte
	done   bool
}

// NewManager opens a transaction against db.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:     db,
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if m.done {
		return nil, false, errManagerClosed
	}
	k := string(key)
	if value, ok := m.writes[k]; ok {
		return value, true, nil
	}
	entry, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		m.observe(k, 0)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m.observe(k, entry.Version)
	return entry.Value, true, nil
}

// observe keeps the first version seen for a key. A later read returning a
// different version means another writer committed and Commit will fail.
func (m *Manager) observe(key string, version uint64) {
	if _, seen := m.reads[key]; !seen {
		m.reads[key] = version
	}
}

func (m *Manager) put(key, value []byte) error {
	if m.done {
		return errManagerClosed
	}
	k := string(key)
	if _, seen := m.reads[k]; !seen {
		if _, _, err := m.get(key); err != nil {
			return err
		}
	}
	m.writes[k] = append([]byte(nil), value...)
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}


// Commit applies every buffered write atomically. It fails with
// storage.ErrConflict when a key read by this transaction was changed by
// another one.
func (m *Manager) Commit() error {
	if m.done {
		return errManagerClosed
	}
	m.done = true
	if len(m.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.reads))
	for k := range m.reads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var (
		reads  []storage.Read
		writes []storage.Write
	)
	for _, k := range keys {
		version := m.reads[k]
		if value, ok := m.writes[k]; ok {
			writes = append(writes, storage.Write{Key: []byte(k), Value: value, ExpectedVersion: version})
			continue
		}
		reads = append(reads, storage.Read{Key: []byte(k), Version: version})
	}
	if err := m.db.Commit(reads, writes); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops every buffered write.
func (m *Manager) Discard() {
	m.done = true
	m.writes = nil
}
