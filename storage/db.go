package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("storage: key not found")
	// ErrConflict is returned by Commit when a key changed after it was read.
	// The caller may retry the whole transaction against fresh state.
	ErrConflict = errors.New("storage: write conflict")
	// ErrClosed is returned once the database has been closed.
	ErrClosed = errors.New("storage: database closed")
)

// Entry is a stored value together with its write version. Version 0 is
// reserved for "absent".
type Entry struct {
	Value   []byte
	Version uint64
}

// Read asserts that Key still carries Version at commit time.
type Read struct {
	Key     []byte
	Version uint64
}

// Write replaces Key with Value provided its current version equals
// ExpectedVersion. An ExpectedVersion of 0 requires the key to be absent.
type Write struct {
	Key             []byte
	Value           []byte
	ExpectedVersion uint64
}

// Database is the versioned key-value store backing the staking records.
// Commit applies every write or none of them.
type Database interface {
	Get(key []byte) (Entry, error)
	Commit(reads []Read, writes []Write) error
	Iterate(prefix []byte, fn func(key []byte, entry Entry) error) error
	Close()
}

func checkVersions(reads []Read, writes []Write, current func(key []byte) (uint64, error)) error {
	for _, r := range reads {
		version, err := current(r.Key)
		if err != nil {
			return err
		}
		if version != r.Version {
			return fmt.Errorf("%w: key %x read at v%d now v%d", ErrConflict, r.Key, r.Version, version)
		}
	}
	seen := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		if _, dup := seen[string(w.Key)]; dup {
			return fmt.Errorf("storage: duplicate write for key %x", w.Key)
		}
		seen[string(w.Key)] = struct{}{}
		version, err := current(w.Key)
		if err != nil {
			return err
		}
		if version != w.ExpectedVersion {
			return fmt.Errorf("%w: key %x expected v%d found v%d", ErrConflict, w.Key, w.ExpectedVersion, version)
		}
	}
	return nil
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu     sync.RWMutex
	data   map[string]Entry
	closed bool
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string]Entry),
	}
}

func (db *MemDB) Get(key []byte) (Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return Entry{}, ErrClosed
	}
	entry, ok := db.data[string(key)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Value: append([]byte(nil), entry.Value...), Version: entry.Version}, nil
}

func (db *MemDB) Commit(reads []Read, writes []Write) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	err := checkVersions(reads, writes, func(key []byte) (uint64, error) {
		return db.data[string(key)].Version, nil
	})
	if err != nil {
		return err
	}
	for _, w := range writes {
		db.data[string(w.Key)] = Entry{
			Value:   append([]byte(nil), w.Value...),
			Version: w.ExpectedVersion + 1,
		}
	}
	return nil
}

func (db *MemDB) Iterate(prefix []byte, fn func(key []byte, entry Entry) error) error {
	db.mu.RLock()
	keys := make([]string, 0, len(db.data))
	for key := range db.data {
		if bytes.HasPrefix([]byte(key), prefix) {
			keys = append(keys, key)
		}
	}
	snapshot := make(map[string]Entry, len(keys))
	for _, key := range keys {
		snapshot[key] = db.data[key]
	}
	db.mu.RUnlock()

	sort.Strings(keys)
	for _, key := range keys {
		entry := snapshot[key]
		if err := fn([]byte(key), Entry{Value: append([]byte(nil), entry.Value...), Version: entry.Version}); err != nil {
			return err
		}
	}
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	db.mu.Lock()
	db.closed = true
	db.mu.Unlock()
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB. Each value is
// prefixed with its big-endian version; commits are serialised in-process and
// written as a single synced batch.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func encodeVersioned(version uint64, value []byte) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, version)
	copy(buf[8:], value)
	return buf
}

func decodeVersioned(raw []byte) (Entry, error) {
	if len(raw) < 8 {
		return Entry{}, fmt.Errorf("storage: corrupt entry of %d bytes", len(raw))
	}
	return Entry{
		Version: binary.BigEndian.Uint64(raw[:8]),
		Value:   append([]byte(nil), raw[8:]...),
	}, nil
}

// Get retrieves the value and version stored for key.
func (ldb *LevelDB) Get(key []byte) (Entry, error) {
	raw, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return decodeVersioned(raw)
}

func (ldb *LevelDB) version(key []byte) (uint64, error) {
	entry, err := ldb.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.Version, nil
}

// Commit validates the read and write versions and applies the writes as one
// batch.
func (ldb *LevelDB) Commit(reads []Read, writes []Write) error {
	ldb.mu.Lock()
	defer ldb.mu.Unlock()
	if err := checkVersions(reads, writes, ldb.version); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, w := range writes {
		batch.Put(w.Key, encodeVersioned(w.ExpectedVersion+1, w.Value))
	}
	return ldb.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Iterate visits every key with the given prefix in key order.
func (ldb *LevelDB) Iterate(prefix []byte, fn func(key []byte, entry Entry) error) error {
	iter := ldb.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		entry, err := decodeVersioned(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(append([]byte(nil), iter.Key()...), entry); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}
