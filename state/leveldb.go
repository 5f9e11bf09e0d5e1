package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// versionKey cannot collide with an address: addresses are hex.
var versionKey = []byte("!version")

// Compile-time interface check.
var _ Store = (*LevelStore)(nil)

// LevelStore is a Store persisted in a leveldb database. The version
// is written in the same batch as the entries it counts.
type LevelStore struct {
	db *leveldb.DB

	mu      sync.RWMutex
	version uint64
}

// OpenLevelStore opens (or creates) the database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return newLevelStore(db)
}

func newLevelStore(db *leveldb.DB) (*LevelStore, error) {
	s := &LevelStore{db: db}

	raw, err := db.Get(versionKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read state version: %w", err)
	case len(raw) != 8:
		db.Close()
		return nil, fmt.Errorf("read state version: malformed value of %d bytes", len(raw))
	default:
		s.version = binary.BigEndian.Uint64(raw)
	}
	return s, nil
}

func (s *LevelStore) Get(address string) ([]byte, bool, error) {
	data, err := s.db.Get([]byte(address), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldb get %s: %w", address, err)
	}
	return data, true, nil
}

func (s *LevelStore) Apply(changes map[string][]byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(changes) == 0 {
		return s.version, nil
	}

	next := s.version + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)

	batch := &leveldb.Batch{}
	for k, v := range changes {
		batch.Put([]byte(k), v)
	}
	batch.Put(versionKey, buf)

	if err := s.db.Write(batch, nil); err != nil {
		return s.version, fmt.Errorf("leveldb write: %w", err)
	}
	s.version = next
	return next, nil
}

func (s *LevelStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Close closes the leveldb storage instance
func (s *LevelStore) Close() error {
	return s.db.Close()
}
